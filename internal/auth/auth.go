// Package auth identifies owners: password accounts hashed with bcrypt and
// signed bearer tokens carrying the owner id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

const minPasswordLength = 8

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository persists accounts. UserByEmail and UserByID return a
// *core.NotFoundError when no account matches.
type UserRepository interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (core.User, error)
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt string    `json:"expiresAt"`
	User      core.User `json:"user"`
}

type Authenticator struct {
	users  UserRepository
	tokens *TokenService
	logger *log.Logger
	cost   int
}

func NewAuthenticator(users UserRepository, tokens *TokenService, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Discard()
	}
	return &Authenticator{
		users:  users,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
		cost:   bcrypt.DefaultCost,
	}
}

// Tokens exposes the token service for request authentication.
func (a *Authenticator) Tokens() *TokenService { return a.tokens }

// Register creates an account and signs the owner in.
func (a *Authenticator) Register(ctx context.Context, email, password string) (Session, error) {
	email = core.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Session{}, core.NewValidationError("email", "must be a valid email address")
	}
	if len(password) < minPasswordLength {
		return Session{}, core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.users.CreateUser(ctx, core.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, core.ErrEmailTaken) {
		return Session{}, &core.ValidationError{Field: "email", Message: "already registered", Err: err}
	}
	if err != nil {
		return Session{}, &core.PersistenceError{Op: "create user", Err: err}
	}

	a.logger.InfoContext(ctx, "Account registered", log.FieldOwnerID, user.ID.String())
	return a.session(user)
}

// Login checks the password and signs the owner in.
func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := a.users.UserByEmail(ctx, core.NormalizeEmail(email))
	if core.IsNotFound(err) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, &core.PersistenceError{Op: "find user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.WarnContext(ctx, "Login rejected", log.FieldOwnerID, user.ID.String())
		return Session{}, ErrInvalidCredentials
	}
	return a.session(user)
}

// IssueFor mints a token for an existing account.
func (a *Authenticator) IssueFor(ctx context.Context, email string) (Session, error) {
	user, err := a.users.UserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return Session{}, err
	}
	return a.session(user)
}

func (a *Authenticator) session(user core.User) (Session, error) {
	token, expires, err := a.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires.UTC().Format("2006-01-02T15:04:05Z07:00"), User: user}, nil
}
