package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
)

const ownerKey = "owner_id"

// requireOwner resolves the bearer token to an owner id. Requests without
// a valid token never reach the ledger.
func (s *Server) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization header required"})
			return
		}

		owner, err := s.deps.Auth.Tokens().Parse(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}

		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(log.WithContext(ctx, log.FromContext(ctx).WithOwner(owner.String())))
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ownerKey); ok {
		if owner, ok := v.(uuid.UUID); ok {
			return owner
		}
	}
	return uuid.Nil
}

// session opens the caller's ledger session, writing the error response
// when it cannot.
func (s *Server) session(c *gin.Context) (*services.Session, bool) {
	sess, err := s.deps.Ledger.Session(c.Request.Context(), ownerFrom(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

// unavailable answers for an optional service that is not configured.
func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: what + " is not configured"})
}
