package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/LiftThanakorn/income-expense-tracker/internal/ai"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/slipstore"
)

// MaxSlipBytes bounds an uploaded slip image.
const MaxSlipBytes = 10 << 20

// SlipAnalyzer extracts a draft transaction from an image.
type SlipAnalyzer interface {
	AnalyzeSlip(ctx context.Context, image []byte, mimeType string, vocab ai.Vocabulary) (core.SlipGuess, error)
}

// SlipDraft is an unsaved transaction guessed from a slip. The client
// creates the transaction with the normal create call once the user accepts.
type SlipDraft struct {
	core.SlipGuess
	ArchiveURI string `json:"archiveUri,omitempty"`
}

type SlipService struct {
	analyzer SlipAnalyzer
	archive  slipstore.Archive
	logger   *log.Logger
}

func NewSlipService(analyzer SlipAnalyzer, archive slipstore.Archive, logger *log.Logger) *SlipService {
	if archive == nil {
		archive = slipstore.Discard{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SlipService{analyzer: analyzer, archive: archive, logger: logger.WithComponent(log.ComponentSlips)}
}

// Import archives the image and asks the analyzer for a draft coerced into
// the session's categories. An archive failure does not fail the import.
func (s *SlipService) Import(ctx context.Context, sess *Session, image []byte, mimeType string) (SlipDraft, error) {
	if len(image) == 0 {
		return SlipDraft{}, core.NewValidationError("image", "must not be empty")
	}
	if len(image) > MaxSlipBytes {
		return SlipDraft{}, core.NewValidationError("image", "too large (max 10 MB)")
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return SlipDraft{}, core.NewValidationError("image", "must be an image")
	}

	uri, err := s.archive.Put(ctx, sess.Owner, image, mimeType)
	if err != nil {
		s.logger.WarnContext(ctx, "Slip archive failed", log.FieldOwnerID, sess.Owner.String(), log.FieldError, err)
	}

	vocab := sess.Vocabulary()
	guess, err := s.analyzer.AnalyzeSlip(ctx, image, mimeType, vocab)
	if err != nil {
		return SlipDraft{}, err
	}
	// Analyzers outside this module may skip coercion
	guess = vocab.Coerce(guess)

	s.logger.InfoContext(ctx, "Slip analyzed",
		log.FieldOwnerID, sess.Owner.String(),
		log.FieldTxType, string(guess.Type),
		log.FieldCategory, guess.Category,
		log.FieldAmount, guess.Amount.String())
	return SlipDraft{SlipGuess: guess, ArchiveURI: uri}, nil
}
