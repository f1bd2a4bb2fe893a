package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"google.golang.org/genai"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

// Vocabulary is the owner's category names by type.
type Vocabulary struct {
	Income  []string
	Expense []string
}

// VocabularyFrom groups categories by type.
func VocabularyFrom(categories []core.Category) Vocabulary {
	return Vocabulary{
		Income:  core.CategoryNames(categories, core.Income),
		Expense: core.CategoryNames(categories, core.Expense),
	}
}

func (v Vocabulary) all() []string {
	return append(slices.Clone(v.Expense), v.Income...)
}

func (v Vocabulary) names(t core.TransactionType) []string {
	if t == core.Income {
		return v.Income
	}
	return v.Expense
}

// Coerce forces guess into the vocabulary: an unknown type becomes expense
// and a category that is not one of the type's names becomes "other".
func (v Vocabulary) Coerce(guess core.SlipGuess) core.SlipGuess {
	if !guess.Type.IsValid() {
		guess.Type = core.Expense
	}
	if !slices.Contains(v.names(guess.Type), guess.Category) {
		guess.Category = core.CategoryOther
	}
	return guess
}

type Analyzer struct {
	gen    Generator
	model  string
	logger *log.Logger
}

// NewAnalyzer wraps gen. A nil gen yields an analyzer whose calls fail with
// an AdapterError wrapping ErrNotConfigured.
func NewAnalyzer(gen Generator, model string, logger *log.Logger) *Analyzer {
	if model == "" {
		model = DefaultModelName
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Analyzer{gen: gen, model: model, logger: logger.WithComponent(log.ComponentAI)}
}

// AnalyzeSlip extracts a draft transaction from a slip image. The result is
// already coerced into vocab.
func (a *Analyzer) AnalyzeSlip(ctx context.Context, image []byte, mimeType string, vocab Vocabulary) (core.SlipGuess, error) {
	if len(image) == 0 {
		return core.SlipGuess{}, core.NewValidationError("image", "must not be empty")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(slipPrompt(vocab)),
		}, genai.RoleUser),
	}

	var guess core.SlipGuess
	if err := a.generate(ctx, "analyze slip", contents, slipSchema, &guess); err != nil {
		return core.SlipGuess{}, err
	}
	coerced := vocab.Coerce(guess)
	if coerced.Category != guess.Category || coerced.Type != guess.Type {
		a.logger.DebugContext(ctx, "Slip guess coerced",
			log.FieldCategory, guess.Category,
			"coerced_category", coerced.Category)
	}
	return coerced, nil
}

type modelSummary struct {
	Summary              string                `json:"summary"`
	TopExpenseCategories []core.CategoryAmount `json:"topExpenseCategories"`
	SavingsSuggestions   []string              `json:"savingsSuggestions"`
	MonthlyChartData     core.MonthlyTotals    `json:"monthlyChartData"`
}

// AnalyzeSpending summarizes txs. An empty set returns EmptySummary without
// calling the model.
func (a *Analyzer) AnalyzeSpending(ctx context.Context, txs []core.Transaction) (core.SpendingSummary, error) {
	if len(txs) == 0 {
		return EmptySummary(), nil
	}

	prompt, err := spendingPrompt(txs)
	if err != nil {
		return core.SpendingSummary{}, &core.AdapterError{Op: "analyze spending", Err: err}
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var out modelSummary
	if err := a.generate(ctx, "analyze spending", contents, summarySchema, &out); err != nil {
		return core.SpendingSummary{}, err
	}
	if out.TopExpenseCategories == nil {
		out.TopExpenseCategories = []core.CategoryAmount{}
	}
	if out.SavingsSuggestions == nil {
		out.SavingsSuggestions = []string{}
	}
	return core.SpendingSummary{
		Summary:              out.Summary,
		TopExpenseCategories: out.TopExpenseCategories,
		SavingsSuggestions:   out.SavingsSuggestions,
		MonthlyTotals:        out.MonthlyChartData,
	}, nil
}

func (a *Analyzer) generate(ctx context.Context, op string, contents []*genai.Content, schema *genai.Schema, out any) error {
	if a.gen == nil {
		return &core.AdapterError{Op: op, Err: ErrNotConfigured}
	}

	start := time.Now()
	raw, err := a.gen.Generate(ctx, a.model, contents, jsonConfig(schema))
	if err != nil {
		a.logger.ErrorContext(ctx, "Model call failed", log.FieldOperation, op, log.FieldError, err)
		return &core.AdapterError{Op: op, Err: err}
	}
	if raw == "" {
		return &core.AdapterError{Op: op, Err: fmt.Errorf("empty response from model")}
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), out); err != nil {
		a.logger.ErrorContext(ctx, "Model returned malformed JSON", log.FieldOperation, op, log.FieldError, err)
		return &core.AdapterError{Op: op, Err: fmt.Errorf("decode model output: %w", err)}
	}

	a.logger.InfoContext(ctx, "Model call completed",
		log.FieldOperation, op,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
