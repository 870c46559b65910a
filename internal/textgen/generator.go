// Package textgen produces the free-text part of a surf report. The backend is pluggable: any
// chat-style Completer, or a deterministic template when no AI provider is configured.
package textgen

import (
	"context"
	"errors"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

// Request is everything a generator may use to write a report.
type Request struct {
	SpotName    string
	HorizonDays int
	Summary     models.WeatherSummary
	Fingerprint models.ConditionFingerprint
	Preferences *models.Preferences
}

// Generator writes report text. Failures are *huberrors.TextGenerationFailedError.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Completer is a single-shot chat completion backend. openai.Client and googleai.Client
// implement it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// LLMGenerator sends the rendered prompt to a Completer.
type LLMGenerator struct {
	completer Completer
}

// NewLLMGenerator creates a generator backed by completer.
func NewLLMGenerator(completer Completer) *LLMGenerator {
	return &LLMGenerator{completer: completer}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)

	text, err := g.completer.Complete(ctx, system, user)
	if err != nil {
		return "", huberrors.NewTextGenerationFailedError(g.completer.Name(), err)
	}

	if text == "" {
		return "", huberrors.NewTextGenerationFailedError(g.completer.Name(), errors.New("empty completion"))
	}

	return text, nil
}

var _ Generator = (*LLMGenerator)(nil)
