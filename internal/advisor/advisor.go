/*

This package drives the recommendation protocol against the text-generation
model: deterministic few-shot prompt in, bounded generation out, tagged
output parsed into a typed decision. Every malformed outcome maps to a typed
error action instead of an error return so the scan cycle never stops on
model misbehavior.

*/

package advisor

import (
	"context"

	"github.com/lpwatch/lpwatch/internal/logger"
	"github.com/lpwatch/lpwatch/internal/types"

	"github.com/rs/zerolog"
)

const (
	maxTokens   = 2048
	temperature = 0.2

	finalAnswerOpen  = "<final_answer>"
	finalAnswerClose = "</final_answer>"
)

// Model is the text-completion capability the advisor runs against.
type Model interface {
	Complete(ctx context.Context, prompt string, maxTokens int, stop []string, temperature float64) (string, error)
}

// Advisor builds prompts and turns raw model output into typed decisions.
type Advisor struct {
	model  Model
	logger zerolog.Logger
}

// New creates an Advisor. A nil model is allowed: every invocation then
// resolves to an ERROR decision, keeping the cycle alive while the outage is
// visible in the audit trail.
func New(model Model) *Advisor {
	return &Advisor{
		model:  model,
		logger: logger.GetForComponent("advisor"),
	}
}

// Recommend invokes the model for one metric snapshot and returns the parsed
// decision. It never returns an error: model unavailability and generation
// failures are typed actions.
func (a *Advisor) Recommend(ctx context.Context, position types.Position, metric types.PositionMetric) types.Decision {
	if a.model == nil {
		return types.Decision{
			Action:        types.ActionError,
			Justification: "The recommendation model is not available.",
			RawOutput:     "",
		}
	}

	prompt := BuildPrompt(position, metric)

	raw, err := a.model.Complete(ctx, prompt, maxTokens, []string{finalAnswerClose}, temperature)
	if err != nil {
		a.logger.Error().Err(err).Int64("tokenID", position.TokenID).Msg("Model generation failed")
		return types.Decision{
			Action:        types.ActionGenerationError,
			Justification: err.Error(),
			RawOutput:     "",
		}
	}

	// Generation stops at the closing tag without emitting it; restore it so
	// the parser sees the full span and the audit trail keeps a well-formed
	// response.
	raw += finalAnswerClose

	decision := parseOutput(raw)

	a.logger.Debug().
		Int64("tokenID", position.TokenID).
		Str("action", string(decision.Action)).
		Msg("Model decision parsed")

	return decision
}
