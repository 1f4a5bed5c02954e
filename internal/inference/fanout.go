package inference

import (
	"context"
	"sync"
	"time"

	"multichat-backend/internal/models"
)

// FanOut dispatches one prompt to N models at once and joins on the full
// set. One outcome comes back per model, in input order, no matter which
// calls fail or which finish first. A dispatched call runs to completion;
// there is no per-call cancellation and no retry.
type FanOut struct {
	provider Provider
}

func NewFanOut(provider Provider) *FanOut {
	return &FanOut{provider: provider}
}

// RunMany assumes well-formed input; empty-list validation belongs to the
// caller's boundary.
func (f *FanOut) RunMany(ctx context.Context, modelIDs []string, messages []models.ChatMessage) []models.ModelOutcome {
	outcomes := make([]models.ModelOutcome, len(modelIDs))

	var wg sync.WaitGroup
	for i, modelID := range modelIDs {
		wg.Add(1)
		go func(slot int, modelID string) {
			defer wg.Done()

			// Latency is per call, dispatch to resolution, not from a
			// shared start.
			start := time.Now()
			content, err := f.provider.Call(ctx, modelID, messages)
			latency := time.Since(start).Seconds()

			if err != nil {
				errMsg := err.Error()
				outcomes[slot] = models.ModelOutcome{
					ModelID:        modelID,
					Content:        "",
					TokenCount:     0,
					LatencySeconds: latency,
					Error:          &errMsg,
				}
				return
			}
			outcomes[slot] = models.ModelOutcome{
				ModelID:        modelID,
				Content:        content,
				TokenCount:     EstimateTokens(content),
				LatencySeconds: latency,
			}
		}(i, modelID)
	}
	wg.Wait()

	return outcomes
}

// EstimateTokens approximates output size at four characters per token,
// rounded up. It is a display heuristic, not a tokenizer.
func EstimateTokens(content string) int {
	return (len(content) + 3) / 4
}
