package agent

import (
	"github.com/soyeahso/clowder/internal/domain"
)

// TokenEstimator approximates the token footprint of a message log.
// The engine never needs exact counts, only a stable trigger for
// compaction, so implementations may be cheap heuristics.
type TokenEstimator func(msgs []domain.Message) int

// toolCallOverhead approximates the per-call framing cost beyond the
// argument text itself.
const toolCallOverhead = 10

// EstimateTokens is the default estimator: roughly four characters per
// token, plus a small fixed overhead per tool call and tool result.
func EstimateTokens(msgs []domain.Message) int {
	chars := 0
	overhead := 0
	for _, m := range msgs {
		chars += len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
			overhead += toolCallOverhead
		}
		if m.Role == domain.RoleTool {
			overhead += toolCallOverhead
		}
	}
	return chars/4 + overhead
}
