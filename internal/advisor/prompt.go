package advisor

import (
	"fmt"

	"github.com/lpwatch/lpwatch/internal/types"
)

// The prompt is a fixed few-shot ChatML template: a system contract, one
// worked example, then the real position. Determinism matters — two
// identical metrics must produce the identical prompt so decisions are
// reproducible at the given sampling temperature.
const promptHeader = `<|im_start|>system
You are an expert DeFi analyst. Your process is:
1. First, reason CONCISELY about the position inside <thinking> tags.
2. Then, provide your final recommendation as a JSON object inside <final_answer> tags.

**Constraint:** The <final_answer> tag and its JSON content MUST be the last thing in your response.<|im_end|>
<|im_start|>user
Analyze the following position:
- Pool: WBTC/WETH
- Price range: 15.5000 - 18.5000
- Current price: 19.2000
- Status: Out of Range
- Impermanent Loss (IL): -2.50%

**Your Task:**
Respond with a JSON object containing "action" and "justification".<|im_end|>
<|im_start|>assistant
<thinking>
The current price is above the upper bound of the range. The position is not earning fees and carries an impermanent loss of 2.5%. A rebalance is needed to return to the active range.
</thinking>
<final_answer>
{
"action": "REBALANCE",
"justification": "The current price has moved above the upper bound and the position carries an IL of -2.5%. Rebalancing is recommended to resume fee generation."
}
</final_answer><|im_end|>
`

// BuildPrompt renders the deterministic prompt for one metric snapshot.
func BuildPrompt(position types.Position, metric types.PositionMetric) string {
	status := "In Range"
	if !metric.IsInRange {
		status = "Out of Range"
	}

	return promptHeader + fmt.Sprintf(`<|im_start|>user
Perfect. Now analyze this new position:
- Pool: %s/%s
- Price range: %.4f - %.4f
- Current price: %.4f
- Status: %s
- Impermanent Loss (IL): %.2f%%

**Your Task:**
Respond with a JSON object containing "action" and "justification".<|im_end|>
<|im_start|>assistant
`,
		position.Token0Symbol, position.Token1Symbol,
		metric.PriceLower, metric.PriceUpper,
		metric.CurrentPrice,
		status,
		metric.ImpermanentLossPercent,
	)
}
