package notifier

import (
	"fmt"

	"github.com/lpwatch/lpwatch/internal/types"
)

// FormatRecommendation renders the operator alert for one recommendation in
// Telegram MarkdownV2. Dynamic values are escaped; the template itself
// carries the markup.
func FormatRecommendation(position types.Position, metric types.PositionMetric, decision types.Decision) string {
	pool := escapeMarkdownV2(fmt.Sprintf("%s/%s", position.Token0Symbol, position.Token1Symbol))
	action := escapeMarkdownV2(string(decision.Action))
	justification := escapeMarkdownV2(decision.Justification)

	status := "In Range"
	statusIcon := "✅"
	if !metric.IsInRange {
		status = "Out of Range"
		statusIcon = "❌"
	}

	ilIcon := "📈"
	if metric.ImpermanentLossPercent < 0 {
		ilIcon = "🔻"
	}

	currentPrice := escapeMarkdownV2(fmt.Sprintf("%.4f", metric.CurrentPrice))
	priceLower := escapeMarkdownV2(fmt.Sprintf("%.4f", metric.PriceLower))
	priceUpper := escapeMarkdownV2(fmt.Sprintf("%.4f", metric.PriceUpper))
	il := escapeMarkdownV2(fmt.Sprintf("%.2f", metric.ImpermanentLossPercent))

	return fmt.Sprintf(
		"🚨 *LP Position Alert* 🚨\n\n"+
			"*Pool:* `%s`\n"+
			"*Token ID:* `%d`\n\n"+
			"*%s Status:* %s\n"+
			"*Current Price:* `$%s`\n"+
			"*Position Range:* `$%s \\- $%s`\n"+
			"*%s Impermanent Loss \\(IL\\):* `%s%%`\n\n"+
			"🤖 *Recommendation: %s*\n"+
			"```\n%s\n```\n\n"+
			"[View pool on Uniswap](https://info.uniswap.org/#/pools/%s)",
		pool,
		position.TokenID,
		statusIcon, status,
		currentPrice,
		priceLower, priceUpper,
		ilIcon, il,
		action,
		justification,
		position.PoolAddress,
	)
}
