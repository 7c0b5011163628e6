package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

const insightsSystemPrompt = "You are a high-performance productivity assistant."

type dailyInsightsArgs struct {
	Focus    string `json:"focus"`
	Blocker  string `json:"blocker"`
	BoldMove string `json:"bold_move"`
}

// dailyInsightsHandler parses the completion line by line instead of as
// JSON; the model often answers with plain lines here.
func dailyInsightsHandler(d Deps) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (json.RawMessage, error) {
		var args dailyInsightsArgs
		if err := decodeArguments(inv, &args); err != nil {
			return nil, err
		}

		text, err := d.complete(ctx, insightsSystemPrompt, buildInsightsPrompt(args))
		if err != nil {
			return nil, err
		}

		return json.Marshal(domain.DailyInsightsResult{
			Insights: normalize.SplitLines(text),
			Focus:    args.Focus,
			Blocker:  args.Blocker,
			BoldMove: args.BoldMove,
		})
	}
}

func buildInsightsPrompt(args dailyInsightsArgs) string {
	return fmt.Sprintf(`Based on the following:

Focus: %s
Blocker: %s
Bold Move: %s

Give short, direct insights the user can act on today.

Respond ONLY with raw JSON:
{
  "insights": ["Insight 1", "Insight 2", "Insight 3"]
}

No markdown, no bullet points, no explanation.`, args.Focus, args.Blocker, args.BoldMove)
}
