package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

// Ask command flags
var (
	askAssistant string
	askCaller    string
	askJSON      bool

	insightsFocus    string
	insightsBlocker  string
	insightsBoldMove string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run the assistant with one tool",
	Long: `Open a thread, post a message and run the assistant with the tool forced.
An assistant is created when --assistant is not given.`,
}

var askInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Get daily insights for a main task",
	Long: `Get daily insights for a main task, a blocker and a bold move.

Examples:
  unfiltered ask insights --focus "Ship the release" --blocker "Flaky tests" --bold-move "Cut scope"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(insightsFocus) == "" || strings.TrimSpace(insightsBlocker) == "" || strings.TrimSpace(insightsBoldMove) == "" {
			return fmt.Errorf("--focus, --blocker and --bold-move are required")
		}
		message := fmt.Sprintf("Main Task: %s\nBlocker: %s\nBold Move: %s", insightsFocus, insightsBlocker, insightsBoldMove)
		result, err := ask(cmd, domain.ToolGenerateDailyInsights, message)
		if err != nil {
			return err
		}
		if askJSON {
			return printJSON(cmd.OutOrStdout(), result.Output)
		}

		var insights domain.DailyInsightsResult
		if err := result.Decode(&insights); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedToolOutput, err)
		}
		for i, line := range normalize.CleanInsights(insights.Insights) {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, line)
		}
		return nil
	},
}

var askDecideCmd = &cobra.Command{
	Use:   "decide <dilemma>",
	Short: "Analyze a decision",
	Long: `Analyze a dilemma and print a recommendation.

Examples:
  unfiltered ask decide "Should I accept the offer in Berlin?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := ask(cmd, domain.ToolAnalyzeDecision, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if askJSON {
			return printJSON(cmd.OutOrStdout(), result.Output)
		}

		var decision domain.DecisionResult
		if err := result.Decode(&decision); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedToolOutput, err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recommendation: %s\n", decision.Recommendation)
		fmt.Fprintf(out, "Confidence: %s\n", normalize.DisplayLabel(string(decision.Confidence)))
		for _, r := range decision.Reasoning {
			fmt.Fprintf(out, "  - %s\n", r)
		}
		return nil
	},
}

var askAssessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess progress for the current month",
	Long: `Assess this month's calendar events, decisions and priorities stored for
the caller and print suggestions.

Examples:
  unfiltered ask assess --caller user_1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := ask(cmd, domain.ToolAssessProgressAndSuggest, "How am I progressing this month?")
		if err != nil {
			return err
		}
		if askJSON {
			return printJSON(cmd.OutOrStdout(), result.Output)
		}

		var progress domain.ProgressAssessmentResult
		if err := result.Decode(&progress); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedToolOutput, err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, progress.Assessment)
		printSection(out, "Achievements", progress.Achievements)
		printSection(out, "Improvements", progress.Improvements)
		printSection(out, "Recommendations", progress.Recommendations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.AddCommand(askInsightsCmd, askDecideCmd, askAssessCmd)

	askCmd.PersistentFlags().StringVar(&askAssistant, "assistant", "", "assistant id (default: create one)")
	askCmd.PersistentFlags().StringVar(&askCaller, "caller", "", "caller id whose records the tools read")
	askCmd.PersistentFlags().BoolVarP(&askJSON, "json", "j", false, "Output as JSON")

	askInsightsCmd.Flags().StringVar(&insightsFocus, "focus", "", "the one thing that must get done today")
	askInsightsCmd.Flags().StringVar(&insightsBlocker, "blocker", "", "what is blocking you")
	askInsightsCmd.Flags().StringVar(&insightsBoldMove, "bold-move", "", "the action that scares you")
}

// ask runs the assistant on a fresh thread with tool forced.
func ask(cmd *cobra.Command, tool, message string) (*domain.RunResult, error) {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	assistantID := askAssistant
	if assistantID == "" {
		if assistantID, err = a.svc.CreateAssistant(ctx, ""); err != nil {
			return nil, err
		}
	}

	threadID, err := a.svc.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.svc.AddMessage(ctx, threadID, message); err != nil {
		return nil, err
	}
	return a.svc.RunAssistant(ctx, domain.RunAssistantRequest{
		AssistantID: assistantID,
		ThreadID:    threadID,
		CallerID:    askCaller,
		Tool:        tool,
	})
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSection(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
