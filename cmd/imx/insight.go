package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/imxin/internal/insight"
)

func newInsightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insight [timestamp]",
		Short: "Ask for a reflection on a log entry",
		Long: `Ask for a reflection on a log entry. Without a timestamp the newest
entry is used. When no model is configured or reachable a quadrant-based
reflection is returned instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := ""
			if len(args) == 1 {
				ts = args[0]
			}
			res, err := newClient().Insight(cmd.Context(), ts)
			if err != nil {
				return err
			}
			printInsight(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printInsight(w io.Writer, res insight.Result) {
	in := res.Insight
	fmt.Fprintf(w, "%s\n", in.Summary)
	for _, p := range in.UnderlyingPatterns {
		fmt.Fprintf(w, "  • %s\n", p)
	}
	if in.SuggestedAction != "" {
		fmt.Fprintf(w, "\n→ %s\n", in.SuggestedAction)
	}
	if in.EmpatheticQuote != "" {
		fmt.Fprintf(w, "\n「%s」\n", in.EmpatheticQuote)
	}
	for _, extra := range []string{in.MemoryTrigger, in.PhysicalContext, in.ColorTheory, res.Correlation} {
		if extra != "" {
			fmt.Fprintf(w, "\n%s\n", extra)
		}
	}
	if res.Fallback {
		fmt.Fprintf(w, "\n(offline reflection: %s)\n", res.Reason)
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the history summary line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newClient().Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
