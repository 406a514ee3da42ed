package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

func newLogsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List check-in logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs, err := newClient().Logs(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			printLogs(cmd.OutOrStdout(), logs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n entries")
	return cmd
}

func printLogs(w io.Writer, logs []ruler.LogEntry) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No check-ins yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tEMOTIONS\tINTENSITY\tMODE\tAFTER")
	for _, e := range logs {
		names := make([]string, len(e.Emotions))
		for i, em := range e.Emotions {
			names[i] = em.Name
		}
		mode := "quick"
		if e.IsFullFlow {
			mode = "full"
		}
		after := e.PostMood
		if after == "" {
			after = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.Timestamp, strings.Join(names, "、"), e.Intensity, mode, after)
	}
	_ = tw.Flush()
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <timestamp>",
		Short: "Delete the log entry with the given timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteLog(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <timestamp> [file|-]",
		Short: "Replace the expression text of a log entry",
		Long: `Replace the expression text of a log entry. The new text is read
from a file, or from stdin when no file or "-" is given.

Examples:
  imx edit 2024-06-01T09:00:00.000Z rewrite.txt
  echo "今天其實還好" | imx edit 2024-06-01T09:00:00.000Z`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			entry, err := newClient().EditExpression(cmd.Context(), args[0], strings.TrimRight(text, "\n"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", entry.Timestamp)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every log entry as JSON or CSV",
		Long: `Export every log entry as JSON or CSV.

With -o the file is written to the given path; "-o ." uses the
server-suggested file name in the current directory. Without -o the
export goes to stdout.

Examples:
  imx export --format csv -o .
  imx export > backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				_, err := newClient().Export(cmd.Context(), format, cmd.OutOrStdout())
				return err
			}
			var buf strings.Builder
			name, err := newClient().Export(cmd.Context(), format, &buf)
			if err != nil {
				return err
			}
			path := output
			if output == "." && name != "" {
				path = name
			}
			if err := os.WriteFile(path, []byte(buf.String()), 0o600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format (json or csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("." for the suggested name)`)
	return cmd
}
