// Package main implements imx, the command-line companion to imxind.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/imxin/internal/client"
)

var (
	// serverURL is the base URL of the imxind HTTP server
	serverURL string
	// timeout bounds each request
	timeout time.Duration
	// version information
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imx",
		Short: "CLI for the imxin daemon",
		Long: `imx talks to a running imxind over its loopback API.
It lists, edits and exports check-in logs, asks for reflections and
shows the resilience dashboard.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", client.DefaultURL, "imxind server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newDeleteCmd(),
		newEditCmd(),
		newExportCmd(),
		newInsightCmd(),
		newSummaryCmd(),
		newScrubCmd(),
		newDashboardCmd(),
	)
	return root
}

func newClient() *client.Client {
	return client.New(serverURL, timeout)
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check imxind health",
		Long: `Check the health status of the imxind HTTP server.

Examples:
  imx health
  imx health --server http://127.0.0.1:9471`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newClient().Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", h.Status)
			if h.Version != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", h.Version)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current check-in step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newClient().FlowState(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Step:      %s\n", s.Draft.Step)
			if len(s.Draft.SelectedQuadrants) > 0 {
				qs := make([]string, len(s.Draft.SelectedQuadrants))
				for i, q := range s.Draft.SelectedQuadrants {
					qs[i] = string(q)
				}
				fmt.Fprintf(w, "Quadrants: %s\n", strings.Join(qs, ", "))
			}
			fmt.Fprintf(w, "Intensity: %d\n", s.Draft.EmotionIntensity)
			if s.Draft.IsFullFlow {
				fmt.Fprintln(w, "Mode:      full")
			} else {
				fmt.Fprintln(w, "Mode:      quick")
			}
			if s.ShowResumePrompt {
				fmt.Fprintf(w, "A saved check-in at %s is waiting to be resumed.\n", s.PendingStep)
			}
			if s.CanGoBack {
				fmt.Fprintln(w, "Back is available from this step.")
			}
			if s.CanUpgrade {
				fmt.Fprintln(w, "The last quick check-in can still be extended.")
			}
			return nil
		},
	}
}

func newScrubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrub [file]",
		Short: "Redact personal data from a file or stdin",
		Long: `Redact personal data from a file or stdin using imxind's scrubber.

Examples:
  # Scrub a file
  imx scrub journal.txt

  # Scrub from stdin
  cat notes.md | imx scrub -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			resp, err := newClient().Scrub(cmd.Context(), content)
			if err != nil {
				return fmt.Errorf("scrub failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp.Content)
			if resp.FindingsCount > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n[imx] redacted %d item(s)\n", resp.FindingsCount)
			}
			return nil
		},
	}
}

// readInput reads args[0], or stdin when no file or "-" is given.
func readInput(stdin io.Reader, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("input is empty")
	}
	return string(data), nil
}
