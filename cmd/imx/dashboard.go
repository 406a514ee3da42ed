package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/imxin/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the resilience dashboard",
		Long: `Show the resilience dashboard: daily scores, the 30-day heatmap,
intensity trend, emotional granularity and strategy diversity.

Examples:
  # Live view, refreshed every 10s
  imx dashboard --interval 10s

  # Print once and exit
  imx dashboard --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()
			if once {
				d, err := c.Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dashboard.RenderStatic(d))
				return nil
			}
			p := tea.NewProgram(dashboard.NewModel(c, interval), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "render once and exit")
	return cmd
}
