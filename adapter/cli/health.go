package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/thermae/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database, cache and broker connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		report := app.Health.Check(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status: %s\n", report.Status)
		for _, name := range app.Health.Names() {
			result := report.Checks[name]
			fmt.Fprintf(out, "  %-10s %s", name, result.Status)
			if result.Message != "" && (verbose || result.Status != observability.HealthStatusHealthy) {
				fmt.Fprintf(out, " (%s)", result.Message)
			}
			fmt.Fprintln(out)
		}

		if report.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("service is unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
