package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

var (
	checkInMember string
	checkInSince  time.Duration
	checkInLimit  int
)

var checkInsCmd = &cobra.Command{
	Use:     "checkins",
	Aliases: []string{"checkin"},
	Short:   "Review and record club visits",
}

var checkInsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent check-ins",
	Long: `List check-ins, newest first.

Examples:
  thermae checkins list --since 24h
  thermae checkins list --member 0b6e...`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.CheckIns == nil {
			return fmt.Errorf("app not initialized")
		}

		filter := domain.CheckInFilter{Limit: checkInLimit}
		if checkInMember != "" {
			id, err := uuid.Parse(checkInMember)
			if err != nil {
				return fmt.Errorf("invalid member ID: %w", err)
			}
			filter.MemberID = id
		}
		if checkInSince > 0 {
			filter.Since = time.Now().Add(-checkInSince)
		}

		checkIns, err := app.CheckIns.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list check-ins: %w", err)
		}
		if len(checkIns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No check-ins found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tMEMBER\tMETHOD")
		for _, c := range checkIns {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				c.CheckedInAt.Local().Format("2006-01-02 15:04"), c.MemberID, c.Method)
		}
		return w.Flush()
	},
}

var checkInsRecordCmd = &cobra.Command{
	Use:   "record <member-id|qr-payload>",
	Short: "Record a visit at the front desk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.CheckIns == nil {
			return fmt.Errorf("app not initialized")
		}

		var (
			checkIn *domain.CheckIn
			err     error
		)
		if id, parseErr := uuid.Parse(args[0]); parseErr == nil {
			checkIn, err = app.CheckIns.Record(cmd.Context(), id, domain.MethodManual, uuid.Nil)
		} else {
			checkIn, err = app.CheckIns.RecordByPayload(cmd.Context(), args[0], uuid.Nil)
		}
		if err != nil {
			return fmt.Errorf("failed to record check-in: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Checked in %s (%s)\n", checkIn.MemberID, checkIn.Method)
		return nil
	},
}

func init() {
	checkInsListCmd.Flags().StringVar(&checkInMember, "member", "", "only this member's visits")
	checkInsListCmd.Flags().DurationVar(&checkInSince, "since", 0, "only visits within this window, e.g. 24h")
	checkInsListCmd.Flags().IntVar(&checkInLimit, "limit", 50, "maximum visits to show")

	checkInsCmd.AddCommand(checkInsListCmd)
	checkInsCmd.AddCommand(checkInsRecordCmd)
	rootCmd.AddCommand(checkInsCmd)
}
