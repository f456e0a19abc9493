package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

var (
	memberRoles string
	memberLimit int
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Inspect members and manage roles",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members",
	Long: `List members, newest first.

Examples:
  thermae members list
  thermae members list --role staff,admin`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Members == nil {
			return fmt.Errorf("app not initialized")
		}

		filter := domain.MemberFilter{Limit: memberLimit}
		if memberRoles != "" {
			for _, part := range strings.Split(memberRoles, ",") {
				role, err := domain.ParseRole(part)
				if err != nil {
					return err
				}
				filter.Roles = append(filter.Roles, role)
			}
		}

		members, err := app.Members.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		if len(members) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No members found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPHONE\tNAME\tROLE\tJOINED")
		for _, m := range members {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				m.ID(), m.Phone().Masked(), m.Name(), m.Role(), m.CreatedAt().Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var membersRoleCmd = &cobra.Command{
	Use:   "role <member-id> <member|staff|admin>",
	Short: "Change a member's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Members == nil {
			return fmt.Errorf("app not initialized")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid member ID: %w", err)
		}
		role, err := domain.ParseRole(args[1])
		if err != nil {
			return err
		}

		member, err := app.Members.SetRole(cmd.Context(), id, role)
		if err != nil {
			return fmt.Errorf("failed to change role: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", member.ID(), member.Role())
		return nil
	},
}

func init() {
	membersListCmd.Flags().StringVar(&memberRoles, "role", "", "comma-separated roles to include")
	membersListCmd.Flags().IntVar(&memberLimit, "limit", 100, "maximum members to show")

	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersRoleCmd)
	rootCmd.AddCommand(membersCmd)
}
