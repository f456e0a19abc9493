package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

var smsCmd = &cobra.Command{
	Use:   "sms",
	Short: "Exercise the SMS provider",
}

var smsSendCmd = &cobra.Command{
	Use:   "send <phone> <message...>",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Sender == nil {
			return fmt.Errorf("app not initialized")
		}

		phone, err := domain.NewPhone(args[0])
		if err != nil {
			return err
		}
		if err := app.Sender.Send(cmd.Context(), phone.String(), strings.Join(args[1:], " ")); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", phone.Masked())
		return nil
	},
}

func init() {
	smsCmd.AddCommand(smsSendCmd)
	rootCmd.AddCommand(smsCmd)
}
