package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kontiki/avisos/server"
)

// notifyCmd runs one dispatch pass from the terminal, the CLI twin of the
// daily scheduled job and the manual trigger endpoint.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run one notification dispatch pass and exit",
	Long: `Walks every notice tier (D-30, D-15, D-7, D-1 and D-0) for today's
date and sends the matching WhatsApp template to each due client, exactly as
the daily scheduled job does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotify(cmd)
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command) error {
	result, err := server.RunNotifications(serverConfig(), isDevEnv)
	if err != nil {
		return err
	}

	if len(result.Sent) == 0 {
		cmd.Printf("%s no extinguishers due on any tier for %s\n", yellow("note:"), result.Today)
		return nil
	}

	cmd.Printf("Dispatch for %s: %d notification(s)\n", result.Today, len(result.Sent))
	for _, delivery := range result.Sent {
		if delivery.OK {
			cmd.Printf("  sent %s (D-%d) to %s\n", delivery.Template, delivery.Offset, delivery.Tel)
			continue
		}
		cmd.Printf("  %s %s (D-%d) to %s: %s\n",
			red("failed"), delivery.Template, delivery.Offset, delivery.Tel, delivery.Error)
	}
	return nil
}
