package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kontiki/avisos/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start an avisos server",
	Long: `The avisos server exposes the client/extinguisher API, the
spreadsheet importer, the expirations report and the WhatsApp notification
scheduler.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
