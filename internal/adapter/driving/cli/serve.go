package cli

import "github.com/spf13/cobra"

func serveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API and keep the domain cache warm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Server.Run(cmd.Context())
		},
	}
}
