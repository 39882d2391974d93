package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func tokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the BPS WebAPI token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store a token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token given")
				}
				token = strings.TrimSpace(line)
			}
			if err := app.Credentials.SetToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Credentials.ClearToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token cleared")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active token, masked, and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.Credentials.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !st.Configured():
				fmt.Fprintln(out, "No token configured")
			case st.UpdatedAt.IsZero():
				fmt.Fprintf(out, "%s (%s)\n", st.Masked, st.Source)
			default:
				fmt.Fprintf(out, "%s (%s, updated %s)\n", st.Masked, st.Source, st.UpdatedAt.Format(time.DateTime))
			}
			return nil
		},
	})
	return cmd
}
