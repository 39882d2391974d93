package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// settingKeys maps user-facing names to stored setting keys.
var settingKeys = map[string]string{
	"download-path": model.SettingDownloadPath,
}

func configCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change stored settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "get [key]",
		Short:     "Print a setting",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"download-path"},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settingKey(args[0])
			if err != nil {
				return err
			}
			if key == model.SettingDownloadPath {
				dir, err := app.Downloads.DownloadDir(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			}
			v, err := app.Settings.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key] [value]",
		Short: "Change a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settingKey(args[0])
			if err != nil {
				return err
			}
			value := args[1]
			if key == model.SettingDownloadPath {
				if value, err = filepath.Abs(value); err != nil {
					return err
				}
				info, err := os.Stat(value)
				if err != nil || !info.IsDir() {
					return fmt.Errorf("%s is not a directory", value)
				}
			}
			if err := app.Settings.Set(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset [key]",
		Short: "Restore a setting's default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settingKey(args[0])
			if err != nil {
				return err
			}
			return app.Settings.Delete(cmd.Context(), key)
		},
	})
	return cmd
}

func settingKey(name string) (string, error) {
	key, ok := settingKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown setting %q (known: download-path)", name)
	}
	return key, nil
}
