// Package cli is the command-line driving adapter.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// Server runs the HTTP API until ctx is canceled.
type Server interface {
	Run(ctx context.Context) error
}

// App carries the services the commands operate on.
type App struct {
	Stats       *application.StatisticsService
	Downloads   *application.DownloadService
	Exporter    *application.Exporter
	Credentials *application.CredentialService
	Settings    driven.SettingsStore
	Cache       driven.DomainCache
	Server      Server // nil disables the serve command.
}

// NewRootCommand builds the stadatax command tree over app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "stadatax",
		Short:         "Browse and export BPS statistics tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		domainsCmd(app),
		cacheCmd(app),
		staticCmd(app),
		dynamicCmd(app),
		tokenCmd(app),
		configCmd(app),
	)
	if app.Server != nil {
		root.AddCommand(serveCmd(app))
	}
	return root
}

// Describe renders err for the terminal. Statistics-layer errors get the hint
// of their category on a second line.
func Describe(err error) string {
	var domainErr *model.Error
	if !errors.As(err, &domainErr) {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return fmt.Sprintf("error: %v\nhint: or export STADATAX_TOKEN instead of storing it", err)
		}
		return fmt.Sprintf("error: %v", err)
	}
	hint := domainErr.Kind.Category().Hint()
	if domainErr.Kind == model.KindDestinationExists {
		hint = "use --force to overwrite"
	}
	return fmt.Sprintf("error: %v\nhint: %s", err, hint)
}
