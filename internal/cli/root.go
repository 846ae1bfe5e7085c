package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gompdf/pagedit/internal/config"
	"github.com/gompdf/pagedit/pkg/api"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. The main
// package calls it with values injected through ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the pagedit CLI. The logger and the loaded settings are
// attached to the command context before any subcommand runs.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "pagedit",
		Short:        "pagedit reflows paginated block documents",
		Long:         `pagedit keeps block documents split into fixed-size pages: it reflows saved documents, exports them to PDF, imports other formats and serves an HTTP API.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("PAGEDIT_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			level := charmlog.InfoLevel
			if verbose || cfg.Debug {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("pagedit %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML settings file (default $PAGEDIT_CONFIG)")

	root.AddCommand(newReflowCmd())
	root.AddCommand(newPDFCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newServeCmd())

	return root
}

// newEditor builds an editor from the settings and logger in ctx.
// Passes are flushed explicitly, so the frame timer is disabled.
func newEditor(ctx context.Context) (*api.Editor, error) {
	opts, err := configFromContext(ctx).Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, api.WithFrameInterval(0), api.WithLogger(loggerFromContext(ctx)))
	return api.New(opts...), nil
}
