package cli

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"finitefield.org/hanko-seo/internal/config"
)

// ConfigLoader loads the runtime configuration used for command defaults.
type ConfigLoader func(ctx context.Context) (config.Config, error)

// Options customises the command tree. Zero values use the process
// environment and stderr.
type Options struct {
	Stderr     io.Writer
	LoadConfig ConfigLoader
}

// NewRootCommand builds the seo command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = func(ctx context.Context) (config.Config, error) {
			return config.Load(ctx, config.WithSecretResolver(config.NewLocalSecrets("")))
		}
	}

	var verbose bool
	root := &cobra.Command{
		Use:           "seo",
		Short:         "Tools for the site's SEO assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(opts.Stderr, level)))
		},
	}
	root.SetErr(opts.Stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newGenerateFaviconsCmd(opts.LoadConfig))
	return root
}

// Execute runs the command tree with os.Args. The error, if any, has already
// been logged.
func Execute(ctx context.Context) error {
	err := NewRootCommand(Options{}).ExecuteContext(ctx)
	if err != nil {
		newLogger(os.Stderr, charmlog.InfoLevel).Error(err.Error())
	}
	return err
}
