package cli

import (
	"errors"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/hanko-seo/internal/favicon"
	"finitefield.org/hanko-seo/internal/observability"
)

func newGenerateFaviconsCmd(loadConfig ConfigLoader) *cobra.Command {
	var publicDir string

	cmd := &cobra.Command{
		Use:   "generate-favicons [from]",
		Short: "Generate favicon.ico and favicon.png from a source image",
		Long: `Scales the source image (by default the configured logo, public/assets/logo.png)
to 32x32 and writes favicon.ico and favicon.png into the public directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			source, outputDir := favicon.DefaultSource, favicon.DefaultOutputDir
			if cfg, err := loadConfig(ctx); err != nil {
				logger.Warn("using built-in favicon defaults", "err", err)
			} else {
				source, outputDir = cfg.Favicon.Source, cfg.Favicon.OutputDir
			}
			if len(args) == 1 {
				source = args[0]
			}
			if publicDir != "" {
				outputDir = publicDir
			}

			zl := zap.NewNop()
			if logger.GetLevel() == charmlog.DebugLevel {
				if dev, err := observability.NewLogger("debug", true); err == nil {
					zl = dev
				}
			}

			logger.Info("Generating favicons...", "from", source, "to", outputDir)
			gen := favicon.NewGenerator(outputDir, zl)
			res, err := gen.Generate(ctx, source)
			switch {
			case errors.Is(err, favicon.ErrSourceNotFound):
				return fmt.Errorf("given icon path %q does not exist", source)
			case errors.Is(err, favicon.ErrImagerUnavailable):
				return errors.New("image backend not available")
			case err != nil:
				return err
			}
			logger.Debug("wrote favicon", "path", res.ICO)
			logger.Debug("wrote favicon", "path", res.PNG)
			logger.Info("All favicons have been generated!")
			return nil
		},
	}
	cmd.Flags().StringVar(&publicDir, "public", "", "directory receiving favicon.ico and favicon.png")
	return cmd
}
