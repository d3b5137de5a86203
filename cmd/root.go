// Package cmd implements the mirascraper command line
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/internal/factory"
	"github.com/dealmungchi/mirascraper/internal/scraper"
	"github.com/dealmungchi/mirascraper/logger"
	"github.com/dealmungchi/mirascraper/services/cache"
	"github.com/dealmungchi/mirascraper/services/sink"
)

// Replaced by tests
var (
	newDeps    = buildDeps
	newScraper = factory.New
	newSink    = sink.New
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "mirascraper",
		Short:         "Mirascraper - Valencia property scraper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(flags.verbose)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "JSON5 config file overlaid on the environment")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug logs")

	root.AddCommand(
		newScrapeCommand(flags),
		newSyncCommand(flags),
		newRunCommand(flags),
		newEnrichCommand(flags),
	)
	return root
}

// ExecuteContext runs the command line with ctx
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Loaded configuration (sink=%s, environment=%s)", cfg.Sink, cfg.Environment)
	return cfg, nil
}

// buildDeps shares the cooldown through memcached when one is configured
func buildDeps(cfg *config.Config) scraper.Deps {
	deps := scraper.Deps{Config: cfg}
	if cfg.MemcacheAddr != "" {
		deps.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.ForCache().Debug().Str("addr", cfg.MemcacheAddr).Msg("Using memcached for cooldowns")
	}
	return deps.WithDefaults()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
