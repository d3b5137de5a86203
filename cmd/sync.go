package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealmungchi/mirascraper/config"
	"github.com/dealmungchi/mirascraper/internal/model"
	"github.com/dealmungchi/mirascraper/internal/store"
	"github.com/dealmungchi/mirascraper/services/sink"
)

var sinkLabels = map[string]string{
	config.SinkSupabase: "Supabase",
	config.SinkPostgres: "Postgres",
	config.SinkRedis:    "Redis",
}

func newSyncCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync FILE",
		Short: "Read a JSONL file and upsert it to the configured sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !fileExists(path) {
				return fmt.Errorf("file not found: %s", path)
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			props, err := store.ReadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d properties from %s\n", len(props), path)

			s, err := newSink(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			return upsert(cmd, cfg, s, props)
		},
	}
}

func upsert(cmd *cobra.Command, cfg *config.Config, s sink.Sink, props []model.Property) error {
	count, err := s.Upsert(commandContext(cmd), props)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Upserted %d properties to %s.\n", count, sinkLabels[cfg.Sink])
	return nil
}
