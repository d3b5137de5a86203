package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCommand(flags *globalFlags) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape and sync in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			// Fail on missing sink credentials before spending time scraping
			s, err := newSink(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			props, _, err := scrapeToFile(cmd, cfg, opts)
			if err != nil || len(props) == 0 {
				return err
			}
			return upsert(cmd, cfg, s, props)
		},
	}
	opts.bind(cmd)
	return cmd
}
