package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/partsdesk/internal/config"
)

var (
	cfgFile string
	verbose bool

	// flushLogs is replaced once loadConfig installs the configured logger.
	flushLogs = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "partsdesk",
	Short: "Tiered streaming assistant for refrigerator and dishwasher parts",
	Long: `partsdesk answers appliance parts questions over a streaming protocol.
Each question is routed through the cheapest tier that can answer it: a
response cache, a catalog fast path for part lookups and compatibility
checks, and finally a retrieval and generation pipeline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
}

func Execute() error {
	defer func() { flushLogs() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
