package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/ziadkadry99/partsdesk/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing catalog
search, part lookup, compatibility checks and the full resolver to agents.
Logs go to stderr; stdout carries the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := buildStack(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		deps := mcpserver.Deps{
			Catalog:  s.catalog,
			Compat:   s.compat,
			Resolver: s.router,
		}
		if s.vectors.Count() > 0 {
			deps.Vectors = s.vectors
		}

		mcpserver.Version = Version
		s.logger.Info("partsdesk MCP server started on stdio",
			zap.Int("documents", s.vectors.Count()),
			zap.String("generator", s.generator))

		return mcpserver.NewServer(deps).Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
