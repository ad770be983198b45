package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/folio/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing search over the site's sections to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		collections := mcpserver.LoadCollections(context.Background(), cfg, os.DirFS(cfg.SiteDir))
		if len(collections) == 0 {
			fmt.Fprintf(os.Stderr, "Warning: no section index could be loaded from %s.\n", cfg.SiteDir)
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "folio MCP server started on stdio (site=%s, sections=%d)\n", cfg.SiteDir, len(collections))

		srv := mcpserver.NewServer(collections)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
