package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/discogs"
	"github.com/ziadkadry99/folio/internal/indexgen"
	"github.com/ziadkadry99/folio/internal/progress"
)

var discogsCmd = &cobra.Command{
	Use:   "discogs",
	Short: "Import a Discogs record collection as JSON",
	Long: `Fetches every release in a Discogs user's collection, page by page and
within the API rate limit, and writes them to the configured output file.
Set FOLIO_DISCOGS__TOKEN to authenticate for a higher limit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if u, _ := cmd.Flags().GetString("username"); u != "" {
			cfg.Discogs.Username = u
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = cfg.SitePath(cfg.Discogs.Output)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := discogs.NewClient(discogs.Options{
			UserAgent:         "folio/" + Version,
			Token:             cfg.Discogs.Token,
			PerPage:           cfg.Discogs.PerPage,
			RequestsPerMinute: cfg.Discogs.RequestsPerMinute,
			Reporter:          progress.NewReporter("Fetching collection"),
		})
		releases, err := client.Collection(ctx, cfg.Discogs.Username)
		if err != nil {
			return fmt.Errorf("fetching collection: %w", err)
		}
		if err := indexgen.WriteJSON(output, releases); err != nil {
			return err
		}
		fmt.Printf("Wrote %d releases to %s\n", len(releases), output)
		return nil
	},
}

func init() {
	discogsCmd.Flags().String("username", "", "Discogs username (overrides config)")
	discogsCmd.Flags().String("output", "", "output file (overrides config)")
	rootCmd.AddCommand(discogsCmd)
}
