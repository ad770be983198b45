package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Serve and maintain a personal blog, project gallery and music grid",
	Long: `Folio serves a small personal website built from JSON content indexes:
a paged blog, incrementally loaded project and music grids, category and
text filters, and a "new since your last visit" notice. It also generates
those indexes from markdown front matter and imports a Discogs collection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		logging.Init(os.Stderr, level)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
