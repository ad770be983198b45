package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site over HTTP",
	Long: `Starts the folio web server: section pages, the JSON API, theme switching
and live reload of index files as they change on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("allow-all", false, "allow all CORS origins")
	serveCmd.Flags().Bool("no-watch", false, "do not reload indexes when they change")
	serveCmd.Flags().Bool("open", false, "open the site in a browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all")
	noWatch, _ := cmd.Flags().GetBool("no-watch")
	open, _ := cmd.Flags().GetBool("open")

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database *db.DB
	if cfg.Tracker.Backend == config.TrackerSQLite {
		database, err = openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
	}

	srv, err := server.New(server.Config{Port: cfg.Port, AllowAll: allowAll}, cfg, database)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Load(ctx); err != nil {
		// Broken sections render their error inline; the rest still serve.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if !noWatch {
		go func() {
			if err := srv.Watch(ctx); err != nil {
				logging.Error("watching indexes", "err", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	fmt.Fprintf(os.Stderr, "folio %s serving %s at %s\n", Version, cfg.SiteDir, url)
	fmt.Fprintf(os.Stderr, "  Sections: %d\n", len(cfg.Sections))
	fmt.Fprintf(os.Stderr, "  Unread tracking: %s\n", cfg.Tracker.Backend)
	if open {
		openBrowser(url)
	}

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
