package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/dashboard"
	"github.com/example/gitodo/internal/drafts"
	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the draft watcher and real-time dashboard",
	Long: `Run gitodo in the foreground: watch the drafts directory for edits
and broadcast engine activity over WebSocket.

Markdown files written to the drafts directory are saved to the remote
store through the debounced save pipeline; their names map to storage
keys under the root folder. Connected WebSocket clients receive:
- save_progress: an in-flight save changed state
- save_failed: a save exhausted its attempts
- refresh_complete: a full refetch committed

Example usage:
  gitodo serve                 # Dashboard on the configured port
  gitodo serve --port 9000     # Dashboard on a custom port

Connect with a WebSocket client:
  ws://localhost:<port>/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			cfg, err := settings.Load(configDir)
			if err != nil {
				fatalf("Error: %v\n", err)
			}
			port = cfg.DashboardPort
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})

		app, err := setupWithNotifier(dashboard.NewNotifier(server))
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer app.Close()

		if err := server.Start(); err != nil {
			fatalf("Error: failed to start dashboard: %v\n", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := app.engine.OnSettingsLoaded(ctx); err != nil {
			app.logger.Printf("Initial fetch failed: %v", err)
		}

		watcher, err := drafts.NewWatcher()
		if err != nil {
			fatalf("Error: failed to create draft watcher: %v\n", err)
		}
		if err := watcher.Start(app.cfg.DraftsDir, app.cfg.RootFolder); err != nil {
			fatalf("Error: failed to watch drafts: %v\n", err)
		}

		runner := drafts.NewRunner(watcher, app.engine, app.state, app.logger)
		go runner.Run(ctx)

		fmt.Printf("%s gitodo serving\n", ui.RenderAccent("●"))
		fmt.Printf("   Drafts: %s\n", app.cfg.DraftsDir)
		fmt.Printf("   Dashboard: ws://localhost:%d/ws\n", port)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if err := watcher.Stop(); err != nil {
			app.logger.Printf("Draft watcher stop failed: %v", err)
		}
		app.engine.Flush()
		if err := server.Stop(); err != nil {
			fatalf("Error during shutdown: %v\n", err)
		}
		fmt.Println("Stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Dashboard port (default: configured dashboard_port)")
	rootCmd.AddCommand(serveCmd)
}
