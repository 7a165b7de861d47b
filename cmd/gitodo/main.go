// gitodo is a CLI for a todo collection stored as markdown documents in a
// versioned remote store, with optimistic-concurrency writes.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/example/gitodo/internal/cache"
	"github.com/example/gitodo/internal/engine"
	"github.com/example/gitodo/internal/genai"
	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/store/gitstore"
	"github.com/example/gitodo/internal/store/memstore"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "gitodo",
	Short: "Todo lists stored as markdown in a versioned remote store",
	Long: `gitodo keeps a todo collection as markdown documents with YAML
frontmatter in a version-controlled store. Every write carries the
document's version token; conflicting writes are retried with a fresh
token instead of silently clobbering remote changes.

Todos live in two partitions: open and archived. Archiving moves the
document under an archive/ directory; the path is the sole source of
truth for which partition a todo is in.`,
}

// app bundles everything a command needs after setup.
type app struct {
	cfg    *settings.Config
	state  *settings.State
	store  store.Store
	engine *engine.Engine
	cache  *cache.DB
	logger *log.Logger
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

// setup loads configuration, opens the store backend, and builds the
// engine. Commands call this inside Run.
func setup() (*app, error) {
	return setupWithNotifier(nil)
}

// setupWithNotifier is setup with an engine notifier attached, used by
// serve to bridge engine events onto the dashboard.
func setupWithNotifier(notifier engine.Notifier) (*app, error) {
	cfg, err := settings.Load(configDir)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogPath)

	state, err := settings.OpenState(configDir)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	engCfg := engine.DefaultConfig(cfg.RootFolder)
	engCfg.Logger = logger
	if notifier != nil {
		engCfg.Notifier = notifier
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		engCfg.Commits = genai.NewAnthropic(key, cfg.Model)
	} else {
		engCfg.Commits = genai.Static{}
	}

	// The snapshot cache is best-effort; a broken cache never blocks the
	// remote store.
	snapshot, err := cache.Open(cfg.CachePath)
	if err != nil {
		logger.Printf("Snapshot cache unavailable: %v", err)
		snapshot = nil
	} else {
		engCfg.Snapshot = snapshot
	}

	return &app{
		cfg:    cfg,
		state:  state,
		store:  st,
		engine: engine.New(st, state, engCfg),
		cache:  snapshot,
		logger: logger,
	}, nil
}

// openStore builds the configured store backend. The memory backend
// exists for demos and tests; git is the default.
func openStore(cfg *settings.Config, logger *log.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return memstore.New(), nil
	case "git", "":
		return gitstore.New(cfg.RepoPath, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// newLogger writes to stderr and, when a log path is configured, to a
// rotated file.
func newLogger(logPath string) *log.Logger {
	var w io.Writer = os.Stderr
	if logPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return log.New(w, "[gitodo] ", log.LstdFlags)
}

// planner returns the generation service for plans, falling back to the
// static skeleton when no API key is configured.
func planner(cfg *settings.Config) genai.Service {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return genai.NewAnthropic(key, cfg.Model)
	}
	return genai.Static{}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", settings.DefaultDir(),
		"Directory holding config.yaml and local state")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
