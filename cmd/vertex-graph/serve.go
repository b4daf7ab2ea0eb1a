package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/vertex-graph/pkg/config"
	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/engine"
	"github.com/ritzau/vertex-graph/pkg/layout"
	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/metrics"
	"github.com/ritzau/vertex-graph/pkg/storage"
	"github.com/ritzau/vertex-graph/pkg/watcher"
	"github.com/ritzau/vertex-graph/pkg/web"
)

// Debounce settings for data directory changes.
const (
	quietPeriod = 300 * time.Millisecond
	maxWait     = 2 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the overview and reference graphs over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func addServeFlags(cmd *cobra.Command) {
	defaults := config.Defaults()
	f := cmd.Flags()
	f.Int("port", defaults["port"].(int), "Port for the web server")
	f.Bool("open", defaults["open"].(bool), "Open the browser once the server is up")
	f.Bool("watch", defaults["watch"].(bool), "Reload when the data directory changes")
	f.Int("width", defaults["width"].(int), "Initial viewport width")
	f.Int("height", defaults["height"].(int), "Initial viewport height")
	f.Int("fps", defaults["fps"].(int), "Frames per second of the render loop")
	f.Int("counts-concurrency", defaults["counts-concurrency"].(int), "Concurrent counts fetches per view")
	f.String("vertex", "", "Vertex to open initially (defaults to the last opened one)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg.StateDir)
	if err != nil {
		return err
	}
	defer closeStore()

	current, _ := cmd.Flags().GetString("vertex")
	if current == "" {
		current = lastOpenedVertex(store)
	}

	opener := datasource.NewSystemOpener()
	server, err := web.NewServer(web.Options{
		Source:            datasource.NewLocalFS(cfg.DataDir),
		Opener:            opener,
		Store:             store,
		Metrics:           metrics.New(),
		Viewport:          layout.Viewport{Width: float64(cfg.Width), Height: float64(cfg.Height)},
		FPS:               cfg.FPS,
		CountsConcurrency: cfg.CountsConcurrency,
		CurrentVertexID:   current,
	})
	if err != nil {
		return err
	}

	// Serve right away; views report loading until the data is in
	go func() {
		start := time.Now()
		if err := server.Reload(ctx); err != nil {
			logging.Error("initial load failed", "data", cfg.DataDir, "error", err)
			return
		}
		logging.Info("data loaded", "data", cfg.DataDir, "durationMs", time.Since(start).Milliseconds())
	}()
	go server.Run(ctx)

	if cfg.Watch {
		if err := startWatching(ctx, server, cfg.DataDir); err != nil {
			logging.Warn("not watching data directory", "error", err)
		}
	}

	if cfg.OpenBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		time.AfterFunc(500*time.Millisecond, func() {
			logging.Info("opening browser", "url", url)
			if err := opener.OpenPath(ctx, url); err != nil {
				logging.Warn("failed to open browser", "error", err)
			}
		})
	}

	return server.Start(ctx, cfg.Port)
}

// openStore opens the persisted state store, or an in-memory one without a state dir.
func openStore(dir string) (storage.Store, func(), error) {
	if dir == "" {
		return storage.NewMemoryStore(), func() {}, nil
	}
	store, err := storage.OpenBadger(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logging.Error("failed to close state store", "error", err)
		}
	}, nil
}

// lastOpenedVertex returns the vertex of the stored view mode, if any.
func lastOpenedVertex(store storage.Store) string {
	raw, err := store.Get(storage.KeyViewMode)
	if errors.Is(err, storage.ErrNotFound) {
		return ""
	}
	if err != nil {
		logging.Warn("failed to read view mode", "error", err)
		return ""
	}
	var mode engine.ViewMode
	if err := json.Unmarshal([]byte(raw), &mode); err != nil {
		logging.Warn("ignoring corrupt view mode", "error", err)
		return ""
	}
	return mode.VertexID
}

func startWatching(ctx context.Context, server *web.Server, dataDir string) error {
	fw, err := watcher.NewFileWatcher(dataDir)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	debouncer := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)
	go server.Watch(ctx, debouncer.Output())
	return nil
}
