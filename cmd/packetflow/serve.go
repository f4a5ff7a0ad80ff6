package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"packetflow/internal/handler"
	"packetflow/internal/hub"
	"packetflow/internal/service"
	"packetflow/internal/watcher"
)

//go:embed web/*
var webFS embed.FS

type serveOptions struct {
	addr     string
	open     bool
	topology string
	watch    bool
	db       string
	noRecord bool
	fps      int
}

func newServeCmd(c *cli) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and serve the viewer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.apply(cmd, c)
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "HTTP listen address (default from config, :3000)")
	f.BoolVar(&opts.open, "open", false, "open the viewer in the default browser")
	f.StringVar(&opts.topology, "topology", "", "topology file (.yaml or .json)")
	f.BoolVar(&opts.watch, "watch", false, "reload the topology file when it changes")
	f.StringVar(&opts.db, "db", "", "SQLite delivery log path")
	f.BoolVar(&opts.noRecord, "no-record", false, "disable the delivery log")
	f.IntVar(&opts.fps, "fps", 0, "frames per second")
	return cmd
}

// apply copies the flags the user set over the loaded config
func (o *serveOptions) apply(cmd *cobra.Command, c *cli) {
	f := cmd.Flags()
	if f.Changed("addr") {
		c.cfg.Server.Addr = o.addr
	}
	if f.Changed("open") {
		c.cfg.Server.OpenBrowser = o.open
	}
	if f.Changed("topology") {
		c.cfg.Topology.Path = o.topology
	}
	if f.Changed("watch") {
		c.cfg.Topology.Watch = o.watch
	}
	if f.Changed("db") {
		c.cfg.Recorder.Path = o.db
	}
	if o.noRecord {
		c.cfg.Recorder.Enabled = false
	}
	if f.Changed("fps") {
		c.cfg.Server.FPS = o.fps
	}
}

func serve(ctx context.Context, c *cli) error {
	cfg, logger := c.cfg, c.logger

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	goRun := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(name+" stopped", zap.Error(err))
			}
		}()
	}

	// SSE hub fed from the event bus
	sseHub := hub.New(logger)
	goRun("hub", func() error {
		sseHub.Run(ctx)
		return nil
	})
	eventChan := make(chan service.Event, 256)
	a.bus.Subscribe(eventChan)
	defer a.bus.Unsubscribe(eventChan)
	goRun("event bridge", func() error {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(event)
			case <-ctx.Done():
				return nil
			}
		}
	})

	goRun("runner", func() error { return a.runner.Run(ctx) })

	if cfg.Topology.Watch && cfg.Topology.Path != "" {
		w := watcher.New(cfg.Topology.Path, a.packetFlow.SetTopology, logger).
			WithDebounce(cfg.Topology.Debounce.Duration())
		goRun("watcher", func() error { return w.Watch(ctx) })
	}

	if a.repo != nil {
		goRun("flusher", func() error {
			return flushEvery(ctx, a, cfg.Recorder.FlushInterval.Duration(), logger)
		})
	}

	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		return fmt.Errorf("embedded web content: %w", err)
	}
	router := handler.NewRouter(
		handler.NewSketchHandler(a.runner, logger),
		handler.NewTopologyHandler(a.packetFlow, logger),
		sseHub,
		http.FileServer(http.FS(webContent)),
	)

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	url := viewerURL(listener.Addr())

	// No WriteTimeout: /events streams for as long as the client stays.
	server := &http.Server{
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("url", url))
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.Server.OpenBrowser {
		if err := browser.OpenURL(url); err != nil {
			logger.Warn("failed to open browser", zap.Error(err))
		}
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	cancel()
	wg.Wait()
	logger.Info("server stopped", zap.Int64("frames", a.runner.Frame()))
	return nil
}

// flushEvery writes buffered deliveries on a fixed interval until ctx ends
func flushEvery(ctx context.Context, a *app, interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				logger.Warn("delivery flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// viewerURL turns a listener address into a browsable URL
func viewerURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, port))
}
