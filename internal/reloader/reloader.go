package reloader

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/capcom6/live-reload/internal/broadcaster"
	"github.com/capcom6/live-reload/internal/config"
	"github.com/capcom6/live-reload/internal/server"
	"github.com/capcom6/live-reload/internal/watcher"
	"go.uber.org/zap"
)

// Reloader ties the watcher to the broadcaster: every batch of changes is
// announced to all connected clients.
type Reloader struct {
	cfg    config.Config
	logger *zap.Logger

	hub     *broadcaster.Broadcaster
	server  *server.Server
	watcher *watcher.Watcher
}

func New(cfg config.Config, logger *zap.Logger) *Reloader {
	hub := broadcaster.New(logger)

	watch := watcher.New(cfg.Paths, cfg.Excludes, logger)
	watch.Step = cfg.Step
	watch.Debounce = cfg.Debounce

	return &Reloader{
		cfg:    cfg,
		logger: logger,

		hub:     hub,
		server:  server.New(server.Config{Addr: cfg.Addr()}, hub, logger),
		watcher: watch,
	}
}

// Start binds the endpoint and starts watching. It doesn't block: everything
// it starts is tracked by wg and released once ctx is cancelled or the watcher
// stops on its own.
func (r *Reloader) Start(ctx context.Context, wg *sync.WaitGroup) error {
	ctx, cancel := context.WithCancel(ctx)

	if err := r.server.Listen(); err != nil {
		cancel()
		return err
	}

	ch, err := r.watcher.Watch(ctx, wg)
	if err != nil {
		cancel()
		_ = r.server.Close()
		return fmt.Errorf("can't start watcher: %w", err)
	}

	r.server.Serve(ctx, wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.loop(ctx, ch, cancel)
	}()

	r.logger.Info("Listening", zap.String("url", fmt.Sprintf("ws://%s/", r.Addr())))
	r.logger.Sugar().Infof("Watching for changes: %s", strings.Join(r.cfg.Paths, ", "))

	return nil
}

func (r *Reloader) loop(ctx context.Context, ch watcher.BatchesChannel, cancel context.CancelFunc) {
	defer cancel()

	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					r.logger.Error("watcher channel closed")
				}
				return
			}

			for _, event := range batch {
				r.logger.Sugar().Infof("%s: %s", event.Type, event.Path)
			}

			delivered := r.hub.Notify(broadcaster.ReloadMessage)
			r.logger.Debug("reload sent", zap.Int("clients", delivered))
		case <-ctx.Done():
			return
		}
	}
}

// Addr returns the bound address of the endpoint, nil before Start.
func (r *Reloader) Addr() net.Addr {
	return r.server.Addr()
}

// Clients returns the number of connected clients.
func (r *Reloader) Clients() int {
	return r.hub.Len()
}
