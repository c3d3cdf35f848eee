package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/capcom6/live-reload/internal/config"
	"github.com/capcom6/live-reload/internal/logger"
	"github.com/capcom6/live-reload/internal/reloader"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalln(err)
	}

	cfg, err := config.Parse(os.Args[1:])
	if errors.Is(err, config.ErrHelpShown) {
		return
	}
	if err != nil {
		log.Fatalln(err)
	}

	logger, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalln(err)
	}
	defer func() { _ = logger.Sync() }()

	wg := &sync.WaitGroup{}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if startErr := reloader.New(cfg, logger).Start(ctx, wg); startErr != nil {
		logger.Fatal("can't start", zap.Error(startErr))
	}

	wg.Wait()

	logger.Info("Bye!")
}
