package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/capcom6/live-reload/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:  "reload-tail",
		Usage: "print messages sent by a live-reload server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "server endpoint",
				Value:   "ws://localhost:5678/",
				Sources: cli.EnvVars("RELOAD_URL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "debug mode",
				Sources: cli.EnvVars("RELOAD_DEBUG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			l, err := logger.New(cmd.Bool("debug"))
			if err != nil {
				return err
			}
			defer func() { _ = l.Sync() }()

			return tail(ctx, cmd.String("url"), l)
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatalln(err)
	}
}

func tail(ctx context.Context, url string, logger *zap.Logger) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("can't connect to %s: %w", url, err)
	}
	_ = resp.Body.Close()
	defer conn.Close()

	logger.Info("Connected", zap.String("url", url))

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, readErr := conn.ReadMessage()
		if readErr != nil {
			if ctx.Err() != nil || websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("Bye!")
				return nil
			}
			return fmt.Errorf("connection lost: %w", readErr)
		}

		logger.Info(string(data))
	}
}
