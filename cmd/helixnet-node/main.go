// Package main boots a helixnet shop node: it joins the trade exchange,
// consumes its queues and sweeps expired entities until terminated.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akenel/helixnet-sub001/internal/broker"
	"github.com/akenel/helixnet-sub001/internal/config"
	"github.com/akenel/helixnet-sub001/internal/node"
	"github.com/akenel/helixnet-sub001/internal/obs"
	"github.com/akenel/helixnet-sub001/internal/store"
	"github.com/akenel/helixnet-sub001/internal/sweeper"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

func main() {
	cfg := config.Load()
	log := obs.NewLogger(slog.LevelInfo)

	if cfg.NodeID == "" {
		log.Error("NODE_ID is required")
		os.Exit(1)
	}

	conn := broker.New(broker.Config{
		URL:              cfg.AMQPURL,
		Exchange:         cfg.Exchange,
		PublishTimeout:   cfg.PublishTimeout,
		RetryInitial:     cfg.RetryInitial,
		RetryMaxInterval: cfg.RetryMaxInterval,
		RetryMaxAttempts: uint64(cfg.RetryMaxAttempts),
	}, log)

	st := store.New()
	dedup := wire.NewDedup(cfg.DedupWindow, cfg.DedupMaxEntries)

	nd, err := node.New(node.Config{
		ID:         cfg.NodeID,
		Name:       cfg.NodeName,
		DefaultTTL: cfg.DefaultTTL,
		Workers:    cfg.Workers,
	}, conn, st, dedup, log)
	if err != nil {
		log.Error("node setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := conn.EnsureConnected(ctx); err != nil {
		log.Error("broker connect failed", "error", err)
		os.Exit(1)
	}

	if err := nd.Start(ctx, conn); err != nil {
		log.Error("consume start failed", "error", err)
		os.Exit(1)
	}

	sweeper.New(st, cfg.SweepInterval, cfg.DefaultTTL, log).Start(ctx)

	log.Info("node running", "node_id", cfg.NodeID, "exchange", cfg.Exchange)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	log.Info("shutdown", "signal", s.String())

	cancel()
	if err := nd.Close(); err != nil {
		log.Warn("close failed", "error", err)
	}
}
