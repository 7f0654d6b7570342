package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/wx-receiver/internal/capture"
	"github.com/sweeney/wx-receiver/internal/config"
	"github.com/sweeney/wx-receiver/internal/gpio"
	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/station"
	"github.com/sweeney/wx-receiver/internal/store"
)

// openSource opens the edge source cfg names and describes it for status.
func openSource(cfg config.SourceConfig) (gpio.EdgeSource, string, error) {
	switch cfg.Kind {
	case config.SourceSerial:
		src, err := capture.OpenSerial(cfg.Port, cfg.Baud)
		if err != nil {
			return nil, "", err
		}
		return src, fmt.Sprintf("serial %s@%d", cfg.Port, cfg.Baud), nil

	case config.SourceFile:
		src, err := capture.OpenFile(cfg.File)
		if err != nil {
			return nil, "", err
		}
		return src, "file " + cfg.File, nil

	default:
		src, err := gpio.NewRealSource(cfg.Chip, cfg.Line, cfg.Tick(), cfg.Invert)
		if err != nil {
			return nil, "", fmt.Errorf("init gpio: %w", err)
		}
		return src, fmt.Sprintf("gpio %s:%d", cfg.Chip, cfg.Line), nil
	}
}

// openStore returns the rain counter store; an empty path keeps it in memory.
func openStore(path string) store.Store {
	if path == "" {
		return store.NewMemory()
	}
	return store.NewFile(path)
}

// edgeHandler returns the edge-context callback for rx. A file source
// replays faster than real time, so its handler waits for the main context
// to drain the slot instead of letting the receiver discard packets.
func edgeHandler(ctx context.Context, kind string, rx *logic.Receiver, slot *logic.Slot) func(logic.EdgeEvent) {
	handle := station.EdgeHandler(rx)
	if kind != config.SourceFile {
		return handle
	}
	return func(e logic.EdgeEvent) {
		for slot.Full() && ctx.Err() == nil {
			time.Sleep(time.Millisecond)
		}
		handle(e)
	}
}

// startSource runs src in its own goroutine. The channel receives Run's
// result once the source stops.
func startSource(ctx context.Context, src gpio.EdgeSource, handle func(logic.EdgeEvent)) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, handle)
	}()
	return done
}
