package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/wx-receiver/internal/config"
	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/station"
	"github.com/sweeney/wx-receiver/internal/status"
	"github.com/sweeney/wx-receiver/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal view of readings and decoder counters",
	Long: `Decode from the configured edge source and show the latest reading,
the decoder state and its error counters in a terminal UI.

Nothing is published. Press 'q' to quit.`,
	RunE: runMonitor,
}

func init() {
	addSourceFlags(monitorCmd)
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(func(cfg *config.Config) {
		applySourceFlags(flags, cfg)
	})
	if err != nil {
		return err
	}

	src, srcDesc, err := openSource(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	// The TUI owns the terminal.
	log.SetOutput(io.Discard)

	startTime := time.Now()
	var slot logic.Slot
	rx := logic.NewReceiver(cfg.Timing.Resolve(), &slot)
	stn, err := station.New(&slot, rx, openStore(cfg.Rain.Store), nil, startTime)
	if err != nil {
		return err
	}
	tracker := status.NewTracker(startTime, status.Config{
		Source:    srcDesc,
		TickUs:    int64(cfg.Source.TickUs),
		PollMs:    int64(cfg.PollMs),
		RainStore: cfg.Rain.Store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srcDone := startSource(ctx, src, edgeHandler(ctx, cfg.Source.Kind, rx, &slot))

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()
	go drive(ctx, stn, tracker, ticker.C)

	p := tea.NewProgram(tui.New(srcDesc, tracker.Snapshot, 250*time.Millisecond), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	select {
	case err := <-srcDone:
		if err != nil {
			return fmt.Errorf("edge source: %w", err)
		}
	default:
	}
	return nil
}

// drive polls the station on every tick and mirrors it into tracker. It
// owns stn until ctx is done.
func drive(ctx context.Context, stn *station.Station, tracker *status.Tracker, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick:
			if r := stn.Poll(t); r != nil {
				tracker.SetReading(*r)
			}
			tracker.Update(stn.Decoder())
		}
	}
}
