package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/wx-receiver/internal/capture"
	"github.com/sweeney/wx-receiver/internal/gpio"
	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/station"
	"github.com/sweeney/wx-receiver/internal/status"
	"github.com/sweeney/wx-receiver/internal/store"
)

var (
	replayJSON  bool
	replayTick  time.Duration
	replayStart string
	replaySeed  uint16
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a capture file and print its readings",
	Long: `Decode a file of "<ticks> <R|F>" edge records, as written by a capture
microcontroller or by the simulate command, and print every reading.

Reading times are the start time plus the tick time elapsed in the capture,
so the rain history ages exactly as it would have live.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.BoolVar(&replayJSON, "json", false, "Print readings as JSON lines")
	f.DurationVar(&replayTick, "tick", gpio.DefaultTick, "Capture tick resolution")
	f.StringVar(&replayStart, "start", "", "Wall time of the first edge, RFC 3339 (default now)")
	f.Uint16Var(&replaySeed, "rain-seed", 0, "Rain counter before the capture")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	start := time.Now()
	if replayStart != "" {
		if start, err = time.Parse(time.RFC3339, replayStart); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	var sink report.Sink = report.NewConsole(os.Stdout)
	if replayJSON {
		sink = jsonLines(os.Stdout)
	}

	res, err := replay(cmd.Context(), args[0], replayOptions{
		Timing: cfg.Timing.Resolve(),
		Tick:   replayTick,
		Start:  start,
		Seed:   replaySeed,
		Sink:   sink,
	})
	if err != nil {
		return err
	}

	d := res.Decoder
	log.Info("replay finished",
		"edges", d.Receiver.Edges,
		"packets", d.Receiver.Packets,
		"readings", res.Readings,
		"checksum_errors", d.Parser.Checksum,
		"redundancy_errors", d.Parser.Redundancy,
		"desyncs", d.Receiver.Desyncs,
		"malformed", res.Malformed,
		"elapsed", res.Elapsed)
	return nil
}

type replayOptions struct {
	Timing logic.Timing
	Tick   time.Duration
	Start  time.Time
	Seed   uint16
	Sink   report.Sink
}

type replayResult struct {
	Readings  int
	Malformed uint64
	Elapsed   time.Duration
	Decoder   status.Decoder
}

// replay decodes the capture at path in one goroutine: each packet is
// taken from the slot as soon as the receiver completes it.
func replay(ctx context.Context, path string, opts replayOptions) (replayResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Tick <= 0 {
		opts.Tick = gpio.DefaultTick
	}

	src, err := capture.OpenFile(path)
	if err != nil {
		return replayResult{}, err
	}
	defer src.Close()

	var slot logic.Slot
	rx := logic.NewReceiver(opts.Timing, &slot)
	stn, err := station.New(&slot, rx, store.NewMemoryWith(opts.Seed), opts.Sink, opts.Start)
	if err != nil {
		return replayResult{}, err
	}

	var res replayResult
	handle := station.EdgeHandler(rx)
	started := false
	var prev uint32
	err = src.Run(ctx, func(e logic.EdgeEvent) {
		if started {
			// Unsigned subtraction keeps the delta right across a wrap.
			res.Elapsed += time.Duration(e.Timestamp-prev) * opts.Tick
		}
		prev, started = e.Timestamp, true

		handle(e)
		if slot.Full() && stn.Poll(opts.Start.Add(res.Elapsed)) != nil {
			res.Readings++
		}
	})
	res.Malformed = src.Malformed()
	res.Decoder = stn.Decoder()
	return res, err
}

// jsonLines writes one report.ReadingJSON object per line.
func jsonLines(w io.Writer) report.Sink {
	enc := json.NewEncoder(w)
	return report.SinkFunc(func(r logic.Reading) error {
		return enc.Encode(report.NewReadingJSON(r))
	})
}

