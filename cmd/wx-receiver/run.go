package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/wx-receiver/internal/config"
	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/modbus"
	"github.com/sweeney/wx-receiver/internal/mqtt"
	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/station"
	"github.com/sweeney/wx-receiver/internal/status"
	"github.com/sweeney/wx-receiver/internal/web"
)

var (
	runBroker    string
	runHTTP      string
	runHeartbeat time.Duration
	runStore     string
	runNoConsole bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode sensor transmissions and publish readings",
	Long: `Run the receiver daemon.

Readings go to the console, MQTT (weather/wxrx/readings), the optional report
serial port, the optional Modbus register block and the live /ws stream of
the HTTP status server. STARTUP, HEARTBEAT and SHUTDOWN events carrying a
status snapshot are published retained on weather/wxrx/system.`,
	RunE: runDaemon,
}

func init() {
	addSourceFlags(runCmd)
	f := runCmd.Flags()
	f.StringVar(&runBroker, "broker", "", `MQTT broker address ("off" disables)`)
	f.StringVar(&runHTTP, "http", "", `HTTP status address ("off" disables)`)
	f.DurationVar(&runHeartbeat, "heartbeat", 0, "Heartbeat interval (0 to disable)")
	f.StringVar(&runStore, "rain-store", "", "Rain counter file")
	f.BoolVar(&runNoConsole, "quiet", false, "Do not print readings to stdout")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(func(cfg *config.Config) {
		applySourceFlags(flags, cfg)
		if flags.Changed("broker") {
			cfg.MQTT.Broker = runBroker
		}
		if flags.Changed("http") {
			cfg.HTTP.Addr = runHTTP
		}
		if flags.Changed("heartbeat") {
			cfg.MQTT.HeartbeatMs = int(runHeartbeat.Milliseconds())
			if runHeartbeat <= 0 {
				cfg.MQTT.HeartbeatMs = -1
			}
		}
		if flags.Changed("rain-store") {
			cfg.Rain.Store = runStore
		}
		if runNoConsole {
			off := false
			cfg.Report.Console = &off
		}
	})
	if err != nil {
		return err
	}
	return run(cfg)
}

func run(cfg *config.Config) error {
	// Edge source
	src, srcDesc, err := openSource(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	// Sinks the station reports to. MQTT is published from runLoop.
	sinks := report.NewMulti()
	if *cfg.Report.Console {
		sinks.Add("console", report.NewConsole(os.Stdout))
	}
	if cfg.Report.Serial.Port != "" {
		ser, err := report.OpenSerial(cfg.Report.Serial.Port, cfg.Report.Serial.Baud)
		if err != nil {
			return err
		}
		defer ser.Close()
		sinks.Add("serial", ser)
	}
	modbusDesc := ""
	if cfg.Modbus.Enabled() {
		mb, err := modbus.Dial(modbus.Config{
			Endpoint: cfg.Modbus.Endpoint,
			UnitID:   cfg.Modbus.UnitID,
			Address:  cfg.Modbus.Address,
			Timeout:  cfg.Modbus.Timeout(),
		})
		if err != nil {
			return err
		}
		defer mb.Close()
		sinks.Add("modbus", mb)
		modbusDesc = fmt.Sprintf("%s unit=%d addr=%d", cfg.Modbus.Endpoint, cfg.Modbus.UnitID, cfg.Modbus.Address)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Enabled() {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.Buffer,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	heartbeat := cfg.MQTT.Heartbeat()
	tracker := status.NewTracker(startTime, status.Config{
		Source:      srcDesc,
		TickUs:      int64(cfg.Source.TickUs),
		PollMs:      int64(cfg.PollMs),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		Modbus:      modbusDesc,
		RainStore:   cfg.Rain.Store,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start HTTP status server
	if cfg.HTTP.Enabled() {
		hub := web.NewHub()
		sinks.Add("websocket", hub)
		srv := web.New(cfg.HTTP.Addr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	// Decoder: the edge context owns rx, runLoop owns the station.
	var slot logic.Slot
	rx := logic.NewReceiver(cfg.Timing.Resolve(), &slot)
	stn, err := station.New(&slot, rx, openStore(cfg.Rain.Store), sinks, startTime)
	if err != nil {
		return err
	}
	tracker.Update(stn.Decoder())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srcDone := startSource(ctx, src, edgeHandler(ctx, cfg.Source.Kind, rx, &slot))

	log.Info("started", "source", srcDesc, "poll", cfg.Poll(), "broker", cfg.MQTT.Broker, "heartbeat", heartbeat)

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(stn, publisher, mqttStatus, tracker, heartbeat, time.Now, ticker.C, sigCh, srcDone)
}

func runLoop(stn *station.Station, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, srcDone <-chan error) error {
	shutdown := func(reason string) {
		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     "SHUTDOWN",
			Reason:    reason,
			Retained:  true,
		}
		if tracker != nil {
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			tracker.Update(stn.Decoder())
			snap := tracker.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Warn("failed to publish shutdown event", "err", err)
		} else {
			log.Info("published shutdown event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			shutdown(signalName)
			return nil

		case err := <-srcDone:
			if err != nil {
				log.Error("edge source failed", "err", err)
				shutdown("SOURCE_ERROR")
				return fmt.Errorf("edge source: %w", err)
			}
			// A finished capture file leaves the daemon serving its last state.
			log.Info("edge source finished")
			srcDone = nil

		case <-tick:
			t := now()
			if r := stn.Poll(t); r != nil {
				log.Debug("reading", "line", report.FormatLine(*r))
				if err := publisher.Publish(*r); err != nil {
					log.Warn("publish error", "err", err)
					// Don't crash on publish failure
				}
				if tracker != nil {
					tracker.SetReading(*r)
				}
			}

			// Check for heartbeat
			if stn.CheckHeartbeat(t, heartbeat) {
				d := stn.Decoder()
				log.Info("heartbeat",
					"packets", d.Receiver.Packets,
					"readings", d.Parser.Readings,
					"checksum_errors", d.Parser.Checksum,
					"desyncs", d.Receiver.Desyncs,
					"rain", stn.RainCounter())

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(d)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn("heartbeat publish error", "err", err)
				}
			}

			// Update status tracker for HTTP/monitor consumers
			if tracker != nil {
				tracker.Update(stn.Decoder())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// discardPublisher stands in when MQTT is switched off.
type discardPublisher struct{}

func (discardPublisher) Publish(logic.Reading) error { return nil }

func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }

func (discardPublisher) Close() error { return nil }
