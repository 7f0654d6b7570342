package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/wx-receiver/internal/config"
)

var (
	configPath string
	logLevel   string

	// Source overrides, shared by run and monitor.
	sourceKind string
	sourceChip string
	sourceLine int
	sourcePort string
	sourceBaud int
	sourceFile string
)

var rootCmd = &cobra.Command{
	Use:   "wx-receiver",
	Short: "La Crosse style 433 MHz weather sensor receiver",
	Long: `wx-receiver decodes the pulse-width coded transmissions of a La Crosse
WS2355 style outdoor sensor: temperature, humidity, rain and wind.

Edges come from a GPIO line wired to a 433 MHz OOK receiver module, from a
capture microcontroller on a serial port, or from a capture file.

Configuration is read from a YAML file (--config); flags override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		log.SetLevel(lvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "level", "l", "info", "Log level (debug, info, warn, error)")
}

// addSourceFlags registers the edge source overrides on cmd.
func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&sourceKind, "source", "", "Edge source: gpio, serial or file")
	f.StringVar(&sourceChip, "chip", "", "GPIO chip (gpio source)")
	f.IntVar(&sourceLine, "line", 0, "GPIO line offset (gpio source)")
	f.StringVarP(&sourcePort, "port", "p", "", "Capture serial port (serial source)")
	f.IntVarP(&sourceBaud, "baud", "b", 0, "Capture baud rate (serial source)")
	f.StringVar(&sourceFile, "file", "", "Capture file (file source)")
}

// applySourceFlags copies explicitly set source flags over cfg.
func applySourceFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("source") {
		cfg.Source.Kind = sourceKind
	}
	if flags.Changed("chip") {
		cfg.Source.Chip = sourceChip
	}
	if flags.Changed("line") {
		cfg.Source.Line = sourceLine
	}
	if flags.Changed("port") {
		cfg.Source.Port = sourcePort
		if !flags.Changed("source") {
			cfg.Source.Kind = config.SourceSerial
		}
	}
	if flags.Changed("baud") {
		cfg.Source.Baud = sourceBaud
	}
	if flags.Changed("file") {
		cfg.Source.File = sourceFile
		if !flags.Changed("source") {
			cfg.Source.Kind = config.SourceFile
		}
	}
}

// loadConfig reads --config (if given), lets override adjust it, then
// validates and fills defaults.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
