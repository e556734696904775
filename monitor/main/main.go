package main

// Commandline for the DHT monitor. This turns arguments to a
// configuration, but is not responsible for any of the actual logic.

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hive13/dht/monitor"
)

var cfg *monitor.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Cobra boilerplate:
var rootCmd = &cobra.Command{
	Use:          "dht",
	Short:        "Read a DHT11/DHT22 temperature and humidity sensor",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, args []string) error {
		log := monitor.NewLogger(os.Stderr, cfg.LogJSON, cfg.Verbose)
		log.Debug("configuration", "config", *cfg)

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := monitor.Run(ctx, cfg, log); err != nil {
			log.Error("monitor stopped", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	cfg = &monitor.Config{}

	rootCmd.PersistentFlags().StringVar(&cfg.Backend, "backend", "gpiod",
		"GPIO backend: gpiod, rpio, periph or sim")
	rootCmd.PersistentFlags().StringVar(&cfg.Chip, "chip", "gpiochip0",
		"GPIO chip for the gpiod backend")
	rootCmd.PersistentFlags().IntVar(&cfg.Pin, "pin", 17,
		"BCM/GPIO pin number of the sensor's data line")
	rootCmd.PersistentFlags().StringVar(&cfg.Model, "model", "auto",
		"Sensor model: auto, dht11 or dhtxx (dht22, am2302)")

	rootCmd.PersistentFlags().DurationVar(&cfg.Interval, "interval", time.Second,
		"Time between reads")
	rootCmd.PersistentFlags().IntVarP(&cfg.Count, "count", "n", 0,
		"Number of reads to make (0 reads forever)")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false,
		"Print readings as JSON lines")

	rootCmd.PersistentFlags().StringVar(&cfg.MetricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on (e.g. :9101)")
	rootCmd.PersistentFlags().DurationVar(&cfg.RPIOPoll, "rpio-poll", 0,
		"Sample interval for the rpio backend (0 spins)")
	rootCmd.PersistentFlags().Float64Var(&cfg.SimTemperature, "sim-temp", 21.5,
		"Temperature reported by the sim backend")
	rootCmd.PersistentFlags().Float64Var(&cfg.SimHumidity, "sim-rh", 45.0,
		"Relative humidity reported by the sim backend")

	rootCmd.PersistentFlags().BoolVar(&cfg.LogJSON, "log-json", false,
		"Log as JSON")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v",
		false, "Enable more verbose logging")
}
