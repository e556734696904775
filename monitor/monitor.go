package monitor

// monitor is the read loop behind the command line: it opens a GPIO
// backend, reads the sensor at a fixed interval and writes each
// reading out.  Retrying a failed read is simply the next iteration.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hive13/dht/dht"
	"hive13/dht/metrics"
)

type Config struct {
	// GPIO backend: "gpiod", "rpio", "periph" or "sim"
	Backend string
	// GPIO chip for the gpiod backend (e.g. "gpiochip0")
	Chip string
	// Line offset / BCM pin number the sensor's data line is on
	Pin int
	// Sensor model: "auto", "dht11" or "dhtxx"
	Model string
	// Time between reads
	Interval time.Duration
	// Number of reads before returning; 0 reads until ctx is done
	Count int
	// Print {"temp":..,"rh":..} lines instead of text
	JSON bool
	// Address to serve Prometheus metrics on (disabled if empty)
	MetricsAddr string
	// Sample interval for the rpio backend; 0 spins
	RPIOPoll time.Duration
	// Values the sim backend reports
	SimTemperature float64
	SimHumidity    float64
	// Log as JSON rather than to a console
	LogJSON bool
	// True to log more verbosely (every read and aborted frame)
	Verbose bool
	// Where readings are written (stdout if nil)
	Out io.Writer
}

type jsonReading struct {
	Temp float64 `json:"temp"`
	Rh   float64 `json:"rh"`
}

// Run reads the sensor until cfg.Count reads have been made or ctx is
// cancelled.
func Run(ctx context.Context, cfg *Config, log *slog.Logger) error {
	model, err := dht.ParseModel(cfg.Model)
	if err != nil {
		return err
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	src, closeSrc, err := openSource(cfg, model, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSrc(); err != nil {
			log.Warn("closing GPIO backend", "err", err)
		}
	}()

	opts := []dht.Option{dht.WithLogger(log)}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		opts = append(opts, dht.WithMetrics(m))
		srv := serveMetrics(cfg.MetricsAddr, m, log)
		defer srv.Close()
	}

	sen, err := dht.New(src, cfg.Pin, model, opts...)
	if err != nil {
		return err
	}
	defer sen.Stop()
	log.Info("reading sensor", "sensor", sen.String(), "backend", cfg.Backend,
		"interval", cfg.Interval)

	for n := 0; cfg.Count == 0 || n < cfg.Count; n++ {
		r := sen.Read()
		if r.Status != dht.Ok {
			log.Warn("read failed", "status", r.Status.String())
		}
		if err := write(out, r, cfg.JSON); err != nil {
			return err
		}

		if cfg.Count != 0 && n+1 == cfg.Count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Interval):
		}
	}
	return nil
}

func write(w io.Writer, r dht.Reading, asJSON bool) error {
	if asJSON {
		temp, rh := r.Values()
		b, err := json.Marshal(jsonReading{Temp: temp, Rh: rh})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
	_, err := fmt.Fprintf(w, "%s - %s\n", time.Now().Format("2006-01-02 15:04:05.000000"), r)
	return err
}

func serveMetrics(addr string, m *metrics.Metrics, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()
	return srv
}
