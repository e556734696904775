//go:build !linux

package monitor

import (
	"errors"
	"log/slog"

	"hive13/dht/edge"
)

func openHardware(cfg *Config, log *slog.Logger) (edge.Source, func() error, error) {
	return nil, nil, errors.New("GPIO backends need linux; use the sim backend")
}
