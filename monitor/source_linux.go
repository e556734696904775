//go:build linux

package monitor

import (
	"fmt"
	"log/slog"

	"hive13/dht/edge"
)

func openHardware(cfg *Config, log *slog.Logger) (edge.Source, func() error, error) {
	switch cfg.Backend {
	case "gpiod", "":
		c, err := edge.NewChip(cfg.Chip, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "rpio":
		r, err := edge.OpenRPIO(cfg.RPIOPoll)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case "periph":
		p, err := edge.OpenPeriph()
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend")
}
