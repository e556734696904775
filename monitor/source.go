package monitor

import (
	"fmt"
	"log/slog"

	"hive13/dht/dht"
	"hive13/dht/edge"
)

// openSource returns the configured GPIO backend and a function that
// releases it.
func openSource(cfg *Config, model dht.Model, log *slog.Logger) (edge.Source, func() error, error) {
	if cfg.Backend == "sim" {
		f := dht.EncodeDHTxx(cfg.SimTemperature, cfg.SimHumidity)
		if model == dht.DHT11 {
			f = dht.EncodeDHT11(cfg.SimTemperature, cfg.SimHumidity)
		}
		resp := edge.DHTResponse(f.Wire())
		sim := edge.NewSim(edge.SimConfig{
			Respond: func() []uint32 { return resp },
		})
		return sim, sim.Close, nil
	}
	src, closer, err := openHardware(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("backend %q: %w", cfg.Backend, err)
	}
	return src, closer, nil
}
