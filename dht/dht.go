package dht

// The dht package reads DHT11 and DHT22-class (DHTxx) temperature and
// humidity sensors over their single-wire protocol.  The host pulls
// the line low to ask for a reading; the sensor answers with 40 bits
// where each bit's value is carried by the width of its high pulse.
// Decoding is driven entirely by rising-edge timestamps from an
// edge.Source.
//
//	+--------+----------+----------+----------+----------+----------+
//	|  Bytes |        0 |        1 |        2 |        3 |        4 |
//	|--------+----------+----------+----------+----------+----------+
//	|  DHT11 | checksum |        0 | Temp int |        0 |   Rh int |
//	|  DHTxx | checksum | Temp dec | Temp int |   Rh dec |   Rh int |
//	+--------+----------+----------+----------+----------+----------+
//
// Byte 0 is the last byte on the wire.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SensorErrorValue stands in for temperature and humidity when a
// reading did not succeed.
const SensorErrorValue = -273.15

var ErrInvalidModel = errors.New("dht: invalid model")

// Model selects how a frame's bytes are interpreted.
type Model int

const (
	// Auto tries DHTxx decoding first and falls back to DHT11.
	Auto Model = iota
	DHT11
	DHTxx
)

func (m Model) String() string {
	switch m {
	case Auto:
		return "auto"
	case DHT11:
		return "dht11"
	case DHTxx:
		return "dhtxx"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel accepts the names printed by Model.String, plus "dht22",
// "am2302" and "dht21" as aliases of DHTxx.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return Auto, nil
	case "dht11":
		return DHT11, nil
	case "dhtxx", "dht22", "dht21", "am2302":
		return DHTxx, nil
	}
	return Auto, fmt.Errorf("%w: %q", ErrInvalidModel, s)
}

// TriggerDuration is how long the host holds the line low to start a
// reading.  DHT11 needs at least 18ms; DHTxx parts answer after 1ms.
func (m Model) TriggerDuration() time.Duration {
	if m == DHTxx {
		return time.Millisecond
	}
	return 18 * time.Millisecond
}

// Status is the outcome of one read attempt.
type Status int

const (
	Ok Status = iota
	BadChecksum
	BadData
	Timeout
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case BadChecksum:
		return "bad_checksum"
	case BadData:
		return "bad_data"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Reading is the last known state of a sensor.
type Reading struct {
	Timestamp        time.Time `json:"timestamp"`
	Status           Status    `json:"status"`
	Temperature      float64   `json:"temperature"`       // Celsius
	RelativeHumidity float64   `json:"relative_humidity"` // %
}

func (r Reading) String() string {
	ts := float64(r.Timestamp.UnixNano()) / 1e9
	return fmt.Sprintf("%.2f [%s] %v°C, Rh: %v %%",
		ts, r.Status, r.Temperature, r.RelativeHumidity)
}

// Values returns temperature and humidity, or SensorErrorValue for
// both if the reading is not Ok.
func (r Reading) Values() (float64, float64) {
	if r.Status != Ok {
		return SensorErrorValue, SensorErrorValue
	}
	return r.Temperature, r.RelativeHumidity
}
