package edge

// The edge package abstracts a single GPIO line that can be driven as
// an output and, while an input, reports every rising transition with
// a microsecond tick.  Ticks come from a wrapping 32-bit counter, so
// always compare them with Delta rather than plain subtraction of
// wider types.

import (
	"errors"
	"time"
)

// Direction selects whether a line is driven or sensed.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Level is the logic level driven onto an output line.
type Level int

const (
	Low Level = iota
	High
)

// Handler is called once per rising edge with the tick at which the
// edge happened.  Handlers for one registration are never run
// concurrently with each other.
type Handler func(tick uint32)

// Registration is returned by OnRisingEdge.  After Cancel returns, no
// new deliveries start, but one delivery already in flight may still
// land.
type Registration interface {
	Cancel()
}

// Source is a GPIO provider capable of edge-timestamped input.
type Source interface {
	Configure(pin int, dir Direction) error
	Write(pin int, level Level) error
	OnRisingEdge(pin int, h Handler) (Registration, error)
	// Tick returns the current time on the same clock that edge
	// ticks are taken from.
	Tick() uint32
}

var (
	ErrClosed     = errors.New("edge: source closed")
	ErrUnknownPin = errors.New("edge: pin not configured")
)

// Delta returns the number of ticks from prev to cur, correct across
// a single wrap of the counter.
func Delta(prev, cur uint32) uint32 {
	return cur - prev
}

// Micros converts a monotonic timestamp to a wrapping microsecond tick.
func Micros(d time.Duration) uint32 {
	return uint32(d / time.Microsecond)
}

// regFunc adapts a plain function to Registration.
type regFunc func()

func (f regFunc) Cancel() { f() }
