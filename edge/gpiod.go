//go:build linux

package edge

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/warthog618/gpiod"
)

// Chip is a Source backed by the Linux GPIO character device.  Edge
// timestamps are taken by the kernel at interrupt time, so this is the
// backend to use for anything timing sensitive.
type Chip struct {
	chip *gpiod.Chip
	log  *slog.Logger

	mu     sync.Mutex
	lines  map[int]*chipLine
	closed bool
}

type chipLine struct {
	line    *gpiod.Line
	handler atomic.Pointer[Handler]
}

// NewChip opens a GPIO chip by name (e.g. "gpiochip0").
func NewChip(name string, log *slog.Logger) (*Chip, error) {
	if log == nil {
		log = slog.Default()
	}
	c, err := gpiod.NewChip(name, gpiod.WithConsumer("dht"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Chip{
		chip:  c,
		log:   log.With("chip", name),
		lines: map[int]*chipLine{},
	}, nil
}

// line returns the requested line for pin, requesting it on first use.
// Lines always start as inputs with rising-edge detection; the event
// handler can only be attached at request time.
func (c *Chip) line(pin int) (*chipLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if cl, ok := c.lines[pin]; ok {
		return cl, nil
	}
	cl := &chipLine{}
	l, err := c.chip.RequestLine(pin,
		gpiod.AsInput,
		gpiod.WithRisingEdge,
		gpiod.WithEventHandler(cl.dispatch))
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", pin, err)
	}
	cl.line = l
	c.lines[pin] = cl
	c.log.Debug("line requested", "pin", pin)
	return cl, nil
}

func (cl *chipLine) dispatch(evt gpiod.LineEvent) {
	if evt.Type != gpiod.LineEventRisingEdge {
		return
	}
	if h := cl.handler.Load(); h != nil {
		(*h)(Micros(evt.Timestamp))
	}
}

func (c *Chip) Configure(pin int, dir Direction) error {
	cl, err := c.line(pin)
	if err != nil {
		return err
	}
	if dir == Output {
		err = cl.line.Reconfigure(gpiod.AsOutput(1))
	} else {
		err = cl.line.Reconfigure(gpiod.AsInput, gpiod.WithRisingEdge)
	}
	if err != nil {
		return fmt.Errorf("configure line %d as %s: %w", pin, dir, err)
	}
	return nil
}

func (c *Chip) Write(pin int, level Level) error {
	cl, err := c.line(pin)
	if err != nil {
		return err
	}
	if err := cl.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set line %d: %w", pin, err)
	}
	return nil
}

func (c *Chip) OnRisingEdge(pin int, h Handler) (Registration, error) {
	cl, err := c.line(pin)
	if err != nil {
		return nil, err
	}
	hp := &h
	cl.handler.Store(hp)
	return regFunc(func() {
		cl.handler.CompareAndSwap(hp, nil)
	}), nil
}

// Tick reads CLOCK_MONOTONIC, which gpiod uses for event timestamps
// unless realtime event clocks are requested.
func (c *Chip) Tick() uint32 {
	return MonotonicTick()
}

// Close releases every requested line and the chip itself.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for pin, cl := range c.lines {
		if err := cl.line.Close(); err != nil {
			c.log.Warn("close line", "pin", pin, "err", err)
		}
	}
	return c.chip.Close()
}
