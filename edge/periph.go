//go:build linux

package edge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWait bounds each WaitForEdge call so cancellation is noticed.
const edgeWait = 20 * time.Millisecond

// Periph is a Source built on periph.io's host drivers.  Pins are
// looked up by their BCM number as "GPIO<n>".
type Periph struct {
	mu     sync.Mutex
	pins   map[int]*periphPin
	closed bool
}

type periphPin struct {
	io    gpio.PinIO
	input atomic.Bool
}

// OpenPeriph initialises the periph host drivers.
func OpenPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &Periph{pins: map[int]*periphPin{}}, nil
}

func (p *Periph) pin(n int) (*periphPin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if pp, ok := p.pins[n]; ok {
		return pp, nil
	}
	io := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if io == nil {
		return nil, fmt.Errorf("GPIO%d: %w", n, ErrUnknownPin)
	}
	pp := &periphPin{io: io}
	p.pins[n] = pp
	return pp, nil
}

func (p *Periph) Configure(n int, dir Direction) error {
	pp, err := p.pin(n)
	if err != nil {
		return err
	}
	if dir == Output {
		pp.input.Store(false)
		err = pp.io.Out(gpio.High)
	} else {
		err = pp.io.In(gpio.PullUp, gpio.RisingEdge)
		pp.input.Store(err == nil)
	}
	if err != nil {
		return fmt.Errorf("configure GPIO%d as %s: %w", n, dir, err)
	}
	return nil
}

func (p *Periph) Write(n int, level Level) error {
	pp, err := p.pin(n)
	if err != nil {
		return err
	}
	if err := pp.io.Out(gpio.Level(level == High)); err != nil {
		return fmt.Errorf("write GPIO%d: %w", n, err)
	}
	return nil
}

func (p *Periph) OnRisingEdge(n int, h Handler) (Registration, error) {
	pp, err := p.pin(n)
	if err != nil {
		return nil, err
	}
	var cancelled atomic.Bool
	go func() {
		for !cancelled.Load() {
			if !pp.input.Load() {
				time.Sleep(time.Millisecond)
				continue
			}
			if !pp.io.WaitForEdge(edgeWait) {
				continue
			}
			tick := MonotonicTick()
			if cancelled.Load() {
				return
			}
			h(tick)
		}
	}()
	return regFunc(func() { cancelled.Store(true) }), nil
}

func (p *Periph) Tick() uint32 {
	return MonotonicTick()
}

// Close halts every pin that was used.
func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var first error
	for _, pp := range p.pins {
		if err := pp.io.Halt(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
