package edge

import (
	"sync"
	"time"
)

// Pulse widths a DHT sensor produces, in microseconds.
const (
	simResponseLow  = 100 // host release to end of the sensor's 80µs low
	simResponseHigh = 130 // sensor's 80µs high plus the first bit's 50µs low
	simBitLow       = 50
	simBitZero      = 26
	simBitOne       = 70
)

// Responder produces the inter-edge deltas (µs) a simulated sensor
// emits after the host releases the line.  A nil result models a
// silent sensor.
type Responder func() []uint32

// SimConfig configures a Sim.
type SimConfig struct {
	// Respond is consulted once per trigger pulse.
	Respond Responder
	// StartTick is the tick value at construction time.
	StartTick uint32
	// MinLow is the shortest host low pulse the sensor answers.
	// Defaults to 500µs.
	MinLow time.Duration
}

// Sim is an in-process Source that behaves like a single-wire sensor
// on every configured pin.  Driving a line low and then switching it
// to input produces a rising edge for the release, followed by the
// responder's edges.  Deliveries come from one goroutine, in order.
type Sim struct {
	cfg   SimConfig
	start time.Time

	mu       sync.Mutex
	pins     map[int]*simPin
	triggers int
	closed   bool

	jobs chan simJob
	done chan struct{}
}

type simPin struct {
	dir      Direction
	level    Level
	lowSince time.Time
	handler  *Handler
}

type simJob struct {
	pin   int
	ticks []uint32
}

func NewSim(cfg SimConfig) *Sim {
	if cfg.MinLow <= 0 {
		cfg.MinLow = 500 * time.Microsecond
	}
	s := &Sim{
		cfg:   cfg,
		start: time.Now(),
		pins:  map[int]*simPin{},
		jobs:  make(chan simJob, 16),
		done:  make(chan struct{}),
	}
	go s.deliver()
	return s
}

// DHTResponse renders the edge deltas a DHT sensor sends for payload,
// given in wire order: humidity high, humidity low, temperature high,
// temperature low, checksum.
func DHTResponse(payload [5]byte) []uint32 {
	d := make([]uint32, 0, 42)
	d = append(d, simResponseLow, simResponseHigh)
	for _, b := range payload {
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				d = append(d, simBitLow+simBitOne)
			} else {
				d = append(d, simBitLow+simBitZero)
			}
		}
	}
	return d
}

func (s *Sim) pin(n int) *simPin {
	p, ok := s.pins[n]
	if !ok {
		p = &simPin{level: High}
		s.pins[n] = p
	}
	return p
}

func (s *Sim) Configure(n int, dir Direction) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	p := s.pin(n)
	released := p.dir == Output && p.level == Low && dir == Input
	lowFor := time.Since(p.lowSince)
	p.dir = dir
	if dir == Input {
		p.level = High
	}
	if released {
		s.triggers++
	}
	s.mu.Unlock()
	if !released {
		return nil
	}

	t := s.tick()
	ticks := []uint32{t}
	if lowFor >= s.cfg.MinLow && s.cfg.Respond != nil {
		for _, d := range s.cfg.Respond() {
			t += d
			ticks = append(ticks, t)
		}
	}
	select {
	case s.jobs <- simJob{pin: n, ticks: ticks}:
	case <-s.done:
		return ErrClosed
	}
	return nil
}

func (s *Sim) Write(n int, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p := s.pin(n)
	if p.dir != Output {
		return ErrUnknownPin
	}
	if level == Low && p.level != Low {
		p.lowSince = time.Now()
	}
	p.level = level
	return nil
}

func (s *Sim) OnRisingEdge(n int, h Handler) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	p := s.pin(n)
	hp := &h
	p.handler = hp
	return regFunc(func() {
		s.mu.Lock()
		if p.handler == hp {
			p.handler = nil
		}
		s.mu.Unlock()
	}), nil
}

func (s *Sim) tick() uint32 {
	return s.cfg.StartTick + Micros(time.Since(s.start))
}

func (s *Sim) Tick() uint32 {
	return s.tick()
}

// Triggers reports how many host pulses have been released.
func (s *Sim) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

func (s *Sim) deliver() {
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			for _, t := range j.ticks {
				s.mu.Lock()
				hp := s.pins[j.pin].handler
				s.mu.Unlock()
				if hp == nil {
					break
				}
				(*hp)(t)
			}
		}
	}
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
