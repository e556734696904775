package dht

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hive13/dht/edge"
	"hive13/dht/metrics"
)

const (
	defaultPollAttempts = 5
	defaultPollInterval = 50 * time.Millisecond
	// Margin added to the sync gap when a trigger pulse has to be
	// stretched, in microseconds.
	syncGuard = 1000
)

// Sensor reads one DHT sensor on one GPIO line.
//
// Read must not be called concurrently on the same Sensor: the
// trigger pulse and the decode buffer are shared.  Read must not be
// called after Stop.
type Sensor struct {
	src   edge.Source
	pin   int
	model Model

	log      *slog.Logger
	metrics  *metrics.Metrics
	attempts int
	interval time.Duration
	now      func() time.Time
	reg      edge.Registration

	// Touched only from the edge handler.
	asm *Assembler

	// Tick of the most recent edge, for spacing trigger pulses.
	lastEdge atomic.Uint32

	mu      sync.Mutex
	reading Reading
	newData atomic.Bool
}

type Option func(*Sensor)

func WithLogger(l *slog.Logger) Option {
	return func(s *Sensor) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sensor) { s.metrics = m }
}

// WithPolling changes how many times, and how far apart, Read checks
// for a decoded frame.  The default is 5 checks 50ms apart.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(s *Sensor) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithClock sets the source of Reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sensor) { s.now = now }
}

// New sets pin up as an input and starts decoding its edges.
func New(src edge.Source, pin int, model Model, opts ...Option) (*Sensor, error) {
	if model < Auto || model > DHTxx {
		return nil, fmt.Errorf("%w: %d", ErrInvalidModel, int(model))
	}
	s := &Sensor{
		src:      src,
		pin:      pin,
		model:    model,
		log:      slog.Default(),
		attempts: defaultPollAttempts,
		interval: defaultPollInterval,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("pin", pin, "model", model.String())
	s.reading = Reading{Timestamp: s.now(), Status: Timeout}

	if err := src.Configure(pin, edge.Input); err != nil {
		return nil, fmt.Errorf("dht: %w", err)
	}
	// Pretend the last edge was a sync gap ago, so the first edge
	// seen is treated as the start of a frame.
	seed := src.Tick() - syncGap
	s.asm = NewAssembler(seed)
	s.lastEdge.Store(seed)
	s.asm.OnAbort = s.frameAborted

	reg, err := src.OnRisingEdge(pin, s.onRisingEdge)
	if err != nil {
		return nil, fmt.Errorf("dht: %w", err)
	}
	s.reg = reg
	return s, nil
}

func (s *Sensor) String() string {
	return fmt.Sprintf("DHT.%s GPIO[%d]", s.model, s.pin)
}

func (s *Sensor) onRisingEdge(tick uint32) {
	s.lastEdge.Store(tick)
	if f, ok := s.asm.Edge(tick); ok {
		s.store(f)
	}
}

func (s *Sensor) frameAborted() {
	s.log.Debug("frame aborted on malformed pulse")
	s.metrics.FrameAborted()
}

// store decodes f into the shared reading and then raises the new
// data flag.  Temperature and humidity are kept from the last good
// reading unless f decodes cleanly.
func (s *Sensor) store(f Frame) {
	temp, rh, st := Decode(f, s.model)

	s.mu.Lock()
	s.reading.Status = st
	if st == Ok {
		s.reading.Temperature = temp
		s.reading.RelativeHumidity = rh
	}
	s.reading.Timestamp = s.now()
	s.newData.Store(true)
	s.mu.Unlock()
}

// reset marks the shared reading as timed out and clears the new data
// flag in one step, so a frame stored concurrently either lands
// before both or after both.
func (s *Sensor) reset() {
	s.mu.Lock()
	s.reading.Status = Timeout
	s.newData.Store(false)
	s.mu.Unlock()
}

func (s *Sensor) snapshot() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

// triggerLow is how long to hold the line low: the model's trigger
// duration, stretched so the release edge comes more than a sync gap
// after the last edge seen.  Without that the release is not taken as
// the start of a frame.
func (s *Sensor) triggerLow() time.Duration {
	low := s.model.TriggerDuration()
	since := edge.Delta(s.lastEdge.Load(), s.src.Tick())
	if since > 1<<31 {
		// Last edge is stamped ahead of the clock.
		since = 0
	}
	if since < syncGap+syncGuard {
		need := time.Duration(syncGap+syncGuard-since) * time.Microsecond
		if need > low {
			low = need
		}
	}
	return low
}

// trigger holds the line low long enough to wake the sensor, then
// releases it so the sensor can answer.
func (s *Sensor) trigger() error {
	if err := s.src.Configure(s.pin, edge.Output); err != nil {
		return err
	}
	if err := s.src.Write(s.pin, edge.Low); err != nil {
		return err
	}
	time.Sleep(s.triggerLow())
	return s.src.Configure(s.pin, edge.Input)
}

// Read triggers the sensor once and waits up to attempts*interval for
// a frame.  When nothing arrives in time the returned Reading has
// Status Timeout and the previous temperature and humidity.  Read
// never retries.
func (s *Sensor) Read() Reading {
	start := time.Now()

	s.reset()

	if err := s.trigger(); err != nil {
		s.log.Error("trigger failed", "err", err)
		// Make sure the line isn't left driven low.
		_ = s.src.Configure(s.pin, edge.Input)
	} else {
		for i := 0; i < s.attempts; i++ {
			time.Sleep(s.interval)
			if s.newData.Load() {
				break
			}
		}
	}

	r := s.snapshot()
	s.metrics.Read(r.Status.String(), time.Since(start))
	s.log.Debug("read", "status", r.Status.String(),
		"temperature", r.Temperature, "humidity", r.RelativeHumidity)
	return r
}

// Stop cancels edge delivery.  One edge already being delivered may
// still be processed after Stop returns.
func (s *Sensor) Stop() {
	if s.reg != nil {
		s.reg.Cancel()
		s.reg = nil
	}
}
