//go:build linux

package edge

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

const maxRPIOPin = 64

// RPIO is a Source that samples Raspberry Pi GPIO registers directly
// through /dev/gpiomem.  There is no interrupt behind it: each
// registration runs a goroutine, locked to its OS thread, that reads
// the line in a tight loop and timestamps low-to-high transitions.
// Timing is only as good as the scheduler lets it be, so prefer Chip
// where the kernel supports it.
type RPIO struct {
	// Pause between samples; zero spins.
	poll time.Duration

	// Register access, swapped out in tests.  read must not be
	// called once unmap has run.
	read  func(pin int) bool
	unmap func() error

	modes [maxRPIOPin]atomic.Int32

	mu        sync.Mutex
	closed    bool
	listeners map[*rpioListener]struct{}
	wg        sync.WaitGroup
}

type rpioListener struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// OpenRPIO maps the GPIO registers.  Call Close when done.
func OpenRPIO(poll time.Duration) (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("rpio open: %w", err)
	}
	return newRPIO(poll,
		func(pin int) bool { return rpio.Pin(pin).Read() == rpio.High },
		rpio.Close), nil
}

func newRPIO(poll time.Duration, read func(int) bool, unmap func() error) *RPIO {
	r := &RPIO{
		poll:      poll,
		read:      read,
		unmap:     unmap,
		listeners: map[*rpioListener]struct{}{},
	}
	for i := range r.modes {
		r.modes[i].Store(-1)
	}
	return r
}

func (r *RPIO) check(pin int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if pin < 0 || pin >= maxRPIOPin {
		return fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}
	return nil
}

func (r *RPIO) Configure(pin int, dir Direction) error {
	if err := r.check(pin); err != nil {
		return err
	}
	p := rpio.Pin(pin)
	if dir == Output {
		p.Output()
	} else {
		p.Input()
		p.PullUp()
	}
	r.modes[pin].Store(int32(dir))
	return nil
}

func (r *RPIO) Write(pin int, level Level) error {
	if err := r.check(pin); err != nil {
		return err
	}
	if Direction(r.modes[pin].Load()) != Output {
		return fmt.Errorf("write pin %d: not an output", pin)
	}
	rpio.Pin(pin).Write(rpio.State(level))
	return nil
}

// OnRisingEdge starts a sampling goroutine for pin.  Cancel on the
// returned registration waits for that goroutine to finish, so it must
// not be called from inside h.
func (r *RPIO) OnRisingEdge(pin int, h Handler) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if pin < 0 || pin >= maxRPIOPin {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrUnknownPin)
	}

	l := &rpioListener{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	r.listeners[l] = struct{}{}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(l.done)
		r.listen(pin, h, l.stop)
	}()

	return regFunc(func() {
		l.once.Do(func() { close(l.stop) })
		<-l.done
		r.mu.Lock()
		delete(r.listeners, l)
		r.mu.Unlock()
	}), nil
}

// listen samples pin until stop is closed.  Samples are only taken
// while the pin is an input; a line that was driven is treated as low
// so the release after a trigger pulse shows up as a rising edge.
func (r *RPIO) listen(pin int, h Handler, stop <-chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	last := false
	for {
		select {
		case <-stop:
			return
		default:
		}

		if Direction(r.modes[pin].Load()) != Input {
			last = false
			time.Sleep(100 * time.Microsecond)
			continue
		}

		high := r.read(pin)
		if high && !last {
			h(MonotonicTick())
		}
		last = high

		if r.poll > 0 {
			time.Sleep(r.poll)
		}
	}
}

func (r *RPIO) Tick() uint32 {
	return MonotonicTick()
}

// Close stops every listener still registered and waits for them to
// exit before unmapping the registers they read.
func (r *RPIO) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for l := range r.listeners {
		l.once.Do(func() { close(l.stop) })
	}
	r.mu.Unlock()

	r.wg.Wait()
	return r.unmap()
}
