package edge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	ticks []uint32
}

func (r *recorder) handle(t uint32) {
	r.mu.Lock()
	r.ticks = append(r.ticks, t)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func (r *recorder) deltas() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var d []uint32
	for i := 1; i < len(r.ticks); i++ {
		d = append(d, Delta(r.ticks[i-1], r.ticks[i]))
	}
	return d
}

func pulse(t *testing.T, s *Sim, pin int, low time.Duration) {
	t.Helper()
	require.NoError(t, s.Configure(pin, Output))
	require.NoError(t, s.Write(pin, Low))
	time.Sleep(low)
	require.NoError(t, s.Configure(pin, Input))
}

func TestDelta(t *testing.T) {
	require.Equal(t, uint32(70), Delta(100, 170))
	require.Equal(t, uint32(70), Delta(0xFFFFFFF0, 0x36))
	require.Equal(t, uint32(0), Delta(5, 5))
}

func TestMicros(t *testing.T) {
	require.Equal(t, uint32(1500), Micros(1500*time.Microsecond))
	// Truncated to 32 bits.
	require.Equal(t, uint32(5), Micros(time.Duration(1<<32+5)*time.Microsecond))
}

func TestDHTResponse(t *testing.T) {
	d := DHTResponse([5]byte{0x80, 0, 0, 0, 0x01})
	require.Len(t, d, 42)
	require.Equal(t, uint32(simResponseLow), d[0])
	require.Equal(t, uint32(simResponseHigh), d[1])
	require.Equal(t, uint32(120), d[2])
	require.Equal(t, uint32(76), d[3])
	require.Equal(t, uint32(120), d[41])
	for _, v := range d[4:41] {
		require.Equal(t, uint32(76), v)
	}
}

func TestSimResponds(t *testing.T) {
	payload := [5]byte{23, 0, 23, 0, 46}
	s := NewSim(SimConfig{Respond: func() []uint32 { return DHTResponse(payload) }})
	defer s.Close()

	var rec recorder
	_, err := s.OnRisingEdge(4, rec.handle)
	require.NoError(t, err)

	pulse(t, s, 4, time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() == 43 },
		time.Second, time.Millisecond)
	require.Equal(t, DHTResponse(payload), rec.deltas())
	require.Equal(t, 1, s.Triggers())
}

func TestSimShortPulseOnlyReleases(t *testing.T) {
	s := NewSim(SimConfig{
		Respond: func() []uint32 { return []uint32{80, 80} },
		MinLow:  time.Hour,
	})
	defer s.Close()

	var rec recorder
	_, err := s.OnRisingEdge(4, rec.handle)
	require.NoError(t, err)

	pulse(t, s, 4, 0)
	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 1, rec.count())
}

func TestSimCancel(t *testing.T) {
	s := NewSim(SimConfig{Respond: func() []uint32 { return []uint32{80} }})
	defer s.Close()

	var rec recorder
	reg, err := s.OnRisingEdge(4, rec.handle)
	require.NoError(t, err)
	reg.Cancel()
	reg.Cancel()

	pulse(t, s, 4, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, rec.count())
}

func TestSimWriteNeedsOutput(t *testing.T) {
	s := NewSim(SimConfig{})
	defer s.Close()
	require.ErrorIs(t, s.Write(3, Low), ErrUnknownPin)
	require.NoError(t, s.Configure(3, Output))
	require.NoError(t, s.Write(3, Low))
}

func TestSimClosed(t *testing.T) {
	s := NewSim(SimConfig{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Configure(1, Input), ErrClosed)
	_, err := s.OnRisingEdge(1, func(uint32) {})
	require.ErrorIs(t, err, ErrClosed)
}

func TestSimStartTick(t *testing.T) {
	s := NewSim(SimConfig{StartTick: 0xFFFFFF00})
	defer s.Close()
	require.Less(t, Delta(0xFFFFFF00, s.Tick()), uint32(time.Second/time.Microsecond))
}
