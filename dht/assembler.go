package dht

import (
	"hive13/dht/edge"
)

// Pulse timing, in microseconds between consecutive rising edges.
const (
	syncGap     = 10000 // longer than this starts a new frame
	minPulse    = 60
	maxPulse    = 150
	oneBitPulse = 100 // longer than this is a 1
	// The sensor's response pulses arrive before the data bits.
	preambleEdges = 2
)

type assemblerState int

const (
	idle assemblerState = iota
	receiving
)

// Assembler turns rising-edge ticks into frames.  It is not safe for
// concurrent use; feed it from a single goroutine.
type Assembler struct {
	state    assemblerState
	bitCount int
	acc      uint64
	prevTick uint32

	// Called when a frame in progress is dropped.
	OnAbort func()
}

// NewAssembler starts idle with prevTick as the last seen edge.
func NewAssembler(prevTick uint32) *Assembler {
	return &Assembler{prevTick: prevTick}
}

// Receiving reports whether a frame is in progress.
func (a *Assembler) Receiving() bool {
	return a.state == receiving
}

// Edge processes one rising edge and returns a frame when the 40th
// data bit has arrived.
func (a *Assembler) Edge(tick uint32) (Frame, bool) {
	delta := edge.Delta(a.prevTick, tick)
	a.prevTick = tick

	if delta > syncGap {
		a.state = receiving
		a.bitCount = -preambleEdges
		a.acc = 0
		return 0, false
	}
	if a.state != receiving {
		return 0, false
	}

	a.bitCount++
	if a.bitCount < 1 {
		return 0, false
	}
	if delta < minPulse || delta > maxPulse {
		// Abort silently; the read in progress will time out.
		a.state = idle
		if a.OnAbort != nil {
			a.OnAbort()
		}
		return 0, false
	}
	a.acc <<= 1
	if delta > oneBitPulse {
		a.acc |= 1
	}
	if a.bitCount < frameBits {
		return 0, false
	}
	a.state = idle
	return Frame(a.acc), true
}
