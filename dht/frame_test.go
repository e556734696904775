package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBytes(t *testing.T) {
	f := NewFrame(1, 2, 3, 4)
	cs, b1, b2, b3, b4 := f.Bytes()
	require.Equal(t, [5]byte{10, 1, 2, 3, 4}, [5]byte{cs, b1, b2, b3, b4})
	require.True(t, f.ChecksumOK())
	require.Equal(t, Frame(0x040302010A), f)

	// Checksum wraps modulo 256.
	f = NewFrame(200, 100, 0, 0)
	cs, _, _, _, _ = f.Bytes()
	require.Equal(t, byte(44), cs)
	require.True(t, f.ChecksumOK())
}

func TestDecodeDHTxx(t *testing.T) {
	tests := []struct {
		name           string
		b1, b2, b3, b4 byte
		temp, rh       float64
		status         Status
	}{
		{"typical", 0x5F, 0x01, 0x8C, 0x02, 35.1, 65.2, Ok},
		{"zero", 0, 0, 0, 0, 0, 0, Ok},
		{"negative", 0x65, 0x80, 0xF4, 0x01, -10.1, 50.0, Ok},
		{"max temp", 0x46, 0x05, 0, 0x01, 135.0, 25.6, Ok},
		{"min temp", 0xF4, 0x81, 0, 0x01, -50.0, 25.6, Ok},
		{"max humidity", 0, 0x01, 0x4C, 0x04, 25.6, 110.0, Ok},
		{"temp too high", 0x47, 0x05, 0, 0x01, 0, 0, BadData},
		{"temp too low", 0xF5, 0x81, 0, 0x01, 0, 0, BadData},
		{"humidity too high", 0, 0x01, 0x4D, 0x04, 0, 0, BadData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, rh, st := Decode(NewFrame(tt.b1, tt.b2, tt.b3, tt.b4), DHTxx)
			require.Equal(t, tt.status, st)
			if st == Ok {
				assert.Equal(t, tt.temp, temp)
				assert.Equal(t, tt.rh, rh)
			}
		})
	}
}

func TestDecodeDHT11(t *testing.T) {
	tests := []struct {
		name           string
		b1, b2, b3, b4 byte
		status         Status
	}{
		{"typical", 0, 23, 0, 23, Ok},
		{"hot", 0, 60, 0, 50, Ok},
		{"too hot", 0, 61, 0, 50, BadData},
		{"dry limit", 0, 20, 0, 10, Ok},
		{"too dry", 0, 20, 0, 9, BadData},
		{"wet limit", 0, 20, 0, 90, Ok},
		{"too wet", 0, 20, 0, 91, BadData},
		{"temp fraction set", 1, 20, 0, 40, BadData},
		{"humidity fraction set", 0, 20, 1, 40, BadData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, rh, st := Decode(NewFrame(tt.b1, tt.b2, tt.b3, tt.b4), DHT11)
			require.Equal(t, tt.status, st)
			if st == Ok {
				assert.Equal(t, float64(tt.b2), temp)
				assert.Equal(t, float64(tt.b4), rh)
			}
		})
	}
}

func TestChecksumBitFlip(t *testing.T) {
	frames := []Frame{
		NewFrame(0, 23, 0, 23),
		NewFrame(0x5F, 0x01, 0x8C, 0x02),
		NewFrame(0, 0, 0, 0),
		NewFrame(0xFF, 0xFF, 0xFF, 0xFF),
	}
	for _, f := range frames {
		for bit := 0; bit < 8; bit++ {
			bad := f ^ Frame(1<<uint(bit))
			for _, m := range []Model{Auto, DHT11, DHTxx} {
				_, _, st := Decode(bad, m)
				require.Equal(t, BadChecksum, st, "frame %#x bit %d model %s", uint64(f), bit, m)
			}
		}
	}
}

func TestAutoFallsBack(t *testing.T) {
	for _, b2 := range []byte{0, 1, 23, 60, 0x80, 0x81, 0xFF} {
		for _, b4 := range []byte{0, 1, 4, 23, 90, 200} {
			for _, b1 := range []byte{0, 0x5F, 0xF4} {
				for _, b3 := range []byte{0, 0x8C} {
					f := NewFrame(b1, b2, b3, b4)
					at, arh, ast := Decode(f, Auto)
					xt, xrh, xst := Decode(f, DHTxx)
					if xst == Ok {
						require.Equal(t, Ok, ast)
						require.Equal(t, xt, at)
						require.Equal(t, xrh, arh)
						continue
					}
					lt, lrh, lst := Decode(f, DHT11)
					require.Equal(t, lst, ast)
					require.Equal(t, lt, at)
					require.Equal(t, lrh, arh)
				}
			}
		}
	}

	// A DHT11 frame is out of range as DHTxx, so Auto reads it as DHT11.
	temp, rh, st := Decode(NewFrame(0, 23, 0, 23), Auto)
	require.Equal(t, Ok, st)
	require.Equal(t, 23.0, temp)
	require.Equal(t, 23.0, rh)
}

func TestEncode(t *testing.T) {
	temp, rh, st := Decode(EncodeDHTxx(-12.3, 55.5), DHTxx)
	require.Equal(t, Ok, st)
	require.Equal(t, -12.3, temp)
	require.Equal(t, 55.5, rh)

	temp, rh, st = Decode(EncodeDHT11(24, 61), DHT11)
	require.Equal(t, Ok, st)
	require.Equal(t, 24.0, temp)
	require.Equal(t, 61.0, rh)

	require.Equal(t, [5]byte{23, 0, 23, 0, 46}, EncodeDHT11(23, 23).Wire())
}

func TestEncodeDHT11Clamps(t *testing.T) {
	tests := []struct {
		temp, rh     float64
		wantT, wantH byte
	}{
		{-5, 40, 0, 40},
		{300, 40, 255, 40},
		{22.6, -1, 23, 0},
		{22.4, 1e9, 22, 255},
	}
	for _, tt := range tests {
		_, b1, b2, b3, b4 := EncodeDHT11(tt.temp, tt.rh).Bytes()
		require.Equal(t, byte(0), b1)
		require.Equal(t, byte(0), b3)
		require.Equal(t, tt.wantT, b2, "temp %v", tt.temp)
		require.Equal(t, tt.wantH, b4, "rh %v", tt.rh)
	}

	// A clamped frame still carries a valid checksum.
	require.True(t, EncodeDHT11(-5, 40).ChecksumOK())
}
