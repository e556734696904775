package dht

import "math"

// Frame holds the 40 data bits of one sensor transmission, first bit
// received in bit 39.
type Frame uint64

const frameBits = 40

// NewFrame builds a frame from its four data bytes, deriving the
// checksum.
func NewFrame(b1, b2, b3, b4 byte) Frame {
	cs := b1 + b2 + b3 + b4
	return Frame(uint64(b4)<<32 | uint64(b3)<<24 | uint64(b2)<<16 |
		uint64(b1)<<8 | uint64(cs))
}

// Bytes splits the frame.  The checksum is the final byte on the wire.
func (f Frame) Bytes() (checksum, b1, b2, b3, b4 byte) {
	return byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24), byte(f >> 32)
}

// Wire returns the frame's bytes in the order the sensor sends them.
func (f Frame) Wire() [5]byte {
	cs, b1, b2, b3, b4 := f.Bytes()
	return [5]byte{b4, b3, b2, b1, cs}
}

// EncodeDHT11 is the inverse of DecodeDHT11, rounding to whole
// numbers.  A DHT11 has no sign bit, so values are clamped to 0..255.
func EncodeDHT11(temp, rh float64) Frame {
	return NewFrame(0, clampByte(temp), 0, clampByte(rh))
}

func clampByte(v float64) byte {
	v = math.Round(v)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}

// EncodeDHTxx is the inverse of DecodeDHTxx, rounding to tenths.
func EncodeDHTxx(temp, rh float64) Frame {
	t := int(math.Round(temp * 10))
	var sign byte
	if t < 0 {
		sign = 0x80
		t = -t
	}
	h := int(math.Round(rh * 10))
	return NewFrame(byte(t), sign|byte(t>>8)&0x7F, byte(h), byte(h>>8))
}

// ChecksumOK reports whether the checksum equals the low byte of the
// sum of the data bytes.
func (f Frame) ChecksumOK() bool {
	cs, b1, b2, b3, b4 := f.Bytes()
	return cs == b1+b2+b3+b4
}

// DecodeDHT11 reads whole-degree temperature from b2 and whole-percent
// humidity from b4.
func DecodeDHT11(b1, b2, b3, b4 byte) (temp, rh float64, ok bool) {
	temp = float64(b2)
	rh = float64(b4)
	ok = b1 == 0 && b3 == 0 && temp <= 60 && rh >= 10 && rh <= 90
	return temp, rh, ok
}

// DecodeDHTxx reads tenths of a degree from b2:b1 (bit 7 of b2 is the
// sign) and tenths of a percent from b4:b3.
func DecodeDHTxx(b1, b2, b3, b4 byte) (temp, rh float64, ok bool) {
	div := 10.0
	if b2&0x80 != 0 {
		div = -10.0
	}
	temp = float64(uint16(b2&0x7F)<<8|uint16(b1)) / div
	rh = float64(uint16(b4)<<8|uint16(b3)) / 10.0
	ok = rh <= 110 && temp >= -50 && temp <= 135
	return temp, rh, ok
}

// Decode validates f and interprets it for model m.  On BadChecksum
// and BadData the returned values are meaningless.
func Decode(f Frame, m Model) (temp, rh float64, st Status) {
	if !f.ChecksumOK() {
		return 0, 0, BadChecksum
	}
	_, b1, b2, b3, b4 := f.Bytes()

	var ok bool
	switch m {
	case DHT11:
		temp, rh, ok = DecodeDHT11(b1, b2, b3, b4)
	case DHTxx:
		temp, rh, ok = DecodeDHTxx(b1, b2, b3, b4)
	default:
		temp, rh, ok = DecodeDHTxx(b1, b2, b3, b4)
		if !ok {
			temp, rh, ok = DecodeDHT11(b1, b2, b3, b4)
		}
	}
	if !ok {
		return 0, 0, BadData
	}
	return temp, rh, Ok
}
