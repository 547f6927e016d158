// internal/frame/codec.go
package frame

import "math/bits"

// Word is one packed 64-bit magnetometer reading as delivered by the sensor link.
//
// Layout (hi = bits 63..32, lo = bits 31..0):
//
//	hi: V(31) CH_HI(30..28) TS(27..20) Z(19..4) Y_HI(3..0)
//	lo: -(31) CH_LO(30..28) Y_LO(27..16) X(15..0)
type Word uint64

// Channels is the number of magnetometer channels in the sensor array.
const Channels = 64

// validBit is set by the sensor on every populated word.
const validBit = uint32(1) << 31

// Reading is the decoded content of one Word.
type Reading struct {
	X       int16
	Y       int16
	Z       int16
	Channel int
}

func halves(w Word) (hi, lo uint32) {
	return uint32(w >> 32), uint32(w)
}

// SignExtend16 interprets the low 16 bits of v as a two's complement value.
func SignExtend16(v uint32) int16 {
	return int16(uint16(v & 0xFFFF))
}

// Decode unpacks a word. It is total: every 64-bit value maps to exactly one Reading.
func Decode(w Word) Reading {
	hi, lo := halves(w)

	return Reading{
		X:       SignExtend16(lo & 0xFFFF),
		Y:       SignExtend16(((hi & 0xF) << 12) | ((lo >> 16) & 0xFFF)),
		Z:       SignExtend16((hi >> 4) & 0xFFFF),
		Channel: int(((hi>>28)&0x7)<<3 | ((lo >> 28) & 0x7)),
	}
}

// Timestamp returns the 8-bit sensor timestamp carried in the high half.
func Timestamp(w Word) uint8 {
	hi, _ := halves(w)
	return uint8(hi >> 20)
}

// Encode packs a reading. Channel is taken modulo 64.
// Decode(Encode(ch, x, y, z, ts)) == Reading{x, y, z, ch} for ch in [0, 63].
func Encode(channel int, x, y, z int16, timestamp uint8) Word {
	ch := uint32(channel) & 0x3F
	ux, uy, uz := uint32(uint16(x)), uint32(uint16(y)), uint32(uint16(z))

	lo := (ch&0x7)<<28 | (uy&0xFFF)<<16 | ux
	hi := validBit | (ch>>3)<<28 | uint32(timestamp)<<20 | uz<<4 | (uy>>12)&0xF

	return Word(uint64(hi)<<32 | uint64(lo))
}

// Parity reports whether the population count of all 64 bits is even.
func Parity(w Word) bool {
	return bits.OnesCount64(uint64(w))%2 == 0
}

// CountParityErrors returns how many words in the batch fail the parity check.
func CountParityErrors(words []Word) int {
	fails := 0
	for _, w := range words {
		if !Parity(w) {
			fails++
		}
	}
	return fails
}
