// internal/status/encode.go
package status

// Encode converts a Snapshot into a full status block, name included.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, name string) []uint16 {
	regs := make([]uint16, SlotsPerBlock)

	regs[SlotState] = s.State
	if s.Enabled {
		regs[SlotEnabled] = 1
	}
	regs[SlotTheta] = clamp(int64(s.Theta))
	regs[SlotR] = clamp(int64(s.R))
	regs[SlotZ] = clamp(int64(s.Z))
	regs[SlotCounterHi] = uint16(s.Counter >> 16)
	regs[SlotCounterLo] = uint16(s.Counter)
	regs[SlotParityErrors] = saturate(s.ParityErrors)
	regs[SlotStampMisses] = saturate(s.StampMisses)
	regs[SlotShortReads] = saturate(s.ShortReads)

	copy(regs[SlotNameStart:SlotNameEnd+1], EncodeName(name))
	return regs
}

// EncodeName packs up to 16 ASCII characters into 8 registers,
// two bytes per register in big-endian order.
func EncodeName(name string) []uint16 {
	out := make([]uint16, SlotNameSlots)

	b := []byte(name)
	if len(b) > NameMaxChars {
		b = b[:NameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < NameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}

// saturate: counters MUST NOT wrap in the block.
func saturate(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func clamp(v int64) uint16 {
	if v < 0 {
		return 0
	}
	return saturate(uint64(v))
}
