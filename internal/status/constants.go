// internal/status/constants.go
package status

// Scanner status block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerBlock is the fixed number of holding registers in the block.
const SlotsPerBlock = 20

// ---- SLOT INDICES ----

// SlotState holds the sweep state code.
const SlotState = 0

// SlotEnabled is 1 while acquisition is enabled.
const SlotEnabled = 1

// SlotTheta, SlotR and SlotZ hold the head position in steps.
const (
	SlotTheta = 2
	SlotR     = 3
	SlotZ     = 4
)

// SlotCounterHi and SlotCounterLo hold the low 32 bits of the step counter.
const (
	SlotCounterHi = 5
	SlotCounterLo = 6
)

// Error counters saturate at 65535.
const (
	SlotParityErrors = 7
	SlotStampMisses  = 8
	SlotShortReads   = 9
)

// SlotReserved is left as zero.
const SlotReserved = 10

// ---- SCANNER NAME ----

// SlotNameStart is the first slot used for the scanner name.
// The name is always placed at the END of the status block.
const SlotNameStart = 11

// SlotNameSlots is the number of slots reserved for the name.
const SlotNameSlots = 8

// SlotNameEnd is the last slot used for the name (inclusive).
const SlotNameEnd = SlotNameStart + SlotNameSlots - 1

// NameMaxChars is the maximum number of ASCII characters stored for the name.
const NameMaxChars = 16

// ---- STATE CODES ----

const (
	StateIdle     uint16 = 0
	StateSweeping uint16 = 1
	StateHoming   uint16 = 2
	StateSeeking  uint16 = 3
)
