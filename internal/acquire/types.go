// internal/acquire/types.go
package acquire

import (
	"sync/atomic"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
)

// Batch is the result of one poll cycle.
type Batch struct {
	At           time.Time
	Words        []frame.Word // non-empty words only
	Empty        int          // zero words dropped
	ParityErrors int
	Err          error // non-nil means no frame this cycle
}

// Capture is a good batch tagged with the instant its read started.
type Capture struct {
	At    time.Time
	Words []frame.Word
}

// Stamp is the head position at the moment the motors settled.
type Stamp struct {
	Theta   int
	R       int
	Z       int
	Counter uint64
}

// Record pairs a captured batch with the position it was taken at.
type Record struct {
	Stamp Stamp
	Words []frame.Word
}

// Stats are the running acquisition counters.
type Stats struct {
	Batches      atomic.Uint64
	Words        atomic.Uint64
	EmptySlots   atomic.Uint64
	ParityErrors atomic.Uint64
	ShortReads   atomic.Uint64
	ReadErrors   atomic.Uint64
	StampMisses  atomic.Uint64
	Stale        atomic.Uint64 // captures read before the head settled
	Stamped      atomic.Uint64
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	Batches      uint64
	Words        uint64
	EmptySlots   uint64
	ParityErrors uint64
	ShortReads   uint64
	ReadErrors   uint64
	StampMisses  uint64
	Stale        uint64
	Stamped      uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Batches:      s.Batches.Load(),
		Words:        s.Words.Load(),
		EmptySlots:   s.EmptySlots.Load(),
		ParityErrors: s.ParityErrors.Load(),
		ShortReads:   s.ShortReads.Load(),
		ReadErrors:   s.ReadErrors.Load(),
		StampMisses:  s.StampMisses.Load(),
		Stale:        s.Stale.Load(),
		Stamped:      s.Stamped.Load(),
	}
}
