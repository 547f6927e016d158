// internal/status/snapshot.go
package status

import "github.com/tamzrod/magscan/internal/motion"

// Snapshot is what the sinks are allowed to deliver.
// It contains no logic and no memory of the past.
type Snapshot struct {
	State        uint16 `json:"state"`
	Enabled      bool   `json:"enabled"`
	Theta        int    `json:"theta"`
	R            int    `json:"r"`
	Z            int    `json:"z"`
	Counter      uint64 `json:"counter"`
	ParityErrors uint64 `json:"parity_errors"`
	StampMisses  uint64 `json:"stamp_misses"`
	ShortReads   uint64 `json:"short_reads"`
	Sent         uint64 `json:"sent"`
}

// StateCode maps a sweep state onto the block's state code.
func StateCode(s motion.State) uint16 {
	switch s {
	case motion.Sweeping:
		return StateSweeping
	case motion.Homing:
		return StateHoming
	case motion.SeekingTarget:
		return StateSeeking
	default:
		return StateIdle
	}
}
