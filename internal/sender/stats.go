// internal/sender/stats.go
package sender

import "sync/atomic"

// Stats counts delivery outcomes for one sender.
type Stats struct {
	Sent       atomic.Uint64
	Failed     atomic.Uint64
	Reconnects atomic.Uint64
}
