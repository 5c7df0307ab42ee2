package warehouse

import "time"

// Run describes one completed reconciliation pass over an input source.
type Run struct {
	ID         string
	Source     string
	Accepted   uint64
	Dropped    uint64
	StartedAt  time.Time
	FinishedAt time.Time
}
