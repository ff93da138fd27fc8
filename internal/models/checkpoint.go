package models

import "time"

// SyncCheckpoint is a durable cursor marking incremental sync progress for a
// (user, service, entity-type) triple. Checkpoints are created lazily on the
// first incremental run and replaced, never mutated, after every successfully
// persisted page.
type SyncCheckpoint struct {
	ID            string // uuid, empty until persisted
	UserID        string
	Service       string
	EntityType    string // "plays" or "likes"
	LastTimestamp time.Time
	Cursor        string
}

// WithProgress derives a checkpoint advanced to the given timestamp and
// cursor token. The timestamp only moves forward.
func (c SyncCheckpoint) WithProgress(ts time.Time, cursor string) SyncCheckpoint {
	c2 := c
	if ts.After(c2.LastTimestamp) {
		c2.LastTimestamp = ts
	}
	c2.Cursor = cursor
	return c2
}
