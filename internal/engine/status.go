package engine

import (
	"time"
)

// State is the sync state of one (tenant, data type) pair.
type State string

const (
	StateIdle    State = "idle"
	StatePushing State = "pushing"
	StatePulling State = "pulling"
	StateSynced  State = "synced"
	StateError   State = "error"
	StateOffline State = "offline"
)

// Status describes one (tenant, data type) pair: the current state and the
// timestamp of the last successful reconciliation.
type Status struct {
	State    State
	LastSync time.Time
}
