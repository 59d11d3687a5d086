// Package remote defines the remote store collaborator the sync engine
// reconciles against, plus the connectivity signal that drives offline
// transitions.
package remote

import (
	"context"
	"errors"

	"github.com/bookedly/replica/internal/models"
)

// Sentinel errors
var (
	// ErrUnavailable is returned when the remote store cannot be reached.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrRejected is returned when the remote store refused a record.
	ErrRejected = errors.New("remote store rejected record")
)

// Store is the remote collaborator. Push overwrites the record for the
// (tenant, data type) pair; Pull lists the newest record per data type,
// ordered newest-first.
type Store interface {
	Push(ctx context.Context, rec models.SyncRecord) error
	Pull(ctx context.Context, tenantID string) ([]models.SyncRecord, error)
}

// Pinger is implemented by remotes that can be probed for reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connectivity delivers online/offline transitions from the host
// environment to the sync engine.
type Connectivity interface {
	// Online reports the current state.
	Online() bool

	// Changes yields a value on every state transition.
	Changes() <-chan bool
}
