package engine

import (
	"github.com/bookedly/replica/internal/models"
)

// Outcome is the decision of the conflict policy.
type Outcome int

const (
	// LocalWins keeps the local copy; the competing record is ignored.
	LocalWins Outcome = iota

	// RemoteWins replaces the local copy with the competing record.
	RemoteWins
)

func (o Outcome) String() string {
	if o == RemoteWins {
		return "remote_wins"
	}
	return "local_wins"
}

// Compare decides which of two competing records wins: last-writer-wins by
// timestamp, with the lexically greater device id breaking exact ties.
// The comparison is total and antisymmetric - swapping the arguments of two
// distinct records always inverts the outcome, and there is no unresolved
// tie. Two devices pushing within the same millisecond are disambiguated
// solely by device id.
func Compare(theirs, ours models.SyncRecord) Outcome {
	if theirs.Timestamp.After(ours.Timestamp) {
		return RemoteWins
	}

	if theirs.Timestamp.Equal(ours.Timestamp) && theirs.DeviceID > ours.DeviceID {
		return RemoteWins
	}

	return LocalWins
}
