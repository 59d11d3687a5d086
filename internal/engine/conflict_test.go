package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookedly/replica/internal/models"
)

func TestCompare(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := func(ts time.Time, device string) models.SyncRecord {
		return models.SyncRecord{Timestamp: ts, DeviceID: device}
	}

	tests := []struct {
		name   string
		theirs models.SyncRecord
		ours   models.SyncRecord
		want   Outcome
	}{
		{
			name:   "newer remote wins",
			theirs: rec(base.Add(time.Millisecond), "aaa"),
			ours:   rec(base, "zzz"),
			want:   RemoteWins,
		},
		{
			name:   "older remote loses",
			theirs: rec(base, "zzz"),
			ours:   rec(base.Add(time.Millisecond), "aaa"),
			want:   LocalWins,
		},
		{
			name:   "same millisecond greater device wins",
			theirs: rec(base, "device-b"),
			ours:   rec(base, "device-a"),
			want:   RemoteWins,
		},
		{
			name:   "same millisecond lesser device loses",
			theirs: rec(base, "device-a"),
			ours:   rec(base, "device-b"),
			want:   LocalWins,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Compare(tt.theirs, tt.ours))
		})
	}
}

// Both replicas evaluating the same pair of records must reach the same
// winner, otherwise they never converge.
func TestCompareAntisymmetric(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pairs := []struct {
		a, b models.SyncRecord
	}{
		{
			a: models.SyncRecord{Timestamp: base, DeviceID: "alpha"},
			b: models.SyncRecord{Timestamp: base.Add(time.Second), DeviceID: "beta"},
		},
		{
			a: models.SyncRecord{Timestamp: base, DeviceID: "alpha"},
			b: models.SyncRecord{Timestamp: base, DeviceID: "beta"},
		},
	}

	for _, p := range pairs {
		forward := Compare(p.a, p.b)
		backward := Compare(p.b, p.a)
		require.NotEqual(t, forward, backward, "distinct records must have exactly one winner")
	}
}

func TestCompareDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	theirs := models.SyncRecord{Timestamp: base, DeviceID: "beta"}
	ours := models.SyncRecord{Timestamp: base, DeviceID: "alpha"}

	first := Compare(theirs, ours)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Compare(theirs, ours))
	}
}
