package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/store"
)

func hasPresent(t *testing.T, led *Ledger, studentID, date string) bool {
	t.Helper()
	ok, err := led.HasPresentToday(context.Background(), studentID, date)
	require.NoError(t, err)
	return ok
}

func TestRecordAndLookups(t *testing.T) {
	ctx := context.Background()
	led, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	require.NoError(t, led.Record(ctx, PresenceEvent{ID: "e1", StudentID: "s1", Date: "2024-01-10", Status: StatusPresent, Time: "08:00:00"}))
	require.NoError(t, led.Record(ctx, PresenceEvent{ID: "e2", StudentID: "s2", Date: "2024-01-10", Status: StatusPresent, Time: "08:01:00"}))
	require.NoError(t, led.Record(ctx, PresenceEvent{ID: "e3", StudentID: "s1", Date: "2024-01-11", Status: StatusPresent, Time: "08:02:00"}))

	assert.True(t, hasPresent(t, led, "s1", "2024-01-10"))
	assert.True(t, hasPresent(t, led, "s1", "2024-01-11"))
	assert.False(t, hasPresent(t, led, "s1", "2024-01-12"))
	assert.False(t, hasPresent(t, led, "s3", "2024-01-10"))

	byDate, err := led.ByDate(ctx, "2024-01-10")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "e1", byDate[0].ID)
	assert.Equal(t, "e2", byDate[1].ID)

	all, err := led.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHasPresentTodayIgnoresOtherStatuses(t *testing.T) {
	ctx := context.Background()
	led, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	require.NoError(t, led.Record(ctx, PresenceEvent{ID: "e1", StudentID: "s1", Date: "2024-01-10", Status: "late", Time: "09:30:00"}))

	assert.False(t, hasPresent(t, led, "s1", "2024-01-10"))
}

func TestRecordAppendsUnconditionally(t *testing.T) {
	// Dedup belongs to the scan controller; bulk imports may legally
	// write the same student/date twice.
	ctx := context.Background()
	led, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	evt := PresenceEvent{ID: "e1", StudentID: "s1", Date: "2024-01-10", Status: StatusPresent, Time: "08:00:00"}
	require.NoError(t, led.Record(ctx, evt))
	evt.ID = "e2"
	require.NoError(t, led.Record(ctx, evt))

	all, err := led.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLedgerSurvivesReload(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemory()

	led, err := New(ctx, blob, nil)
	require.NoError(t, err)
	require.NoError(t, led.Record(ctx, PresenceEvent{ID: "e1", StudentID: "s1", Date: "2024-01-10", Status: StatusPresent, Time: "08:00:00"}))

	reloaded, err := New(ctx, blob, nil)
	require.NoError(t, err)
	all, err := reloaded.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "e1", all[0].ID)
	assert.True(t, hasPresent(t, reloaded, "s1", "2024-01-10"))
}

// Two ledgers over one blob: appends from either instance must be
// visible to the other and never overwritten.
func TestLedgersSharingABlobKeepBothAppends(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemory()

	first, err := New(ctx, blob, nil)
	require.NoError(t, err)
	second, err := New(ctx, blob, nil)
	require.NoError(t, err)

	require.NoError(t, first.Record(ctx, PresenceEvent{ID: "e1", StudentID: "s1", Date: "2024-01-10", Status: StatusPresent, Time: "08:00:00"}))
	require.NoError(t, second.Record(ctx, PresenceEvent{ID: "e2", StudentID: "s2", Date: "2024-01-10", Status: StatusPresent, Time: "08:01:00"}))

	assert.True(t, hasPresent(t, second, "s1", "2024-01-10"))

	all, err := first.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"e1", "e2"}, []string{all[0].ID, all[1].ID})
}
