package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/store"
)

func record(id, name string) StudentRecord {
	return StudentRecord{ID: id, Name: name, Class: "5", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestAddFindAll(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, record("s1", "Amina")))
	require.NoError(t, s.Add(ctx, record("s2", "Bilal")))
	require.NoError(t, s.Add(ctx, record("s3", "Chan")))

	got, err := s.FindByID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "Bilal", got.Name)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, record("s1", "Amina")))
	require.NoError(t, s.Add(ctx, record("s2", "Bilal")))

	require.NoError(t, s.Remove(ctx, "s1"))
	_, err = s.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, s.Remove(ctx, "s1"), ErrNotFound)
}

func TestRosterSurvivesReload(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemory()

	s, err := New(ctx, blob, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, record("s1", "Amina")))
	require.NoError(t, s.Add(ctx, record("s2", "Bilal")))

	reloaded, err := New(ctx, blob, nil)
	require.NoError(t, err)
	all, err := reloaded.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Amina", all[0].Name)
	assert.Equal(t, "Bilal", all[1].Name)
}

// Two stores over one blob model the api and the worker sharing the
// key: writes from either side must be visible to the other, and a
// write from one must never erase the other's.
func TestStoresSharingABlobSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemory()

	workerSide, err := New(ctx, blob, nil)
	require.NoError(t, err)
	apiSide, err := New(ctx, blob, nil)
	require.NoError(t, err)

	require.NoError(t, workerSide.Add(ctx, record("w1", "Queued Registrant")))

	got, err := apiSide.FindByID(ctx, "w1")
	require.NoError(t, err, "worker-registered student must resolve on the api side")
	assert.Equal(t, "Queued Registrant", got.Name)

	require.NoError(t, apiSide.Add(ctx, record("a1", "Direct Registrant")))

	fresh, err := New(ctx, blob, nil)
	require.NoError(t, err)
	all, err := fresh.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "worker-registered student should survive the api's write")
	assert.Equal(t, []string{"w1", "a1"}, []string{all[0].ID, all[1].ID})

	_, err = workerSide.FindByID(ctx, "a1")
	assert.NoError(t, err)
}

func TestAllReturnsACopy(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, record("s1", "Amina")))

	all, err := s.All(ctx)
	require.NoError(t, err)
	all[0].Name = "changed"

	got, err := s.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Amina", got.Name)
}
