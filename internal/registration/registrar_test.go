package registration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/ocr"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

func TestFromFieldsAddsToRoster(t *testing.T) {
	ctx := context.Background()
	students, err := roster.New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	reg := New(students, ocr.New("", true), nil, nil)
	rec, err := reg.FromFields(ctx, ocr.Student{
		Name:   "Amina Yusuf",
		Class:  "3",
		Gender: "Female",
	}, "")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Empty(t, rec.PhotoURL, "no uploader configured")
	assert.Empty(t, rec.CodeURL)

	stored, err := students.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina Yusuf", stored.Name)
}

func TestFromCardUsesOCRSkipGuess(t *testing.T) {
	ctx := context.Background()
	students, err := roster.New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)

	reg := New(students, ocr.New("", true), nil, nil)
	rec, err := reg.FromCard(ctx, Job{Image: "data:image/png;base64,xyz"})
	require.NoError(t, err)

	assert.Equal(t, "Test Student", rec.Name)
	assert.Equal(t, "5", rec.Class)
	assert.Equal(t, ocr.DefaultField, rec.FatherName)

	all, err := students.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	students, err := roster.New(ctx, store.NewMemory(), nil)
	require.NoError(t, err)
	reg := New(students, ocr.New("", true), nil, nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec, err := reg.FromFields(ctx, ocr.Student{Name: "X"}, "")
		require.NoError(t, err)
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
}
