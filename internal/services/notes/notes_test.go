package notes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-system/internal/database/dbtest"
)

func TestCreateAndList(t *testing.T) {
	s := NewService(dbtest.New(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, content := range []string{"call supplier", "  restock flour ", "pay rent"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := s.Create(ctx, NoteInput{Content: content, IsImportant: i == 2})
		require.NoError(t, err)
	}

	notes, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "pay rent", notes[0].Content)
	assert.True(t, notes[0].IsImportant)
	assert.Equal(t, "restock flour", notes[1].Content)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateRejectsBlank(t *testing.T) {
	s := NewService(dbtest.New(t))
	_, err := s.Create(context.Background(), NoteInput{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyNote)
}

func TestDelete(t *testing.T) {
	s := NewService(dbtest.New(t))
	ctx := context.Background()

	n, err := s.Create(ctx, NoteInput{Content: "temp"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, n.ID))

	err = s.Delete(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
