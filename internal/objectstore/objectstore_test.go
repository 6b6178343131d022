package objectstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
)

func TestPutGetDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	payload := []byte("fake image bytes")
	key, err := store.Put(payload, "png")
	require.NoError(t, err)
	require.NotEmpty(t, key)
	assert.True(t, strings.HasSuffix(key, ".png"))

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestGetUnknownKey(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("missing.png")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRejectsPathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("../etc/passwd")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = store.Get("")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDeleteMissingKey(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete("already-gone.jpg"))
}
