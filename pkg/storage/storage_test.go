package storage

import (
	"context"
	"testing"

	"doc-review-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := Key("sess-1", "QS-Plan.docx")
	assert.Equal(t, "sess-1/QS-Plan.docx", key)

	require.NoError(t, s.Put(ctx, key, []byte("content"), "application/octet-stream"))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, key), "deleting a missing object is not an error")
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), "../escape", []byte("x"), ""))
}

func TestKey_StripsDirectories(t *testing.T) {
	assert.Equal(t, "s/evil.txt", Key("s", "../../evil.txt"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
