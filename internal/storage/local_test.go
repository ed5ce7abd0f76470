package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "dinner.JPG", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	path := filepath.Join(dir, filepath.Base(ref))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RemoveSkipsExternalRefs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	// placeholder and external URLs are never touched
	assert.NoError(t, store.Remove(PlaceholderImageURL))
	assert.NoError(t, store.Remove("https://example.com/pic.jpg"))
	assert.NoError(t, store.Remove(""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_RemoveMissingFileFails(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Remove("uploads/never-existed.jpg"))
}

func TestIsLocalRef(t *testing.T) {
	assert.True(t, IsLocalRef("uploads/abc.jpg"))
	assert.False(t, IsLocalRef(PlaceholderImageURL))
	assert.False(t, IsLocalRef("http://example.com/x.png"))
	assert.False(t, IsLocalRef(""))
}
