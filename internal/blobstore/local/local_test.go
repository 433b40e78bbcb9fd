package local

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake jpeg data")

	key, err := store.Put(ctx, "image/jpeg", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/jpeg", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalStorePut_UniqueKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	ctx := context.Background()

	first, err := store.Put(ctx, "image/png", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	second, err := store.Put(ctx, "image/png", bytes.NewReader([]byte("two")))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestLocalStoreURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs/")
	require.NoError(t, err)

	assert.Equal(t, "/blobs/abc.jpg", store.URL("abc.jpg"))
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	ctx := context.Background()

	key, err := store.Put(ctx, "image/jpeg", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.Error(t, err)
}

func TestLocalStoreDelete_NotFound(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	err = store.Delete(context.Background(), "nonexistent.jpg")
	assert.Error(t, err)
}

func TestLocalStorePathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}
