package artifacts

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/pkg/config"
)

func TestNewLocalStore(t *testing.T) {
	t.Run("CreateWithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		defaultPath := filepath.Join(tempDir, "artifacts")

		store, err := NewLocalStore(defaultPath)
		require.NoError(t, err)
		require.NotNil(t, store)

		info, err := os.Stat(defaultPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("CreateWithEmptyPath", func(t *testing.T) {
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		store, err := NewLocalStore("")
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Equal(t, "./storage", store.GetBasePath())
	})
}

func TestLocalStore_Upload(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	t.Run("UploadFromReader", func(t *testing.T) {
		content := []byte("fusion-doc snapshot bytes")
		err := store.Upload(context.Background(), "duid-1/snapshot.json", bytes.NewReader(content))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "duid-1", "snapshot.json"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadWithCanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Upload(ctx, "canceled.json", bytes.NewReader([]byte("x")))
		assert.Error(t, err)
	})
}

func TestLocalStore_DownloadAndDelete(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	content := []byte("rendered kernel text")
	require.NoError(t, store.Upload(context.Background(), "duid-2/kernel.cu", bytes.NewReader(content)))

	exists, err := store.Exists(context.Background(), "duid-2/kernel.cu")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := store.Download(context.Background(), "duid-2/kernel.cu")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	require.NoError(t, store.Delete(context.Background(), "duid-2/kernel.cu"))
	exists, err = store.Exists(context.Background(), "duid-2/kernel.cu")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("DownloadMissing", func(t *testing.T) {
		_, err := store.Download(context.Background(), "nonexistent.json")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "file not found")
	})

	t.Run("DeleteMissingIsNoOp", func(t *testing.T) {
		assert.NoError(t, store.Delete(context.Background(), "nonexistent.json"))
	})
}

func TestLocalStore_GetURL(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	url := store.GetURL("duid-3/idgraph.json")
	assert.Equal(t, filepath.Join(tempDir, "duid-3/idgraph.json"), url)
}

func TestNewStore(t *testing.T) {
	t.Run("CreateLocalStore", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := NewStore(&config.StorageConfig{Type: string(StoreTypeLocal), LocalPath: tempDir})
		require.NoError(t, err)
		_, ok := store.(*LocalStore)
		assert.True(t, ok)
	})

	t.Run("EmptyTypeDefaultsToLocal", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := NewStore(&config.StorageConfig{LocalPath: tempDir})
		require.NoError(t, err)
		_, ok := store.(*LocalStore)
		assert.True(t, ok)
	})
}
