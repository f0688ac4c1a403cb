package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Database = (*FileProvider)(nil)
var _ Database = (*FirestoreProvider)(nil)

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "dumps")
	f, err := NewFileProvider(dir)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, dir, f.Dir())

	t.Run("list missing directory", func(t *testing.T) {
		snaps, err := f.ListSnapshots(ctx)
		require.NoError(t, err)
		assert.Empty(t, snaps)
	})

	t.Run("save creates directory", func(t *testing.T) {
		data := []byte(`{"version":1,"entities":[]}`)
		require.NoError(t, f.SaveSnapshot(ctx, Snapshot{Name: DefaultDumpFile, Version: 1, Data: data}))

		raw, err := os.ReadFile(filepath.Join(dir, DefaultDumpFile))
		require.NoError(t, err)
		assert.Equal(t, data, raw)
	})

	t.Run("load", func(t *testing.T) {
		snap, err := f.LoadSnapshot(ctx, DefaultDumpFile)
		require.NoError(t, err)
		assert.Equal(t, DefaultDumpFile, snap.Name)
		assert.Equal(t, 1, snap.Version)
		assert.False(t, snap.Updated.IsZero())
		assert.JSONEq(t, `{"version":1,"entities":[]}`, string(snap.Data))
	})

	t.Run("load not JSON", func(t *testing.T) {
		require.NoError(t, f.SaveSnapshot(ctx, Snapshot{Name: "raw", Data: []byte("not json")}))
		snap, err := f.LoadSnapshot(ctx, "raw")
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Version)
		assert.Equal(t, "not json", string(snap.Data))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
		snaps, err := f.ListSnapshots(ctx)
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Equal(t, DefaultDumpFile, snaps[0].Name)
		assert.Equal(t, "raw", snaps[1].Name)
		assert.Nil(t, snaps[0].Data)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.DeleteSnapshot(ctx, "raw"))
		_, err := f.LoadSnapshot(ctx, "raw")
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
		assert.ErrorIs(t, f.DeleteSnapshot(ctx, "raw"), ErrSnapshotNotFound)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "../escape", `a\b`, "__reserved__"} {
			assert.ErrorIs(t, f.SaveSnapshot(ctx, Snapshot{Name: name}), ErrInvalidName, name)
			_, err := f.LoadSnapshot(ctx, name)
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
	})
}

func TestNewFileProviderDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	f, err := NewFileProvider("")
	require.NoError(t, err)
	want, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, want, f.Dir())
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".oemof", "dumps", DefaultDumpFile), f.Path(DefaultDumpFile))
}
