package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutList(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	run := uuid.New()

	info, err := store.Put(ctx, run, "acme/rapor.json", "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "acme_rapor.json", info.Path)
	assert.Equal(t, int64(11), info.Size)
	assert.Equal(t, run, info.RunID)

	data, err := os.ReadFile(store.PathOf(info))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	_, err = store.Put(ctx, run, "acme/rapor.json", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	files, err := store.List(ctx, run)
	require.NoError(t, err)
	require.Len(t, files, 1, "same name replaces the artifact")
	assert.Equal(t, int64(2), files[0].Size)

	empty, err := store.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	run := uuid.New()

	info, err := store.Put(ctx, run, "a.csv", "text/csv", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, run, info.ID))

	_, err = os.Stat(store.PathOf(info))
	assert.True(t, os.IsNotExist(err))
	files, err := store.List(ctx, run)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.Error(t, store.Delete(ctx, run, info.ID))
}

func TestLocalStorage_Prune(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	old, fresh := uuid.New(), uuid.New()
	_, err = store.Put(ctx, old, "a.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(base, "keep-me"), 0755))

	cutoff := time.Now().Add(time.Second)
	_, err = store.Put(ctx, fresh, "b.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)

	removed, err := store.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = store.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = os.Stat(filepath.Join(base, "keep-me"))
	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeFilename("../etc/passwd"))
	assert.Equal(t, "a_b_c.xlsx", sanitizeFilename("a:b|c.xlsx"))
}
