package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/dynamo/pkg/adapters/file"
	"github.com/aretw0/dynamo/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunDocumentStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Subdirectories(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "definitions/Double.dyf", []byte("<dynWorkspace/>")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"definitions/Double.dyf"}, names)

	_, err = os.Stat(filepath.Join(dir, "definitions", "Double.dyf"))
	assert.NoError(t, err)
}

func TestFileStore_RejectsEscapingNames(t *testing.T) {
	store := file.New(t.TempDir())
	err := store.Save(context.Background(), "../outside.dyn", nil)
	assert.Error(t, err)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestWatcher_ReportsChangedDocuments(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	w := file.NewWatcher(store, file.WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))
	require.NoError(t, store.Save(ctx, "Double.dyf", []byte("<dynWorkspace/>")))

	select {
	case name := <-changes:
		assert.Equal(t, "Double.dyf", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	for range changes {
	}
}

func TestWatchedStore_IsWatchableDocumentStore(t *testing.T) {
	var s any = file.NewWatchedStore(t.TempDir())
	_, ok := s.(ports.DocumentStore)
	assert.True(t, ok)
	_, ok = s.(ports.Watchable)
	assert.True(t, ok)
}
