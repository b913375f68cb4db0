package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore
// implementation adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405") + HomeExt
	data := []byte(`<dynWorkspace X="0" Y="0"></dynWorkspace>`)

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, name, data)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, data, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		next := []byte(`<dynWorkspace X="1" Y="2"></dynWorkspace>`)
		require.NoError(t, store.Save(ctx, name, next))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, next, loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+name)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Empty Name", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, "", data))
		_, err := store.Load(ctx, "")
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, data))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")

		assert.NoError(t, store.Delete(ctx, name), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		home := "list-" + name
		custom := "list-" + time.Now().Format("150405") + CustomExt
		require.NoError(t, store.Save(ctx, home, data))
		require.NoError(t, store.Save(ctx, custom, data))
		defer func() {
			_ = store.Delete(ctx, home)
			_ = store.Delete(ctx, custom)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, home)
		assert.Contains(t, names, custom)
		assert.IsNonDecreasing(t, names)
	})
}
