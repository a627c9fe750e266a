package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

func TestInstrumentKeepsVersionedWrites(t *testing.T) {
	store := repo.Instrument(repo.NewMemory())
	vp, ok := store.(repo.VersionedPutter)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, vp.PutIfVersion(ctx, "c", "k", repo.Fields{repo.VersionField: 1}, 0))
	assert.ErrorIs(t, vp.PutIfVersion(ctx, "c", "k", repo.Fields{repo.VersionField: 1}, 0), repo.ErrVersionMismatch)

	doc, err := store.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Fields.Int(repo.VersionField))

	_, err = store.Get(ctx, "c", "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

type plainStore struct{ repo.Store }

func TestInstrumentWithoutVersionedWrites(t *testing.T) {
	store := repo.Instrument(plainStore{repo.NewMemory()})
	_, ok := store.(repo.VersionedPutter)
	assert.False(t, ok)
	require.NoError(t, store.Put(context.Background(), "c", "k", repo.Fields{"a": "b"}))
}
