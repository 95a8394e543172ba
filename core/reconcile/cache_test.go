package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_GetCachesPerCode(t *testing.T) {
	store := newFakeStore("INFR101")
	store.existing["cat-INFR101"] = []Fingerprint{fpA, fpA, fpB}
	inv := NewInventory(store)
	ctx := context.Background()

	cat, err := inv.Get(ctx, "INFR101")
	require.NoError(t, err)
	assert.Equal(t, CategoryID("cat-INFR101"), cat.ID)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []Fingerprint{fpA, fpB}, cat.Fingerprints())

	again, err := inv.Get(ctx, "INFR101")
	require.NoError(t, err)
	assert.Same(t, cat, again)
	assert.Equal(t, 1, store.resolveCalls["INFR101"])
	assert.Equal(t, 1, store.listCalls["cat-INFR101"])
}

func TestInventory_ResolutionErrorIsReturned(t *testing.T) {
	store := newFakeStore()
	inv := NewInventory(store)

	_, err := inv.Get(context.Background(), "INFR404")
	var cre *CategoryResolutionError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "INFR404", cre.Code)

	_, err = inv.Get(context.Background(), "INFR404")
	assert.ErrorAs(t, err, &cre)
	assert.Equal(t, 1, store.resolveCalls["INFR404"])
	assert.False(t, inv.Loaded("INFR404"))
}

func TestInventory_TransportErrorIsNotCached(t *testing.T) {
	store := newFakeStore("INFR101")
	store.resolveErr = errors.New("connection refused")
	inv := NewInventory(store)

	_, err := inv.Get(context.Background(), "INFR101")
	require.Error(t, err)
	assert.False(t, IsCategoryResolution(err))

	store.resolveErr = nil
	_, err = inv.Get(context.Background(), "INFR101")
	require.NoError(t, err)
	assert.Equal(t, 2, store.resolveCalls["INFR101"])
}

func TestInventory_Record(t *testing.T) {
	store := newFakeStore("INFR101")
	inv := NewInventory(store)
	inv.now = func() time.Time { return time.Unix(100, 0) }

	assert.Error(t, inv.Record("INFR101", fpA), "recording into an unloaded category")

	cat, err := inv.Get(context.Background(), "INFR101")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(100, 0), cat.Built)

	require.NoError(t, inv.Record("INFR101", fpA))
	require.NoError(t, inv.Record("INFR101", fpA))
	assert.True(t, cat.Contains(fpA))
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, 1, inv.Size())
}

func TestPacer_ItemDelayWithinBounds(t *testing.T) {
	p := NewPacer(time.Second, 5*time.Second, 15*time.Second)
	for i := 0; i < 100; i++ {
		d := p.ItemDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}

	fixed := NewPacer(2*time.Second, time.Second, 0)
	assert.Equal(t, 2*time.Second, fixed.ItemDelay())
}

func TestArtifact_Release(t *testing.T) {
	calls := 0
	a := NewArtifact(fpA, 3, nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	assert.Equal(t, 1, calls)

	b := BytesArtifact(contentA)
	content, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, contentA, content)
	assert.Equal(t, fpA, b.Fingerprint)
	assert.NoError(t, b.Release())
}
