package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/infrastructure/repository/memory"
)

type countingCatalog struct {
	*memory.CatalogRepository
	finds int
}

func (c *countingCatalog) FindActiveByName(ctx context.Context, name string) (*domain.DocumentType, error) {
	c.finds++
	return c.CatalogRepository.FindActiveByName(ctx, name)
}

// pausingCatalog blocks the first FindActiveByName after the store has
// answered, until release is closed.
type pausingCatalog struct {
	*memory.CatalogRepository
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingCatalog) FindActiveByName(ctx context.Context, name string) (*domain.DocumentType, error) {
	entry, err := p.CatalogRepository.FindActiveByName(ctx, name)
	if p.loaded != nil {
		close(p.loaded)
		<-p.release
		p.loaded = nil
	}
	return entry, err
}

func newCache(t *testing.T) (*CatalogCache, *countingCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &countingCatalog{CatalogRepository: memory.NewStore().Catalog()}
	return NewCatalogCache(store, client, time.Minute), store, mr
}

func seedEntry(t *testing.T, c *CatalogCache, id, name string) *domain.DocumentType {
	t.Helper()
	entry, err := domain.NewDocumentType(id, name, false, "", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, c.Create(context.Background(), entry))
	return entry
}

func TestFindActiveByNameReadsThrough(t *testing.T) {
	cache, store, mr := newCache(t)
	ctx := context.Background()
	seedEntry(t, cache, "dt-1", "transcript")

	first, err := cache.FindActiveByName(ctx, "transcript")
	require.NoError(t, err)
	second, err := cache.FindActiveByName(ctx, "transcript")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.finds)
	assert.True(t, mr.Exists(keyPrefix+"transcript"))

	ttl := mr.TTL(keyPrefix + "transcript")
	assert.Equal(t, time.Minute, ttl)
}

func TestUpdateInvalidatesCachedEntry(t *testing.T) {
	cache, store, mr := newCache(t)
	ctx := context.Background()
	entry := seedEntry(t, cache, "dt-1", "transcript")

	_, err := cache.FindActiveByName(ctx, "transcript")
	require.NoError(t, err)

	entry.Deactivate(time.Now().UTC())
	require.NoError(t, cache.Update(ctx, entry))
	assert.False(t, mr.Exists(keyPrefix+"transcript"))

	_, err = cache.FindActiveByName(ctx, "transcript")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
	assert.Equal(t, 2, store.finds)
}

func TestMissesAreNotCached(t *testing.T) {
	cache, store, mr := newCache(t)
	ctx := context.Background()

	_, err := cache.FindActiveByName(ctx, "ghost")
	require.Error(t, err)
	assert.False(t, mr.Exists(keyPrefix+"ghost"))
	assert.Equal(t, 1, store.finds)
}

func TestRedisOutageFallsBackToStore(t *testing.T) {
	cache, store, mr := newCache(t)
	ctx := context.Background()
	seedEntry(t, cache, "dt-1", "transcript")

	mr.Close()

	entry, err := cache.FindActiveByName(ctx, "transcript")
	require.NoError(t, err)
	assert.Equal(t, "dt-1", entry.ID)
	assert.Equal(t, 1, store.finds)
}

func TestCorruptPayloadIsReplaced(t *testing.T) {
	cache, store, mr := newCache(t)
	ctx := context.Background()
	seedEntry(t, cache, "dt-1", "transcript")
	require.NoError(t, mr.Set(keyPrefix+"transcript", "{not json"))

	entry, err := cache.FindActiveByName(ctx, "transcript")
	require.NoError(t, err)
	assert.Equal(t, "dt-1", entry.ID)
	assert.Equal(t, 1, store.finds)
}

func TestDeactivationDuringLoadIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	base := memory.NewStore().Catalog()
	entry, err := domain.NewDocumentType("dt-1", "transcript", false, "", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, base.Create(ctx, entry))

	store := &pausingCatalog{CatalogRepository: base, loaded: make(chan struct{}), release: make(chan struct{})}
	cache := NewCatalogCache(store, client, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.FindActiveByName(ctx, "transcript")
		done <- err
	}()

	<-store.loaded
	entry.Deactivate(time.Now().UTC())
	require.NoError(t, cache.Update(ctx, entry))
	close(store.release)
	require.NoError(t, <-done)

	assert.False(t, mr.Exists(keyPrefix+"transcript"))
	_, err = cache.FindActiveByName(ctx, "transcript")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}
