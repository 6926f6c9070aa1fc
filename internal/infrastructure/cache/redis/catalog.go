// Package redis provides a read-through cache for active catalog lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

const (
	keyPrefix    = "docreq:catalog:active:"
	genKeyPrefix = "docreq:catalog:gen:"
)

// NewClient parses a redis:// URL and checks connectivity.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// CatalogCache decorates a CatalogStore. Only FindActiveByName is cached;
// writes invalidate the entry's name. Redis failures fall through to the
// underlying store.
//
// Every invalidation bumps a per-name generation. A read-through fill is
// written only if the generation it observed before loading is unchanged,
// so a load racing a deactivation never repopulates the stale entry.
type CatalogCache struct {
	next   ports.CatalogStore
	client *goredis.Client
	ttl    time.Duration
}

func NewCatalogCache(next ports.CatalogStore, client *goredis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{next: next, client: client, ttl: ttl}
}

func (c *CatalogCache) FindActiveByName(ctx context.Context, name string) (*domain.DocumentType, error) {
	key := keyPrefix + name

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry domain.DocumentType
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil && entry.Active {
			return &entry, nil
		}
		c.invalidate(ctx, name)
	case !errors.Is(err, goredis.Nil):
		slog.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	}

	gen, genErr := c.generation(ctx, c.client, name)

	entry, err := c.next.FindActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return entry, nil
	}
	if err := c.fill(ctx, name, gen, entry); err != nil && !errors.Is(err, errStaleFill) {
		slog.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
	return entry, nil
}

var errStaleFill = errors.New("catalog entry invalidated during load")

// fill stores entry unless name was invalidated after gen was read.
func (c *CatalogCache) fill(ctx context.Context, name string, gen int64, entry *domain.DocumentType) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	genKey := genKeyPrefix + name
	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := c.generation(ctx, tx, name)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, keyPrefix+name, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return errStaleFill
	}
	return err
}

type stringGetter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (c *CatalogCache) generation(ctx context.Context, cmd stringGetter, name string) (int64, error) {
	gen, err := cmd.Get(ctx, genKeyPrefix+name).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CatalogCache) Create(ctx context.Context, entry *domain.DocumentType) error {
	if err := c.next.Create(ctx, entry); err != nil {
		return err
	}
	c.invalidate(ctx, entry.Name)
	return nil
}

func (c *CatalogCache) Update(ctx context.Context, entry *domain.DocumentType) error {
	if err := c.next.Update(ctx, entry); err != nil {
		return err
	}
	c.invalidate(ctx, entry.Name)
	return nil
}

func (c *CatalogCache) GetByID(ctx context.Context, id string) (*domain.DocumentType, error) {
	return c.next.GetByID(ctx, id)
}

func (c *CatalogCache) ListActive(ctx context.Context) ([]domain.DocumentType, error) {
	return c.next.ListActive(ctx)
}

func (c *CatalogCache) invalidate(ctx context.Context, name string) {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, genKeyPrefix+name)
		pipe.Del(ctx, keyPrefix+name)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "catalog cache invalidation failed", "name", name, "error", err)
	}
}
