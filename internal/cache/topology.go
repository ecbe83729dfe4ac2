package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"grocery/catalog/internal/domain"

	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const treeKey = "tree"

// staleRetryInterval is how long a last known tree is served after a failed
// refresh before upstream is tried again
const staleRetryInterval = 15 * time.Second

type TreeSource interface {
	GetCategories(ctx context.Context) ([]domain.CategoryNode, error)
}

type treeEntry struct {
	tree     []domain.CategoryNode
	storedAt time.Time
}

// TopologyCache keeps the category tree for a short TTL. When a refresh fails
// it falls back to the last tree it ever fetched.
type TopologyCache struct {
	source    TreeSource
	ttl       time.Duration
	store     *gocache.Cache
	group     singleflight.Group
	lastKnown atomic.Pointer[treeEntry]
}

func NewTopologyCache(source TreeSource, ttl time.Duration) *TopologyCache {
	return &TopologyCache{
		source: source,
		ttl:    ttl,
		store:  gocache.New(ttl, 2*ttl),
	}
}

// Tree returns the cached tree or fetches a fresh one. The returned slice is
// shared and must not be modified. Concurrent callers share one fetch, which
// runs detached from any single caller; each caller stops waiting when its own
// ctx is done.
func (c *TopologyCache) Tree(ctx context.Context) ([]domain.CategoryNode, error) {
	if v, ok := c.store.Get(treeKey); ok {
		return v.(*treeEntry).tree, nil
	}

	ch := c.group.DoChan(treeKey, func() (any, error) {
		if v, ok := c.store.Get(treeKey); ok {
			return v, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*treeEntry).tree, nil
	}
}

func (c *TopologyCache) refresh(ctx context.Context) (*treeEntry, error) {
	tree, err := c.source.GetCategories(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
		if last := c.lastKnown.Load(); last != nil {
			log.WithFields(log.Fields{
				"stored_at": last.storedAt.Format(time.RFC3339),
				"error":     err,
			}).Warn("⚠️ Category tree refresh failed, serving last known tree")
			c.store.Set(treeKey, last, min(c.ttl, staleRetryInterval))
			return last, nil
		}
		return nil, err
	}

	entry := &treeEntry{tree: tree, storedAt: time.Now()}
	c.store.Set(treeKey, entry, gocache.DefaultExpiration)
	c.lastKnown.Store(entry)

	log.Infof("🌳 Category tree refreshed: %d categories", len(tree))
	return entry, nil
}

// StoredAt returns when the current tree was fetched, zero if never
func (c *TopologyCache) StoredAt() time.Time {
	if last := c.lastKnown.Load(); last != nil {
		return last.storedAt
	}
	return time.Time{}
}
