package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"grocery/catalog/internal/client"
	"grocery/catalog/internal/domain"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type ProductSource interface {
	GetSubcategoryProducts(ctx context.Context, subcategoryID int) ([]domain.RawProduct, error)
}

// SubcategoryCache keeps the flattened raw product list of each subcategory
// under its own TTL. Entries are independent: a failed fetch leaves every
// other entry untouched and is never cached.
type SubcategoryCache struct {
	source ProductSource
	store  *gocache.Cache
	group  singleflight.Group
}

func NewSubcategoryCache(source ProductSource, ttl time.Duration) *SubcategoryCache {
	return &SubcategoryCache{
		source: source,
		store:  gocache.New(ttl, 2*ttl),
	}
}

// Products returns the raw products of a subcategory. The returned slice and
// records are shared and must not be modified. A 403 from upstream yields an
// empty, uncached list. Concurrent callers for the same id share one fetch,
// detached from any single caller's cancellation.
func (c *SubcategoryCache) Products(ctx context.Context, subcategoryID int) ([]domain.RawProduct, error) {
	key := strconv.Itoa(subcategoryID)
	if v, ok := c.store.Get(key); ok {
		return v.([]domain.RawProduct), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}

		products, err := c.source.GetSubcategoryProducts(context.WithoutCancel(ctx), subcategoryID)
		if errors.Is(err, client.ErrForbidden) {
			return []domain.RawProduct{}, nil
		}
		if err != nil {
			return nil, err
		}

		if products == nil {
			products = []domain.RawProduct{}
		}
		c.store.Set(key, products, gocache.DefaultExpiration)
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.RawProduct), nil
	}
}

// Len returns the number of cached subcategories, expired ones included until
// the janitor removes them
func (c *SubcategoryCache) Len() int {
	return c.store.ItemCount()
}
