package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"grocery/catalog/internal/client"
	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"
	"grocery/catalog/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type TopologySource interface {
	Tree(ctx context.Context) ([]domain.CategoryNode, error)
	StoredAt() time.Time
}

type ProductLister interface {
	Products(ctx context.Context, subcategoryID int) ([]domain.RawProduct, error)
	Len() int
}

type SearchStore interface {
	Get(query string, filters domain.Filters) (domain.SearchResult, bool)
	Set(query string, filters domain.Filters, result domain.SearchResult)
	Clear(identity string) error
	Stats() domain.CacheStats
}

type Service struct {
	topology     TopologySource
	products     ProductLister
	searchCache  SearchStore
	shoppingList repository.ShoppingListRepository
	config       config.SearchConfig
	maxWorkers   int
}

func NewService(
	topology TopologySource,
	products ProductLister,
	searchCache SearchStore,
	shoppingList repository.ShoppingListRepository,
	searchConfig config.SearchConfig,
	maxWorkers int,
) *Service {
	return &Service{
		topology:     topology,
		products:     products,
		searchCache:  searchCache,
		shoppingList: shoppingList,
		config:       searchConfig,
		maxWorkers:   max(1, maxWorkers),
	}
}

// subcategoryOutcome is the per-subcategory result of the crawl: either the
// raw listing or the error that prevented fetching it
type subcategoryOutcome struct {
	subcategory domain.Subcategory
	products    []domain.RawProduct
	err         error
}

// Search runs a full catalog search, answering from the search cache when possible.
// Only a too-short query, an unavailable category tree or caller cancellation
// produce an error; failed subcategories are reported in the result stats.
func (s *Service) Search(ctx context.Context, query string, filters domain.Filters) (domain.SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.config.MinQueryLength {
		return domain.SearchResult{}, &domain.ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("must be at least %d characters", s.config.MinQueryLength),
		}
	}

	if cached, ok := s.searchCache.Get(query, filters); ok {
		log.Debugf("🔎 Search %q served from cache (%d products)", query, cached.TotalFound)
		return cached, nil
	}

	tree, err := s.topology.Tree(ctx)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to load category tree: %w", err)
	}

	q := newQuery(query, s.config)
	subcategories := uniqueSubcategories(tree)

	outcomes := s.fetchAll(ctx, subcategories)
	if err := ctx.Err(); err != nil {
		return domain.SearchResult{}, fmt.Errorf("search cancelled: %w", err)
	}

	stats := domain.SearchStats{SubcategoriesVisited: len(subcategories)}
	filter := compileFilters(filters)
	seen := make(map[string]struct{})
	products := make([]domain.Product, 0)

	for _, outcome := range outcomes {
		if outcome.err != nil {
			stats.SubcategoriesFailed++
			log.WithFields(log.Fields{
				"subcategory_id": outcome.subcategory.ID,
				"error":          outcome.err,
			}).Debug("Subcategory skipped")
			continue
		}
		stats.SubcategoriesSucceeded++

		for _, raw := range outcome.products {
			if !q.matches(raw) {
				continue
			}

			product, err := client.NormalizeProduct(raw)
			if err != nil {
				continue
			}
			product.CategoryLabel = outcome.subcategory.ParentName
			product.SubcategoryLabel = outcome.subcategory.Name

			if !filter.allows(product) {
				continue
			}

			if _, dup := seen[product.ID]; dup {
				continue
			}
			seen[product.ID] = struct{}{}
			products = append(products, product)
		}
	}

	rank(products, q, s.config)

	result := domain.SearchResult{
		Products:              products,
		Query:                 query,
		TotalFound:            len(products),
		SearchDurationSeconds: time.Since(start).Seconds(),
		AppliedFilters:        filters.Map(),
		Stats:                 stats,
	}

	s.searchCache.Set(query, filters, result)

	log.Infof("🔎 Search %q: %d products from %d/%d subcategories (%d failed) in %.2fs",
		query, result.TotalFound, stats.SubcategoriesSucceeded, stats.SubcategoriesVisited,
		stats.SubcategoriesFailed, result.SearchDurationSeconds)

	return result, nil
}

// uniqueSubcategories lists every subcategory once, in tree order
func uniqueSubcategories(tree []domain.CategoryNode) []domain.Subcategory {
	visited := make(map[int]struct{})
	unique := make([]domain.Subcategory, 0)
	for _, sub := range domain.Subcategories(tree) {
		if _, ok := visited[sub.ID]; ok {
			continue
		}
		visited[sub.ID] = struct{}{}
		unique = append(unique, sub)
	}
	return unique
}

// fetchAll fetches every subcategory with at most maxWorkers in flight.
// Outcomes keep the order of subcategories regardless of completion order.
// Once ctx is done, fetches that have not started are abandoned.
func (s *Service) fetchAll(ctx context.Context, subcategories []domain.Subcategory) []subcategoryOutcome {
	outcomes := make([]subcategoryOutcome, len(subcategories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for i, sub := range subcategories {
		i, sub := i, sub
		outcomes[i].subcategory = sub

		if err := gctx.Err(); err != nil {
			outcomes[i].err = err
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].products, outcomes[i].err = s.products.Products(gctx, sub.ID)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// ClearCache empties the search cache on behalf of identity
func (s *Service) ClearCache(identity string) error {
	return s.searchCache.Clear(identity)
}

// CacheStats reports the search cache along with the age of the category
// tree and how many subcategory listings are held
func (s *Service) CacheStats() domain.CacheStats {
	stats := s.searchCache.Stats()
	stats.TreeStoredAt = s.topology.StoredAt()
	stats.CachedSubcategories = s.products.Len()
	return stats
}

// AddToShoppingList hands a search result to the shopping list store
func (s *Service) AddToShoppingList(ctx context.Context, identity string, product domain.Product, quantity int) error {
	if s.shoppingList == nil {
		return errors.New("shopping list store is not configured")
	}
	if strings.TrimSpace(identity) == "" {
		return &domain.ValidationError{Field: "identity", Message: "is required"}
	}
	if strings.TrimSpace(product.ID) == "" {
		return &domain.ValidationError{Field: "product.id", Message: "is required"}
	}
	if quantity < 1 {
		quantity = 1
	}

	item := domain.ShoppingListItem{
		Owner:     identity,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}

	if err := s.shoppingList.AddItem(ctx, item); err != nil {
		return fmt.Errorf("failed to add %s to shopping list: %w", product.ID, err)
	}

	log.WithFields(log.Fields{
		"owner":      identity,
		"product_id": product.ID,
		"quantity":   quantity,
	}).Info("🛒 Added product to shopping list")
	return nil
}
