package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"
	"grocery/catalog/internal/proxy"

	"github.com/spf13/cast"
	log "github.com/sirupsen/logrus"
)

// ErrForbidden is returned for a 403 from the anti-bot layer. Callers treat
// it as "no data" rather than a failure.
var ErrForbidden = errors.New("catalog refused the request (403)")

type CatalogClient interface {
	GetCategories(ctx context.Context) ([]domain.CategoryNode, error)
	GetSubcategoryProducts(ctx context.Context, subcategoryID int) ([]domain.RawProduct, error)
}

type catalogClient struct {
	config      config.CatalogConfig
	treeHTTP    Fetcher
	productHTTP Fetcher
}

func NewCatalogClient(cfg config.CatalogConfig, proxySupplier proxy.ProxySupplier) CatalogClient {
	rl := NewLimiter(cfg.MaxRequestsPerSecond)
	return NewCatalogClientWithFetchers(cfg,
		NewFetcher(cfg, cfg.TreeTimeout, rl, proxySupplier),
		NewFetcher(cfg, cfg.SubcategoryTimeout, rl, proxySupplier),
	)
}

// NewCatalogClientWithFetchers lets callers plug their own fetchers for the
// tree and the product listings
func NewCatalogClientWithFetchers(cfg config.CatalogConfig, treeHTTP, productHTTP Fetcher) CatalogClient {
	return &catalogClient{
		config:      cfg,
		treeHTTP:    treeHTTP,
		productHTTP: productHTTP,
	}
}

type categoriesPayload struct {
	Results *[]categoryPayload `json:"results"`
}

type categoryPayload struct {
	ID         any               `json:"id"`
	Name       string            `json:"name"`
	Categories []categoryPayload `json:"categories"`
}

type subcategoryPayload struct {
	Products   []domain.RawProduct `json:"products"`
	Categories []struct {
		Products []domain.RawProduct `json:"products"`
	} `json:"categories"`
}

func (c *catalogClient) categoriesURL() string {
	return fmt.Sprintf("%s/categories/?%s", c.config.BaseURL, c.query())
}

func (c *catalogClient) subcategoryURL(id int) string {
	return fmt.Sprintf("%s/categories/%d/?%s", c.config.BaseURL, id, c.query())
}

func (c *catalogClient) query() string {
	q := url.Values{}
	q.Set("lang", c.config.Lang)
	q.Set("wh", c.config.Warehouse)
	return q.Encode()
}

func (c *catalogClient) GetCategories(ctx context.Context) ([]domain.CategoryNode, error) {
	resp, err := c.treeHTTP.Fetch(ctx, c.categoriesURL())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch category tree: %w", domain.ErrUpstreamUnavailable, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: category tree returned HTTP %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload categoriesPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode category tree: %w", domain.ErrUpstreamUnavailable, err)
	}

	if payload.Results == nil {
		return nil, fmt.Errorf("%w: category tree has no results list", domain.ErrUpstreamUnavailable)
	}

	tree := toCategoryNodes(*payload.Results)
	log.Debugf("Fetched category tree with %d top-level categories", len(tree))
	return tree, nil
}

func toCategoryNodes(payload []categoryPayload) []domain.CategoryNode {
	if len(payload) == 0 {
		return nil
	}
	nodes := make([]domain.CategoryNode, 0, len(payload))
	for _, p := range payload {
		id, err := cast.ToIntE(p.ID)
		if err != nil || p.ID == nil {
			log.Debugf("Skipping category %q with unusable id %v", p.Name, p.ID)
			continue
		}
		nodes = append(nodes, domain.CategoryNode{
			ID:         id,
			Name:       p.Name,
			Categories: toCategoryNodes(p.Categories),
		})
	}
	return nodes
}

func (c *catalogClient) GetSubcategoryProducts(ctx context.Context, subcategoryID int) ([]domain.RawProduct, error) {
	resp, err := c.productHTTP.Fetch(ctx, c.subcategoryURL(subcategoryID))
	if err != nil {
		entry := log.WithFields(log.Fields{
			"subcategory_id": subcategoryID,
			"error":          err,
		})
		if ctx.Err() != nil {
			entry.Debug("Subcategory fetch cancelled")
		} else {
			entry.Warn("⚠️ Subcategory fetch failed after retries")
		}
		return nil, &domain.FetchError{SubcategoryID: subcategoryID, Err: err}
	}

	if resp.StatusCode == http.StatusForbidden {
		log.WithField("subcategory_id", subcategoryID).Debug("Catalog returned 403, treating as no data")
		return nil, ErrForbidden
	}

	if !resp.IsSuccess() {
		log.WithFields(log.Fields{
			"subcategory_id": subcategoryID,
			"status":         resp.StatusCode,
		}).Warn("⚠️ Subcategory fetch failed")
		return nil, &domain.FetchError{SubcategoryID: subcategoryID, StatusCode: resp.StatusCode}
	}

	var payload subcategoryPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		log.WithFields(log.Fields{
			"subcategory_id": subcategoryID,
			"error":          err,
		}).Warn("⚠️ Subcategory response is not valid JSON")
		return nil, &domain.FetchError{SubcategoryID: subcategoryID, Err: fmt.Errorf("failed to decode products: %w", err)}
	}

	return flattenProducts(payload), nil
}

// flattenProducts merges the direct product list with the lists nested under
// sub-subcategories, in document order
func flattenProducts(payload subcategoryPayload) []domain.RawProduct {
	products := make([]domain.RawProduct, 0, len(payload.Products))
	for _, p := range payload.Products {
		if p != nil {
			products = append(products, p)
		}
	}
	for _, nested := range payload.Categories {
		for _, p := range nested.Products {
			if p != nil {
				products = append(products, p)
			}
		}
	}
	return products
}
