package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	result     domain.SearchResult
	searchErr  error
	gotQuery   string
	gotFilters domain.Filters

	clearedBy string
	clearErr  error

	added    []domain.Product
	addedBy  string
	quantity int
	addErr   error
}

func (f *fakeService) Search(_ context.Context, query string, filters domain.Filters) (domain.SearchResult, error) {
	f.gotQuery = query
	f.gotFilters = filters
	return f.result, f.searchErr
}

func (f *fakeService) ClearCache(identity string) error {
	f.clearedBy = identity
	return f.clearErr
}

func (f *fakeService) CacheStats() domain.CacheStats {
	return domain.CacheStats{EntryCount: 2, MaxSize: 500, TTLSeconds: 1800}
}

func (f *fakeService) AddToShoppingList(_ context.Context, identity string, product domain.Product, quantity int) error {
	f.addedBy = identity
	f.added = append(f.added, product)
	f.quantity = quantity
	return f.addErr
}

func serve(t *testing.T, svc SearchService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(config.ServerConfig{Host: "localhost", Port: 0}, svc)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearchPassesQueryAndFilters(t *testing.T) {
	svc := &fakeService{result: domain.SearchResult{
		Query:      "leche",
		TotalFound: 1,
		Products:   []domain.Product{{ID: "1", Name: "Leche entera", UnitPrice: "0.95", Score: 95}},
	}}

	req := httptest.NewRequest(http.MethodGet,
		"/api/products/search?q=leche&min_price=1&max_price=%205%20&category=L%C3%A1cteos&discount_only=true", nil)
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leche", svc.gotQuery)
	assert.Equal(t, domain.Filters{MinPrice: "1", MaxPrice: "5", Category: "Lácteos", DiscountOnly: true}, svc.gotFilters)

	var got domain.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.TotalFound)
	assert.Equal(t, "1", got.Products[0].ID)
	assert.Equal(t, 95, got.Products[0].Score)
}

func TestSearchIgnoresMalformedDiscountFlag(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/products/search?q=pan&discount_only=maybe", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.gotFilters.DiscountOnly)
}

func TestSearchErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &domain.ValidationError{Field: "query", Message: "must be at least 2 characters"}, http.StatusBadRequest},
		{"upstream", fmt.Errorf("failed to load category tree: %w", domain.ErrUpstreamUnavailable), http.StatusInternalServerError},
		{"deadline", fmt.Errorf("search cancelled: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"cancelled tree fetch", fmt.Errorf("%w: failed to fetch category tree: %w", domain.ErrUpstreamUnavailable, context.Canceled), http.StatusGatewayTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeService{searchErr: tt.err}, httptest.NewRequest(http.MethodGet, "/api/products/search?q=x", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestSearchUpstreamMessageIsFriendly(t *testing.T) {
	svc := &fakeService{searchErr: fmt.Errorf("%w: dial tcp 10.0.0.1:443", domain.ErrUpstreamUnavailable)}
	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/products/search?q=leche", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeError(t, rec), "10.0.0.1")
}

func TestCacheStats(t *testing.T) {
	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/api/products/cache/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, 500, stats.MaxSize)
}

func TestClearCache(t *testing.T) {
	svc := &fakeService{}
	req := httptest.NewRequest(http.MethodDelete, "/api/products/cache", nil)
	req.Header.Set(IdentityHeader, "admin")

	rec := serve(t, svc, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin", svc.clearedBy)
}

func TestClearCacheForbidden(t *testing.T) {
	svc := &fakeService{clearErr: domain.ErrPermissionDenied}
	req := httptest.NewRequest(http.MethodDelete, "/api/products/cache", nil)
	req.Header.Set(IdentityHeader, "maria")

	rec := serve(t, svc, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "maria", svc.clearedBy)
}

func TestAddShoppingListItem(t *testing.T) {
	svc := &fakeService{}
	body := `{"product": {"id": "1", "name": "Leche entera", "unit_price": "0.95"}, "quantity": 2}`
	req := httptest.NewRequest(http.MethodPost, "/api/shopping-list/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdentityHeader, "maria")

	rec := serve(t, svc, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "maria", svc.addedBy)
	assert.Equal(t, 2, svc.quantity)
	require.Len(t, svc.added, 1)
	assert.Equal(t, "Leche entera", svc.added[0].Name)
}

func TestAddShoppingListItemErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/shopping-list/items", strings.NewReader(`{"product":`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(t, &fakeService{}, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc := &fakeService{addErr: &domain.ValidationError{Field: "identity", Message: "is required"}}
	req = httptest.NewRequest(http.MethodPost, "/api/shopping-list/items", strings.NewReader(`{"product": {"id": "1"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(t, svc, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
