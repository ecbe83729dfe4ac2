package server

import (
	"net/http"
	"strconv"
	"strings"

	"grocery/catalog/internal/domain"

	"github.com/labstack/echo/v4"
)

type handler struct {
	service SearchService
}

func (h *handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Search handles GET /api/products/search?q=&min_price=&max_price=&category=&discount_only=
func (h *handler) Search(c echo.Context) error {
	discountOnly, _ := strconv.ParseBool(c.QueryParam("discount_only"))
	filters := domain.Filters{
		MinPrice:     strings.TrimSpace(c.QueryParam("min_price")),
		MaxPrice:     strings.TrimSpace(c.QueryParam("max_price")),
		Category:     strings.TrimSpace(c.QueryParam("category")),
		DiscountOnly: discountOnly,
	}

	result, err := h.service.Search(c.Request().Context(), c.QueryParam("q"), filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.CacheStats())
}

func (h *handler) ClearCache(c echo.Context) error {
	if err := h.service.ClearCache(c.Request().Header.Get(IdentityHeader)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type addItemRequest struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (h *handler) AddShoppingListItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	identity := c.Request().Header.Get(IdentityHeader)
	if err := h.service.AddToShoppingList(c.Request().Context(), identity, req.Product, req.Quantity); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}
