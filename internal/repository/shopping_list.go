package repository

import (
	"context"
	"fmt"

	"grocery/catalog/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShoppingListRepository is the "add item" side of the household shopping list
type ShoppingListRepository interface {
	AddItem(ctx context.Context, item domain.ShoppingListItem) error
}

// DB is the subset of pgxpool.Pool used by the repository
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var _ DB = (*pgxpool.Pool)(nil)

type shoppingListRepository struct {
	db DB
}

func NewShoppingListRepository(db DB) ShoppingListRepository {
	return &shoppingListRepository{
		db: db,
	}
}

// AddItem inserts the product into the owner's list; adding a product that is
// already there increases its quantity
func (r *shoppingListRepository) AddItem(ctx context.Context, item domain.ShoppingListItem) error {
	query := `
	INSERT INTO shopping_list_items (owner, product_id, name, unit_price, quantity, added_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (owner, product_id)
	DO UPDATE SET quantity = shopping_list_items.quantity + EXCLUDED.quantity,
	              name = EXCLUDED.name,
	              unit_price = EXCLUDED.unit_price`
	_, err := r.db.Exec(ctx, query,
		item.Owner, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add shopping list item: %w", err)
	}

	return nil
}

// EnsureSchema creates the shopping list table when missing
func EnsureSchema(ctx context.Context, db DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS shopping_list_items (
		owner      TEXT        NOT NULL,
		product_id TEXT        NOT NULL,
		name       TEXT        NOT NULL,
		unit_price TEXT        NOT NULL DEFAULT '0',
		quantity   INTEGER     NOT NULL DEFAULT 1,
		added_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, product_id)
	)`
	if _, err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create shopping list schema: %w", err)
	}
	return nil
}
