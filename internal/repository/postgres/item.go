package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
)

const itemColumns = `i.id, i.wishlist_id, i.name, i.description, i.photo_id, i.price, i.link, i.priority,
		i.reserved_by_id, i.created_at, i.updated_at`

// itemOfActiveWishlist restricts item statements to items whose wishlist is
// not soft-deleted.
const itemOfActiveWishlist = `EXISTS (SELECT 1 FROM wishlists w WHERE w.id = i.wishlist_id AND ` + activeWishlist + `)`

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new wishlist item repository
func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID,
		&item.WishlistID,
		&item.Name,
		&item.Description,
		&item.PhotoID,
		&item.Price,
		&item.Link,
		&item.Priority,
		&item.ReservedByID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		INSERT INTO items (wishlist_id, name, description, photo_id, price, link, priority, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $8
		WHERE EXISTS (SELECT 1 FROM wishlists w WHERE w.id = $1 AND ` + activeWishlist + `)
		RETURNING id, created_at, updated_at`

	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}

	err := r.db.QueryRowContext(ctx, query,
		item.WishlistID,
		item.Name,
		item.Description,
		item.PhotoID,
		item.Price,
		item.Link,
		item.Priority,
		time.Now(),
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) Update(ctx context.Context, id int64, changes models.ItemChanges) (*models.Item, error) {
	query := `
		UPDATE items AS i
		SET name = $2, description = $3, photo_id = $4, price = $5, link = $6, priority = $7, updated_at = $8
		WHERE i.id = $1 AND ` + itemOfActiveWishlist + `
		RETURNING ` + itemColumns

	item, err := scanItem(r.db.QueryRowContext(ctx, query,
		id,
		changes.Name,
		changes.Description,
		changes.PhotoID,
		changes.Price,
		changes.Link,
		changes.Priority,
		time.Now(),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM items AS i WHERE i.id = $1 AND ` + itemOfActiveWishlist

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item with ID %d not found", id)
	}

	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.id = $1 AND ` + itemOfActiveWishlist

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}

	return item, nil
}

func (r *itemRepository) ListByWishlist(ctx context.Context, wishlistID int64) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		WHERE i.wishlist_id = $1 AND ` + itemOfActiveWishlist + `
		ORDER BY CASE i.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, i.created_at ASC, i.id ASC`

	rows, err := r.db.QueryContext(ctx, query, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Reserve marks the item as promised by reservedByID. It reports false when
// somebody already holds the reservation.
func (r *itemRepository) Reserve(ctx context.Context, itemID, reservedByID int64) (bool, error) {
	query := `
		UPDATE items AS i SET reserved_by_id = $2, updated_at = $3
		WHERE i.id = $1 AND i.reserved_by_id IS NULL AND ` + itemOfActiveWishlist

	return r.execChanged(ctx, "reserve item", query, itemID, reservedByID, time.Now())
}

// Unreserve drops the reservation only when reservedByID holds it.
func (r *itemRepository) Unreserve(ctx context.Context, itemID, reservedByID int64) (bool, error) {
	query := `
		UPDATE items AS i SET reserved_by_id = NULL, updated_at = $3
		WHERE i.id = $1 AND i.reserved_by_id = $2 AND ` + itemOfActiveWishlist

	return r.execChanged(ctx, "unreserve item", query, itemID, reservedByID, time.Now())
}

func (r *itemRepository) execChanged(ctx context.Context, what, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", what, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *itemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM items i WHERE ` + itemOfActiveWishlist
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}
