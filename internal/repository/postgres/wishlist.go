package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
)

const (
	wishlistColumns = `w.id, w.access_token, w.owner_id, w.title, w.description, w.event_date,
		w.is_private, w.is_deleted, w.created_at, w.updated_at`

	// activeWishlist is the predicate every default read path applies.
	activeWishlist = `w.is_deleted = FALSE`

	uniqueViolation     = "23505"
	accessTokenKey      = "wishlists_access_token_key"
	maxTokenGenerations = 3
)

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository
func NewWishlistRepository(db *sql.DB) repository.WishlistRepository {
	return &wishlistRepository{db: db}
}

func scanWishlist(row interface{ Scan(...any) error }) (*models.Wishlist, error) {
	w := &models.Wishlist{}
	err := row.Scan(
		&w.ID,
		&w.AccessToken,
		&w.OwnerID,
		&w.Title,
		&w.Description,
		&w.EventDate,
		&w.IsPrivate,
		&w.IsDeleted,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// Create inserts the wishlist. An empty AccessToken is filled with a fresh
// random token, regenerated if it ever collides with an existing one.
func (r *wishlistRepository) Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	query := `
		INSERT INTO wishlists (access_token, owner_id, title, description, event_date, is_private, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		RETURNING id, created_at, updated_at`

	generated := wishlist.AccessToken == ""
	now := time.Now()

	for attempt := 1; ; attempt++ {
		if generated {
			wishlist.AccessToken = uuid.NewString()
		}

		err := r.db.QueryRowContext(ctx, query,
			wishlist.AccessToken,
			wishlist.OwnerID,
			wishlist.Title,
			wishlist.Description,
			wishlist.EventDate,
			wishlist.IsPrivate,
			now,
		).Scan(&wishlist.ID, &wishlist.CreatedAt, &wishlist.UpdatedAt)

		if err == nil {
			wishlist.IsDeleted = false
			return wishlist, nil
		}
		if generated && attempt < maxTokenGenerations && isUniqueViolation(err, accessTokenKey) {
			continue
		}
		return nil, fmt.Errorf("failed to create wishlist: %w", err)
	}
}

func (r *wishlistRepository) Update(ctx context.Context, id int64, changes models.WishlistChanges) (*models.Wishlist, error) {
	query := `
		UPDATE wishlists AS w
		SET title = $2, description = $3, event_date = $4, is_private = $5, updated_at = $6
		WHERE w.id = $1 AND ` + activeWishlist + `
		RETURNING ` + wishlistColumns

	w, err := scanWishlist(r.db.QueryRowContext(ctx, query,
		id,
		changes.Title,
		changes.Description,
		changes.EventDate,
		changes.IsPrivate,
		time.Now(),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update wishlist: %w", err)
	}

	return w, nil
}

func (r *wishlistRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE wishlists AS w SET is_deleted = TRUE, updated_at = $2 WHERE w.id = $1 AND ` + activeWishlist

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete wishlist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("wishlist with ID %d not found", id)
	}

	return nil
}

func (r *wishlistRepository) getOne(ctx context.Context, what, where string, arg any) (*models.Wishlist, error) {
	query := `SELECT ` + wishlistColumns + ` FROM wishlists w WHERE ` + where

	w, err := scanWishlist(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wishlist by %s: %w", what, err)
	}

	return w, nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id int64) (*models.Wishlist, error) {
	return r.getOne(ctx, "ID", `w.id = $1 AND `+activeWishlist, id)
}

func (r *wishlistRepository) GetByIDIncludingDeleted(ctx context.Context, id int64) (*models.Wishlist, error) {
	return r.getOne(ctx, "ID", `w.id = $1`, id)
}

func (r *wishlistRepository) GetByAccessToken(ctx context.Context, token string) (*models.Wishlist, error) {
	return r.getOne(ctx, "access token", `w.access_token = $1 AND `+activeWishlist, token)
}

func (r *wishlistRepository) list(ctx context.Context, what, query string, arg any) ([]*models.Wishlist, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s wishlists: %w", what, err)
	}
	defer rows.Close()

	var lists []*models.Wishlist
	for rows.Next() {
		w, err := scanWishlist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist: %w", err)
		}
		lists = append(lists, w)
	}

	return lists, rows.Err()
}

func (r *wishlistRepository) ListOwned(ctx context.Context, ownerID int64, activeOnly bool) ([]*models.Wishlist, error) {
	query := `SELECT ` + wishlistColumns + ` FROM wishlists w WHERE w.owner_id = $1`
	if activeOnly {
		query += ` AND ` + activeWishlist
	}
	query += ` ORDER BY w.created_at DESC, w.id DESC`

	return r.list(ctx, "owned", query, ownerID)
}

func (r *wishlistRepository) ListSubscribed(ctx context.Context, subscriberID int64, activeOnly bool) ([]*models.Wishlist, error) {
	query := `
		SELECT ` + wishlistColumns + `
		FROM wishlists w
		INNER JOIN subscriptions s ON s.wishlist_id = w.id
		WHERE s.subscriber_id = $1 AND s.status = 'approved'`
	if activeOnly {
		query += ` AND ` + activeWishlist
	}
	query += ` ORDER BY s.updated_at DESC, w.id DESC`

	return r.list(ctx, "subscribed", query, subscriberID)
}

func (r *wishlistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM wishlists w WHERE ` + activeWishlist
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count wishlists: %w", err)
	}
	return count, nil
}
