package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
)

const subscriptionColumns = `s.id, s.subscriber_id, s.wishlist_id, s.owner_id, s.status, s.responded_at,
		s.created_at, s.updated_at`

// subscriptionOfActiveWishlist hides subscriptions to soft-deleted wishlists.
const subscriptionOfActiveWishlist = `EXISTS (SELECT 1 FROM wishlists w WHERE w.id = s.wishlist_id AND ` + activeWishlist + `)`

type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.SubscriberID,
		&sub.WishlistID,
		&sub.OwnerID,
		&sub.Status,
		&sub.RespondedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}

func (r *subscriptionRepository) getOne(ctx context.Context, what, where string, args ...any) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE ` + where + ` AND ` + subscriptionOfActiveWishlist

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription by %s: %w", what, err)
	}

	return sub, nil
}

func (r *subscriptionRepository) Get(ctx context.Context, subscriberID, wishlistID int64) (*models.Subscription, error) {
	return r.getOne(ctx, "subscriber", `s.subscriber_id = $1 AND s.wishlist_id = $2`, subscriberID, wishlistID)
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	return r.getOne(ctx, "ID", `s.id = $1`, id)
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription, replaceable ...models.SubscriptionStatus) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions AS s (subscriber_id, wishlist_id, owner_id, status, responded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (subscriber_id, wishlist_id) DO UPDATE
		SET status = EXCLUDED.status,
		    responded_at = EXCLUDED.responded_at,
		    updated_at = EXCLUDED.updated_at
		WHERE s.status = ANY($7)
		RETURNING ` + subscriptionColumns

	statuses := make([]string, 0, len(replaceable))
	for _, status := range replaceable {
		statuses = append(statuses, string(status))
	}

	saved, err := scanSubscription(r.db.QueryRowContext(ctx, query,
		sub.SubscriberID,
		sub.WishlistID,
		sub.OwnerID,
		sub.Status,
		sub.RespondedAt,
		time.Now(),
		pq.Array(statuses),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return saved, nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id int64, from, to models.SubscriptionStatus) (bool, error) {
	query := `
		UPDATE subscriptions SET status = $3, responded_at = $4, updated_at = $4
		WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to update subscription status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) CountApproved(ctx context.Context, wishlistID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM subscriptions s
		WHERE s.wishlist_id = $1 AND s.status = 'approved' AND ` + subscriptionOfActiveWishlist

	var count int64
	if err := r.db.QueryRowContext(ctx, query, wishlistID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}

func (r *subscriptionRepository) ListByWishlist(ctx context.Context, wishlistID int64, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions s
		WHERE s.wishlist_id = $1 AND s.status = $2 AND ` + subscriptionOfActiveWishlist + `
		ORDER BY s.created_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, wishlistID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}
