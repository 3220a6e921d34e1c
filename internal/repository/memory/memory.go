// Package memory keeps every repository in process memory. It backs the
// DATABASE_DRIVER=memory mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
)

// DB is the shared state behind the memory repositories. A single mutex
// guards all tables so cross-table predicates see a consistent snapshot.
type DB struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	users         map[int64]*models.User
	wishlists     map[int64]*models.Wishlist
	items         map[int64]*models.Item
	subscriptions map[int64]*models.Subscription
}

// NewDB creates an empty in-memory database.
func NewDB() *DB {
	return &DB{
		now:           time.Now,
		users:         make(map[int64]*models.User),
		wishlists:     make(map[int64]*models.Wishlist),
		items:         make(map[int64]*models.Item),
		subscriptions: make(map[int64]*models.Subscription),
	}
}

// New bundles the memory repositories over a fresh database.
func New() *repository.Repositories {
	return NewDB().Repositories()
}

// Repositories returns repositories sharing db.
func (db *DB) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:         &userRepository{db: db},
		Wishlists:     &wishlistRepository{db: db},
		Items:         &itemRepository{db: db},
		Subscriptions: &subscriptionRepository{db: db},
	}
}

func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *DB) activeWishlist(id int64) bool {
	w, ok := db.wishlists[id]
	return ok && !w.IsDeleted
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneWishlist(w *models.Wishlist) *models.Wishlist {
	c := *w
	if w.EventDate != nil {
		d := *w.EventDate
		c.EventDate = &d
	}
	c.Owner = nil
	return &c
}

func cloneItem(i *models.Item) *models.Item {
	c := *i
	if i.Price != nil {
		p := *i.Price
		c.Price = &p
	}
	if i.ReservedByID != nil {
		r := *i.ReservedByID
		c.ReservedByID = &r
	}
	return &c
}

func cloneSubscription(s *models.Subscription) *models.Subscription {
	c := *s
	if s.RespondedAt != nil {
		t := *s.RespondedAt
		c.RespondedAt = &t
	}
	return &c
}

// ---- users ----

type userRepository struct{ db *DB }

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if u, ok := r.db.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (r *userRepository) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.TelegramID == telegramID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *userRepository) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	lang := user.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}

	for _, u := range r.db.users {
		if u.TelegramID == user.TelegramID {
			u.TelegramUsername = user.TelegramUsername
			u.FirstName = user.FirstName
			u.Language = lang
			u.UpdatedAt = now
			return cloneUser(u), nil
		}
	}

	stored := cloneUser(user)
	stored.ID = r.db.id()
	stored.Language = lang
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.db.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *userRepository) ListIDs(_ context.Context) ([]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]int64, 0, len(r.db.users))
	for id := range r.db.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *userRepository) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.users)), nil
}

// ---- wishlists ----

type wishlistRepository struct{ db *DB }

func (r *wishlistRepository) Create(_ context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if wishlist.AccessToken == "" {
		wishlist.AccessToken = uuid.NewString()
	}
	for _, w := range r.db.wishlists {
		if w.AccessToken == wishlist.AccessToken {
			return nil, fmt.Errorf("failed to create wishlist: access token already in use")
		}
	}

	now := r.db.now()
	wishlist.ID = r.db.id()
	wishlist.IsDeleted = false
	wishlist.CreatedAt = now
	wishlist.UpdatedAt = now
	r.db.wishlists[wishlist.ID] = cloneWishlist(wishlist)
	return wishlist, nil
}

func (r *wishlistRepository) Update(_ context.Context, id int64, changes models.WishlistChanges) (*models.Wishlist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.activeWishlist(id) {
		return nil, nil
	}
	w := r.db.wishlists[id]
	changes.Apply(w)
	if changes.EventDate != nil {
		d := *changes.EventDate
		w.EventDate = &d
	}
	w.UpdatedAt = r.db.now()
	return cloneWishlist(w), nil
}

func (r *wishlistRepository) SoftDelete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.activeWishlist(id) {
		return fmt.Errorf("wishlist with ID %d not found", id)
	}
	w := r.db.wishlists[id]
	w.IsDeleted = true
	w.UpdatedAt = r.db.now()
	return nil
}

func (r *wishlistRepository) GetByID(_ context.Context, id int64) (*models.Wishlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.activeWishlist(id) {
		return nil, nil
	}
	return cloneWishlist(r.db.wishlists[id]), nil
}

func (r *wishlistRepository) GetByIDIncludingDeleted(_ context.Context, id int64) (*models.Wishlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if w, ok := r.db.wishlists[id]; ok {
		return cloneWishlist(w), nil
	}
	return nil, nil
}

func (r *wishlistRepository) GetByAccessToken(_ context.Context, token string) (*models.Wishlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, w := range r.db.wishlists {
		if w.AccessToken == token && !w.IsDeleted {
			return cloneWishlist(w), nil
		}
	}
	return nil, nil
}

func sortNewestFirst(lists []*models.Wishlist) {
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].ID > lists[j].ID
		}
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})
}

func (r *wishlistRepository) ListOwned(_ context.Context, ownerID int64, activeOnly bool) ([]*models.Wishlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var lists []*models.Wishlist
	for _, w := range r.db.wishlists {
		if w.OwnerID != ownerID || (activeOnly && w.IsDeleted) {
			continue
		}
		lists = append(lists, cloneWishlist(w))
	}
	sortNewestFirst(lists)
	return lists, nil
}

func (r *wishlistRepository) ListSubscribed(_ context.Context, subscriberID int64, activeOnly bool) ([]*models.Wishlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var lists []*models.Wishlist
	for _, s := range r.db.subscriptions {
		if s.SubscriberID != subscriberID || !s.IsApproved() {
			continue
		}
		w, ok := r.db.wishlists[s.WishlistID]
		if !ok || (activeOnly && w.IsDeleted) {
			continue
		}
		lists = append(lists, cloneWishlist(w))
	}
	sortNewestFirst(lists)
	return lists, nil
}

func (r *wishlistRepository) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var count int64
	for _, w := range r.db.wishlists {
		if !w.IsDeleted {
			count++
		}
	}
	return count, nil
}

// ---- items ----

type itemRepository struct{ db *DB }

// visible returns the stored item when it belongs to an active wishlist.
func (r *itemRepository) visible(id int64) (*models.Item, bool) {
	item, ok := r.db.items[id]
	if !ok || !r.db.activeWishlist(item.WishlistID) {
		return nil, false
	}
	return item, true
}

func (r *itemRepository) Create(_ context.Context, item *models.Item) (*models.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.activeWishlist(item.WishlistID) {
		return nil, nil
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}

	now := r.db.now()
	item.ID = r.db.id()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.db.items[item.ID] = cloneItem(item)
	return item, nil
}

func (r *itemRepository) Update(_ context.Context, id int64, changes models.ItemChanges) (*models.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.visible(id)
	if !ok {
		return nil, nil
	}
	changes.Apply(item)
	if changes.Price != nil {
		p := *changes.Price
		item.Price = &p
	}
	item.UpdatedAt = r.db.now()
	return cloneItem(item), nil
}

func (r *itemRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.visible(id); !ok {
		return fmt.Errorf("item with ID %d not found", id)
	}
	delete(r.db.items, id)
	return nil
}

func (r *itemRepository) GetByID(_ context.Context, id int64) (*models.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if item, ok := r.visible(id); ok {
		return cloneItem(item), nil
	}
	return nil, nil
}

func (r *itemRepository) ListByWishlist(_ context.Context, wishlistID int64) ([]*models.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.activeWishlist(wishlistID) {
		return nil, nil
	}

	var items []*models.Item
	for _, item := range r.db.items {
		if item.WishlistID == wishlistID {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() < items[j].Priority.Rank()
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *itemRepository) Reserve(_ context.Context, itemID, reservedByID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.visible(itemID)
	if !ok || item.ReservedByID != nil {
		return false, nil
	}
	item.ReservedByID = &reservedByID
	item.UpdatedAt = r.db.now()
	return true, nil
}

func (r *itemRepository) Unreserve(_ context.Context, itemID, reservedByID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	item, ok := r.visible(itemID)
	if !ok || item.ReservedByID == nil || *item.ReservedByID != reservedByID {
		return false, nil
	}
	item.ReservedByID = nil
	item.UpdatedAt = r.db.now()
	return true, nil
}

func (r *itemRepository) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var count int64
	for _, item := range r.db.items {
		if r.db.activeWishlist(item.WishlistID) {
			count++
		}
	}
	return count, nil
}

// ---- subscriptions ----

type subscriptionRepository struct{ db *DB }

func (r *subscriptionRepository) visible(s *models.Subscription) bool {
	return r.db.activeWishlist(s.WishlistID)
}

func (r *subscriptionRepository) find(subscriberID, wishlistID int64) *models.Subscription {
	for _, s := range r.db.subscriptions {
		if s.SubscriberID == subscriberID && s.WishlistID == wishlistID {
			return s
		}
	}
	return nil
}

func (r *subscriptionRepository) Get(_ context.Context, subscriberID, wishlistID int64) (*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s := r.find(subscriberID, wishlistID); s != nil && r.visible(s) {
		return cloneSubscription(s), nil
	}
	return nil, nil
}

func (r *subscriptionRepository) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.subscriptions[id]; ok && r.visible(s) {
		return cloneSubscription(s), nil
	}
	return nil, nil
}

func (r *subscriptionRepository) Upsert(_ context.Context, sub *models.Subscription, replaceable ...models.SubscriptionStatus) (*models.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	if existing := r.find(sub.SubscriberID, sub.WishlistID); existing != nil {
		if !slices.Contains(replaceable, existing.Status) {
			return nil, nil
		}
		existing.Status = sub.Status
		existing.RespondedAt = sub.RespondedAt
		existing.UpdatedAt = now
		return cloneSubscription(existing), nil
	}

	stored := cloneSubscription(sub)
	stored.ID = r.db.id()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.db.subscriptions[stored.ID] = stored
	return cloneSubscription(stored), nil
}

func (r *subscriptionRepository) UpdateStatus(_ context.Context, id int64, from, to models.SubscriptionStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.subscriptions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	now := r.db.now()
	s.Status = to
	s.RespondedAt = &now
	s.UpdatedAt = now
	return true, nil
}

func (r *subscriptionRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.subscriptions, id)
	return nil
}

func (r *subscriptionRepository) CountApproved(_ context.Context, wishlistID int64) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.activeWishlist(wishlistID) {
		return 0, nil
	}
	var count int64
	for _, s := range r.db.subscriptions {
		if s.WishlistID == wishlistID && s.IsApproved() {
			count++
		}
	}
	return count, nil
}

func (r *subscriptionRepository) ListByWishlist(_ context.Context, wishlistID int64, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.activeWishlist(wishlistID) {
		return nil, nil
	}
	var subs []*models.Subscription
	for _, s := range r.db.subscriptions {
		if s.WishlistID == wishlistID && s.Status == status {
			subs = append(subs, cloneSubscription(s))
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}
