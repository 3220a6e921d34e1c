package draft

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/form"
	"github.com/Kerhoff/WishboT/internal/metrics"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

const (
	KeyNoDraft         = "no_draft"
	KeyDraftIncomplete = "draft_incomplete"
	KeyUnknownField    = "unknown_field"
)

// StartRequest opens a form. A nil TargetID creates a new row; for item
// drafts WishlistID names the parent list.
type StartRequest struct {
	Kind       Kind
	OwnerID    int64
	TargetID   *int64
	WishlistID int64
}

type StartResult struct {
	Draft *Draft
	// Replaced is the draft that was live in the chat before, if any.
	Replaced *Draft
}

type CommitResult struct {
	Kind     Kind
	Created  bool
	Wishlist *models.Wishlist
	Item     *models.Item
	// Draft is the committed snapshot, kept for its preview message id.
	Draft *Draft
}

// Manager runs the draft lifecycle on top of a Store. It expects the caller
// to serialize calls for the same chat.
type Manager struct {
	store     Store
	wishlists repository.WishlistRepository
	items     repository.ItemRepository
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

func NewManager(store Store, repos *repository.Repositories, m *metrics.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		store:     store,
		wishlists: repos.Wishlists,
		items:     repos.Items,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Manager) ownedWishlist(ctx context.Context, ownerID, wishlistID int64) (*models.Wishlist, error) {
	w, err := m.wishlists.GetByID(ctx, wishlistID)
	if err != nil {
		return nil, apperrors.Storage(err, "load wishlist")
	}
	if w == nil {
		return nil, apperrors.NotFound("wishlist not found")
	}
	if w.OwnerID != ownerID {
		return nil, apperrors.Forbidden("wishlist belongs to another user")
	}
	return w, nil
}

func (m *Manager) ownedItem(ctx context.Context, ownerID, itemID int64) (*models.Item, error) {
	item, err := m.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, apperrors.Storage(err, "load item")
	}
	if item == nil {
		return nil, apperrors.NotFound("item not found")
	}
	if _, err := m.ownedWishlist(ctx, ownerID, item.WishlistID); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns the chat's live draft, or nil.
func (m *Manager) Get(ctx context.Context, chatID int64) (*Draft, error) {
	d, err := m.store.Get(ctx, chatID)
	if err != nil {
		return nil, apperrors.Storage(err, "load draft")
	}
	return d, nil
}

func (m *Manager) require(ctx context.Context, chatID int64) (*Draft, error) {
	d, err := m.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.NotFound("no active draft").WithKey(KeyNoDraft)
	}
	return d, nil
}

func (m *Manager) save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = m.now()
	if err := m.store.Put(ctx, d); err != nil {
		return apperrors.Storage(err, "save draft")
	}
	return nil
}

// Start opens a new draft for the chat, discarding any draft already there.
// Edit drafts are prefilled from the stored row and require ownership.
func (m *Manager) Start(ctx context.Context, chatID int64, req StartRequest) (*StartResult, error) {
	d := &Draft{ChatID: chatID, Kind: req.Kind, OwnerID: req.OwnerID}

	switch req.Kind {
	case KindWishlist:
		d.State = string(form.Wishlist.Initial())
		if req.TargetID != nil {
			w, err := m.ownedWishlist(ctx, req.OwnerID, *req.TargetID)
			if err != nil {
				return nil, err
			}
			d.TargetID = ptr(w.ID)
			d.Editing = true
			d.Values = valuesFromWishlist(w)
		}

	case KindItem:
		d.State = string(form.Item.Initial())
		if req.TargetID != nil {
			item, err := m.ownedItem(ctx, req.OwnerID, *req.TargetID)
			if err != nil {
				return nil, err
			}
			d.TargetID = ptr(item.ID)
			d.WishlistID = item.WishlistID
			d.Editing = true
			d.Values = valuesFromItem(item)
		} else {
			w, err := m.ownedWishlist(ctx, req.OwnerID, req.WishlistID)
			if err != nil {
				return nil, err
			}
			d.WishlistID = w.ID
		}

	default:
		return nil, apperrors.Validation("kind", apperrors.MetadataFor(apperrors.CodeValidation).LexiconKey, "unknown draft kind")
	}

	replaced, err := m.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := m.save(ctx, d); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"kind":     d.Kind,
		"editing":  d.Editing,
		"replaced": replaced != nil,
	}).Debug("Draft started")

	return &StartResult{Draft: d, Replaced: replaced}, nil
}

func fieldBelongs(kind Kind, field string) bool {
	if kind == KindItem {
		_, ok := form.ItemEditEvent(field)
		return ok
	}
	_, ok := form.WishlistEditEvent(field)
	return ok
}

// apply validates raw for field and writes it into d.
func (m *Manager) apply(d *Draft, field, raw string) error {
	if !fieldBelongs(d.Kind, field) {
		return apperrors.Validation(field, KeyUnknownField, "field does not belong to this form")
	}

	switch field {
	case form.FieldPrivacy:
		private, err := parsePrivacy(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		d.Values.Private = &private
		return nil

	case form.FieldPriority:
		p, err := parsePriority(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		d.Values.Priority = &p
		return nil

	case form.FieldPhoto:
		photo := strings.TrimSpace(raw)
		if photo == ClearValue {
			photo = ""
		}
		d.Values.PhotoID = &photo
		return nil
	}

	value, err := normalizeField(field, raw, startOfDay(m.now()))
	if err != nil {
		return err
	}

	switch field {
	case form.FieldTitle:
		d.Values.Title = &value
	case form.FieldDescription:
		d.Values.Description = &value
	case form.FieldEventDate:
		d.Values.EventDate = &value
	case form.FieldName:
		d.Values.Name = &value
	case form.FieldLink:
		d.Values.Link = &value
	case form.FieldPrice:
		d.Values.Price = &value
	}
	return nil
}

func invalidTransition(err error) error {
	return apperrors.Wrap(apperrors.CodeInvalidTransition, err, "action is not available in this step")
}

func fireWishlist(d *Draft, event form.WishlistEvent) error {
	next, err := form.Wishlist.Fire(d.WishlistState(), event)
	if err != nil {
		return invalidTransition(err)
	}
	d.State = string(next)
	return nil
}

func fireItem(d *Draft, event form.ItemEvent) error {
	next, err := form.Item.Fire(d.ItemState(), event)
	if err != nil {
		return invalidTransition(err)
	}
	d.State = string(next)
	return nil
}

// SetField validates and stores a value without moving the form.
func (m *Manager) SetField(ctx context.Context, chatID int64, field, value string) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := m.apply(d, field, value); err != nil {
		return nil, err
	}
	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Edit opens field for input.
func (m *Manager) Edit(ctx context.Context, chatID int64, field string) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if d.Kind == KindItem {
		event, ok := form.ItemEditEvent(field)
		if !ok {
			return nil, apperrors.Validation(field, KeyUnknownField, "unknown item field")
		}
		err = fireItem(d, event)
	} else {
		event, ok := form.WishlistEditEvent(field)
		if !ok {
			return nil, apperrors.Validation(field, KeyUnknownField, "unknown wishlist field")
		}
		err = fireWishlist(d, event)
	}
	if err != nil {
		return nil, err
	}

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Input feeds typed text to the field currently open. An invalid value
// leaves the stored draft untouched.
func (m *Manager) Input(ctx context.Context, chatID int64, text string) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !d.AwaitingText() {
		return nil, invalidTransition(form.ErrInvalidTransition)
	}
	if err := m.apply(d, d.EditingField(), text); err != nil {
		return nil, err
	}

	if d.Kind == KindItem {
		err = fireItem(d, form.ItemInput)
	} else {
		err = fireWishlist(d, form.WishlistInput)
	}
	if err != nil {
		return nil, err
	}

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Choose answers a button question: privacy for wishlists, priority for
// items.
func (m *Manager) Choose(ctx context.Context, chatID int64, value string) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}

	switch {
	case d.Kind == KindWishlist && d.WishlistState() == form.WishlistTogglingPrivacy:
		if err := m.apply(d, form.FieldPrivacy, value); err != nil {
			return nil, err
		}
		err = fireWishlist(d, form.WishlistChoose)
	case d.Kind == KindItem && d.ItemState() == form.ItemEditingPriority:
		if err := m.apply(d, form.FieldPriority, value); err != nil {
			return nil, err
		}
		err = fireItem(d, form.ItemChoose)
	default:
		err = invalidTransition(form.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Photo attaches a Telegram photo file id to an item draft.
func (m *Manager) Photo(ctx context.Context, chatID int64, fileID string) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindItem {
		return nil, invalidTransition(form.ErrInvalidTransition)
	}
	if err := fireItem(d, form.ItemPhoto); err != nil {
		return nil, err
	}
	d.Values.PhotoID = ptr(fileID)

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// RemovePhoto clears the item photo. The draft stays in removing_photo until
// SetPreview records the replacement preview message.
func (m *Manager) RemovePhoto(ctx context.Context, chatID int64) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindItem {
		return nil, invalidTransition(form.ErrInvalidTransition)
	}
	if err := fireItem(d, form.ItemRemovePhoto); err != nil {
		return nil, err
	}
	d.Values.PhotoID = ptr("")

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SetPreview remembers the message that shows the draft so later steps can
// edit it in place.
func (m *Manager) SetPreview(ctx context.Context, chatID int64, messageID int) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}
	d.PreviewMessageID = messageID
	if d.Kind == KindItem && d.ItemState() == form.ItemRemovingPhoto {
		if err := fireItem(d, form.ItemPhotoRemoved); err != nil {
			return nil, err
		}
	}

	if err := m.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Cancel drops the draft and returns it so the caller can clean up its
// preview.
func (m *Manager) Cancel(ctx context.Context, chatID int64) (*Draft, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if d.Kind == KindItem {
		err = fireItem(d, form.ItemCancel)
	} else {
		err = fireWishlist(d, form.WishlistCancel)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, chatID); err != nil {
		return nil, apperrors.Storage(err, "delete draft")
	}
	return d, nil
}

// checkComplete collects every required field that is missing or no longer
// valid.
func (m *Manager) checkComplete(d *Draft) error {
	var result *multierror.Error
	today := startOfDay(m.now())

	required := func(field string, value *string) {
		if value == nil || *value == "" {
			result = multierror.Append(result, apperrors.Validation(field, KeyFieldRequired, field+" is required"))
			return
		}
		if _, err := normalizeField(field, *value, today); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if d.Kind == KindItem {
		required(form.FieldName, d.Values.Name)
	} else {
		required(form.FieldTitle, d.Values.Title)
		if d.Values.Private == nil {
			result = multierror.Append(result, apperrors.Validation(form.FieldPrivacy, KeyFieldRequired, "privacy is required"))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "draft is incomplete").WithKey(KeyDraftIncomplete)
	}
	return nil
}

// MissingFields lists the fields a failed Commit complained about.
func MissingFields(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil
	}
	fields := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		if typed := apperrors.As(e); typed != nil && typed.Field() != "" {
			fields = append(fields, typed.Field())
		}
	}
	return fields
}

func (d *Draft) wishlistChanges() (models.WishlistChanges, error) {
	changes := models.WishlistChanges{
		Title:       str(d.Values.Title),
		Description: str(d.Values.Description),
		IsPrivate:   d.Values.Private != nil && *d.Values.Private,
	}
	if date := str(d.Values.EventDate); date != "" {
		t, err := time.Parse(isoDate, date)
		if err != nil {
			return changes, apperrors.Validation(form.FieldEventDate, KeyDateInvalid, "stored date is malformed")
		}
		changes.EventDate = &t
	}
	return changes, nil
}

func (d *Draft) itemChanges() (models.ItemChanges, error) {
	changes := models.ItemChanges{
		Name:        str(d.Values.Name),
		Description: str(d.Values.Description),
		PhotoID:     str(d.Values.PhotoID),
		Link:        str(d.Values.Link),
		Priority:    models.PriorityMedium,
	}
	if d.Values.Priority != nil {
		changes.Priority = *d.Values.Priority
	}
	if raw := str(d.Values.Price); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return changes, apperrors.Validation(form.FieldPrice, KeyPriceInvalid, "stored price is malformed")
		}
		changes.Price = &price
	}
	return changes, nil
}

// Commit validates the draft and writes it through the repository. On
// success the draft is gone; on any failure it stays as it was.
func (m *Manager) Commit(ctx context.Context, chatID int64) (*CommitResult, error) {
	d, err := m.require(ctx, chatID)
	if err != nil {
		return nil, err
	}

	result, err := m.commit(ctx, d)
	m.metrics.IncDraftCommit(string(d.Kind), err == nil)
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, chatID); err != nil {
		m.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to drop committed draft")
	}

	m.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"kind":    d.Kind,
		"created": result.Created,
	}).Info("Draft committed")

	return result, nil
}

func (m *Manager) commit(ctx context.Context, d *Draft) (*CommitResult, error) {
	legal := form.Wishlist.Can(d.WishlistState(), form.WishlistConfirm)
	if d.Kind == KindItem {
		legal = form.Item.Can(d.ItemState(), form.ItemConfirm)
	}
	if !legal {
		return nil, invalidTransition(form.ErrInvalidTransition)
	}
	if err := m.checkComplete(d); err != nil {
		return nil, err
	}

	result := &CommitResult{Kind: d.Kind, Created: d.TargetID == nil, Draft: d}

	if d.Kind == KindItem {
		changes, err := d.itemChanges()
		if err != nil {
			return nil, err
		}
		item, err := m.commitItem(ctx, d, changes)
		if err != nil {
			return nil, err
		}
		result.Item = item
		return result, nil
	}

	changes, err := d.wishlistChanges()
	if err != nil {
		return nil, err
	}
	w, err := m.commitWishlist(ctx, d, changes)
	if err != nil {
		return nil, err
	}
	result.Wishlist = w
	return result, nil
}

func (m *Manager) commitWishlist(ctx context.Context, d *Draft, changes models.WishlistChanges) (*models.Wishlist, error) {
	if d.TargetID == nil {
		w := &models.Wishlist{OwnerID: d.OwnerID}
		changes.Apply(w)
		created, err := m.wishlists.Create(ctx, w)
		if err != nil {
			return nil, apperrors.Storage(err, "create wishlist")
		}
		return created, nil
	}

	if _, err := m.ownedWishlist(ctx, d.OwnerID, *d.TargetID); err != nil {
		return nil, err
	}
	updated, err := m.wishlists.Update(ctx, *d.TargetID, changes)
	if err != nil {
		return nil, apperrors.Storage(err, "update wishlist")
	}
	if updated == nil {
		return nil, apperrors.NotFound("wishlist not found")
	}
	return updated, nil
}

func (m *Manager) commitItem(ctx context.Context, d *Draft, changes models.ItemChanges) (*models.Item, error) {
	if d.TargetID == nil {
		if _, err := m.ownedWishlist(ctx, d.OwnerID, d.WishlistID); err != nil {
			return nil, err
		}
		item := &models.Item{WishlistID: d.WishlistID}
		changes.Apply(item)
		created, err := m.items.Create(ctx, item)
		if err != nil {
			return nil, apperrors.Storage(err, "create item")
		}
		if created == nil {
			return nil, apperrors.NotFound("wishlist not found")
		}
		return created, nil
	}

	if _, err := m.ownedItem(ctx, d.OwnerID, *d.TargetID); err != nil {
		return nil, err
	}
	updated, err := m.items.Update(ctx, *d.TargetID, changes)
	if err != nil {
		return nil, apperrors.Storage(err, "update item")
	}
	if updated == nil {
		return nil, apperrors.NotFound("item not found")
	}
	return updated, nil
}
