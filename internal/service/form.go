package service

import (
	"context"

	"github.com/Kerhoff/WishboT/internal/draft"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// FormActionType names a step a user can take on a form.
type FormActionType string

const (
	FormStart       FormActionType = "start"
	FormEdit        FormActionType = "edit"
	FormInput       FormActionType = "input"
	FormSet         FormActionType = "set"
	FormChoose      FormActionType = "choose"
	FormPhoto       FormActionType = "photo"
	FormRemovePhoto FormActionType = "remove_photo"
	FormPreview     FormActionType = "preview"
	FormConfirm     FormActionType = "confirm"
	FormCancel      FormActionType = "cancel"
)

// FormRequest carries one form action. Which fields matter depends on
// Action: Kind, TargetID and WishlistID for start, Field for edit and set,
// Value for input, set, choose and photo, MessageID for preview.
type FormRequest struct {
	ChatID     int64
	UserID     int64
	Action     FormActionType
	Kind       draft.Kind
	TargetID   *int64
	WishlistID int64
	Field      string
	Value      string
	MessageID  int
}

// FormResult is what the chat layer renders after a form action. Draft is
// nil once the form is committed or cancelled.
type FormResult struct {
	Draft     *draft.Draft
	Replaced  *draft.Draft
	Commit    *draft.CommitResult
	Cancelled *draft.Draft
}

// FormAction applies req to the chat's draft.
func (s *Service) FormAction(ctx context.Context, req FormRequest) (*FormResult, error) {
	if req.Action == FormStart {
		started, err := s.drafts.Start(ctx, req.ChatID, draft.StartRequest{
			Kind:       req.Kind,
			OwnerID:    req.UserID,
			TargetID:   req.TargetID,
			WishlistID: req.WishlistID,
		})
		if err != nil {
			return nil, err
		}
		return &FormResult{Draft: started.Draft, Replaced: started.Replaced}, nil
	}

	current, err := s.drafts.Get(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NotFound("no active draft").WithKey(draft.KeyNoDraft)
	}
	if current.OwnerID != req.UserID {
		return nil, apperrors.Forbidden("draft belongs to another user")
	}

	var d *draft.Draft
	switch req.Action {
	case FormEdit:
		d, err = s.drafts.Edit(ctx, req.ChatID, req.Field)
	case FormInput:
		d, err = s.drafts.Input(ctx, req.ChatID, req.Value)
	case FormSet:
		d, err = s.drafts.SetField(ctx, req.ChatID, req.Field, req.Value)
	case FormChoose:
		d, err = s.drafts.Choose(ctx, req.ChatID, req.Value)
	case FormPhoto:
		d, err = s.drafts.Photo(ctx, req.ChatID, req.Value)
	case FormRemovePhoto:
		d, err = s.drafts.RemovePhoto(ctx, req.ChatID)
	case FormPreview:
		d, err = s.drafts.SetPreview(ctx, req.ChatID, req.MessageID)
	case FormConfirm:
		committed, err := s.drafts.Commit(ctx, req.ChatID)
		if err != nil {
			return nil, err
		}
		return &FormResult{Commit: committed}, nil
	case FormCancel:
		cancelled, err := s.drafts.Cancel(ctx, req.ChatID)
		if err != nil {
			return nil, err
		}
		return &FormResult{Cancelled: cancelled}, nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidTransition, "unknown form action")
	}
	if err != nil {
		return nil, err
	}
	return &FormResult{Draft: d}, nil
}
