package service

import (
	"context"
	"fmt"
	"strings"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

// SaveDraft stores an in-progress cart. A draft without an id gets one.
func (s *Service) SaveDraft(ctx context.Context, draft domain.DraftSale) (domain.DraftSale, error) {
	draft.ID = strings.TrimSpace(draft.ID)
	if draft.ID == "" {
		draft.ID = xid.New("draft")
	}
	draft.StoreLabel = defaultString(strings.TrimSpace(draft.StoreLabel), s.opts.StoreLabel)
	for _, line := range draft.Lines {
		if strings.TrimSpace(line.ItemID) == "" || line.Quantity < 1 {
			return domain.DraftSale{}, fmt.Errorf("%w: draft lines need an item and a positive quantity", store.ErrValidation)
		}
	}
	if draft.Lines == nil {
		draft.Lines = []domain.SaleLine{}
	}
	draft.UpdatedAt = s.now().UTC()

	if err := s.drafts.Save(ctx, draft, s.opts.DraftTTL); err != nil {
		return domain.DraftSale{}, persistenceError("save draft", err)
	}
	return draft, nil
}

func (s *Service) GetDraft(ctx context.Context, id string) (domain.DraftSale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.DraftSale{}, store.ErrValidation
	}
	draft, ok, err := s.drafts.Get(ctx, id)
	if err != nil {
		return domain.DraftSale{}, persistenceError("get draft", err)
	}
	if !ok {
		return domain.DraftSale{}, store.ErrNotFound
	}
	return *draft, nil
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		return persistenceError("delete draft", err)
	}
	return nil
}
