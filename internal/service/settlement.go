package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/payout"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

func brandRef(brandID string, brandName string) (payout.BrandRef, error) {
	ref := payout.BrandRef{ID: strings.TrimSpace(brandID), Name: strings.TrimSpace(brandName)}
	if ref.ID == "" && ref.Name == "" {
		return payout.BrandRef{}, fmt.Errorf("%w: brand id or name is required", store.ErrValidation)
	}
	return ref, nil
}

func (s *Service) selectPending(ctx context.Context, brandID string, brandName string, filter domain.SalesFilter) (payout.BrandRef, payout.Selection, payout.Options, error) {
	ref, err := brandRef(brandID, brandName)
	if err != nil {
		return payout.BrandRef{}, payout.Selection{}, payout.Options{}, err
	}
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return payout.BrandRef{}, payout.Selection{}, payout.Options{}, err
	}
	if resolved, ok := ref.Resolve(opts.BrandNames); ok {
		ref = resolved
	}
	sel, err := payout.SelectPending(records, ref, filter, opts)
	if err != nil {
		return payout.BrandRef{}, payout.Selection{}, payout.Options{}, filterError(err)
	}
	if ids := sel.BrandIDs(); len(ids) > 1 {
		return payout.BrandRef{}, payout.Selection{}, payout.Options{}, fmt.Errorf("%w: brand %q matches pending sales of %d brands, settle by brand id", store.ErrConflict, ref.Name, len(ids))
	}
	return ref, sel, opts, nil
}

// SettlementPreview shows what SettleBrand would flip without changing
// anything. An empty preview means a settle call would fail with
// ErrNoPendingSales.
func (s *Service) SettlementPreview(ctx context.Context, brandID string, brandName string, filter domain.SalesFilter) (domain.SettlementPreview, error) {
	ref, sel, opts, err := s.selectPending(ctx, brandID, brandName, filter)
	if err != nil {
		return domain.SettlementPreview{}, err
	}

	preview := domain.SettlementPreview{
		BrandID:     ref.ID,
		BrandName:   ref.Name,
		SaleIDs:     sel.SaleIDs,
		Count:       len(sel.SaleIDs),
		PayoutCents: sel.PayoutCents,
	}
	if preview.SaleIDs == nil {
		preview.SaleIDs = []string{}
	}
	if !sel.Empty() {
		preview.BrandID = sel.Records[0].BrandID
		preview.BrandName = payout.DisplayName(sel.Records[0], opts.BrandNames)
	}
	return preview, nil
}

// SettleBrand marks every pending record of the brand (narrowed by the
// filter) as settled in a single commit bounded by the settlement timeout.
func (s *Service) SettleBrand(ctx context.Context, req domain.SettleRequest) (domain.SettlementResponse, error) {
	ref, sel, opts, err := s.selectPending(ctx, req.BrandID, req.BrandName, req.Filter)
	if err != nil {
		return domain.SettlementResponse{}, err
	}
	if sel.Empty() {
		return domain.SettlementResponse{}, store.ErrNoPendingSales
	}

	settledAt := s.now().UTC()
	if req.AsOf != nil && !req.AsOf.IsZero() {
		settledAt = req.AsOf.UTC()
	}
	actor, _ := ActorFromContext(ctx)
	settlement := domain.Settlement{
		ID:          xid.New("stl"),
		BrandID:     sel.Records[0].BrandID,
		BrandName:   payout.DisplayName(sel.Records[0], opts.BrandNames),
		SaleIDs:     sel.SaleIDs,
		PayoutCents: sel.PayoutCents,
		SettledAt:   settledAt,
		SettledBy:   actor.Email,
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.opts.SettlementTimeout)
	defer cancel()
	committed, err := s.repo.SettleSales(commitCtx, settlement)
	if err != nil {
		if errors.Is(commitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			s.log.Warn("settlement commit timed out",
				zap.String("brand_id", settlement.BrandID),
				zap.Int("sales", len(settlement.SaleIDs)),
				zap.Duration("timeout", s.opts.SettlementTimeout),
			)
			return domain.SettlementResponse{}, fmt.Errorf("%w: settlement commit exceeded %s", store.ErrTimeout, s.opts.SettlementTimeout)
		}
		return domain.SettlementResponse{}, persistenceError("settle sales", err)
	}

	s.metrics.SettlementCommitted(committed.PayoutCents)
	s.logAudit(ctx, "settlement_commit", "settlement", committed.ID, fmt.Sprintf("brand=%s,sales=%d,payout=%d", committed.BrandName, len(committed.SaleIDs), committed.PayoutCents))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventSalesSettled, IDs: committed.SaleIDs, At: s.now().UTC()})

	resp := domain.SettlementResponse{Settlement: *committed}
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		s.log.Warn("failed to reload ledger after settlement", zap.String("settlement_id", committed.ID), zap.Error(err))
		return resp, nil
	}
	ref.ID = committed.BrandID
	brandRecords, err := payout.BrandRecords(records, ref, domain.SalesFilter{}, opts)
	if err != nil {
		s.log.Warn("failed to total brand after settlement", zap.String("settlement_id", committed.ID), zap.Error(err))
	}
	resp.Aggregate = payout.Tally(brandRecords)
	resp.Aggregate.BrandID = committed.BrandID
	resp.Aggregate.BrandName = committed.BrandName
	return resp, nil
}

func (s *Service) ListSettlements(ctx context.Context, brandID string, limit int) ([]domain.Settlement, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSettlements(ctx, strings.TrimSpace(brandID), limit)
}
