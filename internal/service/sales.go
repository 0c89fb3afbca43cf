package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/export"
	"consigna/backend/internal/payout"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

// LineFailure explains why one cart line was rejected.
type LineFailure struct {
	Index  int    `json:"index"`
	ItemID string `json:"item_id"`
	Err    error  `json:"-"`
}

// SubmissionError reports every failed line of a rejected sale. Nothing from
// the submission was written.
type SubmissionError struct {
	Lines []LineFailure
	cause error
}

func (e *SubmissionError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		parts = append(parts, fmt.Sprintf("line %d (%s): %v", line.Index, line.ItemID, line.Err))
	}
	return "sale rejected: " + strings.Join(parts, "; ")
}

// Unwrap exposes the dominant cause so callers can errors.Is on the store
// sentinels.
func (e *SubmissionError) Unwrap() error {
	return e.cause
}

func newSubmissionError(lines []LineFailure) *SubmissionError {
	cause := store.ErrValidation
	for _, line := range lines {
		if errors.Is(line.Err, store.ErrPersistence) {
			cause = store.ErrPersistence
			break
		}
		if errors.Is(line.Err, store.ErrNotFound) {
			cause = store.ErrNotFound
		}
	}
	return &SubmissionError{Lines: lines, cause: cause}
}

// RecordSale turns a cart into one pending sale record per line and commits
// the records and stock decrements together. A rejected line rejects the
// whole cart.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	storeLabel := defaultString(strings.TrimSpace(req.StoreLabel), s.opts.StoreLabel)
	if len(req.Lines) == 0 {
		s.metrics.SaleRejected("empty_cart")
		return domain.SaleResponse{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	ids := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		ids = append(ids, strings.TrimSpace(line.ItemID))
	}
	items, err := s.repo.GetInventoryItems(ctx, ids)
	if err != nil {
		return domain.SaleResponse{}, persistenceError("load items", err)
	}

	customer := domain.Customer{
		Name:    strings.TrimSpace(req.Customer.Name),
		Phone:   strings.TrimSpace(req.Customer.Phone),
		Address: strings.TrimSpace(req.Customer.Address),
	}
	submission := domain.SaleSubmission{ID: xid.New("sub")}
	decremented := make(map[string]int)
	var failures []LineFailure

	for i, line := range req.Lines {
		itemID := strings.TrimSpace(line.ItemID)
		item, ok := items[itemID]
		if itemID == "" || !ok || item.Status != domain.ItemStatusActive {
			failures = append(failures, LineFailure{Index: i, ItemID: itemID, Err: fmt.Errorf("%w: item %q", store.ErrNotFound, itemID)})
			continue
		}

		price := item.UnitPriceCents
		if line.UnitPriceCents != nil {
			price = *line.UnitPriceCents
		}
		split, err := payout.ComputeLine(price, line.Quantity, item.CommissionRatePercent)
		if err != nil {
			failures = append(failures, LineFailure{Index: i, ItemID: itemID, Err: fmt.Errorf("%w: %w", store.ErrValidation, err)})
			continue
		}

		submission.Records = append(submission.Records, domain.SaleRecord{
			SubmissionID:          submission.ID,
			ItemID:                item.ID,
			ItemName:              item.Name,
			BrandID:               item.BrandID,
			BrandName:             item.BrandName,
			SizeLabel:             item.Size,
			Quantity:              line.Quantity,
			UnitPriceCents:        price,
			CommissionRatePercent: item.CommissionRatePercent,
			GrossCents:            split.GrossCents,
			CommissionCents:       split.CommissionCents,
			PayoutCents:           split.PayoutCents,
			PayoutStatus:          domain.PayoutStatusPending,
			Customer:              customer,
			StoreLabel:            storeLabel,
		})
		if item.TracksStock() {
			if _, seen := decremented[item.ID]; !seen {
				submission.Decrements = append(submission.Decrements, domain.StockDecrement{ItemID: item.ID})
			}
			decremented[item.ID] += line.Quantity
		}
	}

	if len(failures) > 0 {
		s.metrics.SaleRejected("invalid_line")
		return domain.SaleResponse{}, newSubmissionError(failures)
	}
	for i := range submission.Decrements {
		submission.Decrements[i].Qty = decremented[submission.Decrements[i].ItemID]
	}

	created, err := s.repo.CreateSales(ctx, submission)
	if err != nil {
		s.metrics.SaleRejected("store")
		s.log.Error("sale submission failed", zap.String("submission_id", submission.ID), zap.Int("lines", len(req.Lines)), zap.Error(err))
		cause := persistenceError("create sales", err)
		lines := make([]LineFailure, 0, len(req.Lines))
		for i, line := range req.Lines {
			lines = append(lines, LineFailure{Index: i, ItemID: strings.TrimSpace(line.ItemID), Err: cause})
		}
		failed := newSubmissionError(lines)
		failed.cause = cause
		return domain.SaleResponse{}, failed
	}

	resp := domain.SaleResponse{SubmissionID: submission.ID, Records: created}
	var total payout.Split
	for _, r := range created {
		total = total.Add(payout.Split{GrossCents: r.GrossCents, CommissionCents: r.CommissionCents, PayoutCents: r.PayoutCents})
	}
	resp.TotalGrossCents = total.GrossCents
	resp.TotalCommissionCents = total.CommissionCents
	resp.TotalPayoutCents = total.PayoutCents

	if draftID := strings.TrimSpace(req.DraftID); draftID != "" {
		if err := s.drafts.Delete(ctx, draftID); err != nil {
			s.log.Warn("failed to clear draft after sale", zap.String("draft_id", draftID), zap.Error(err))
		}
	}

	saleIDs := make([]string, 0, len(created))
	for _, r := range created {
		saleIDs = append(saleIDs, r.ID)
	}
	s.metrics.SaleRecorded(len(created), resp.TotalGrossCents)
	s.logAudit(ctx, "sale_record", "submission", submission.ID, fmt.Sprintf("lines=%d,gross=%d,store=%s", len(created), resp.TotalGrossCents, storeLabel))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventSaleRecorded, IDs: saleIDs, At: s.now().UTC()})
	return resp, nil
}

// ListSales returns the records matching filter, newest first.
func (s *Service) ListSales(ctx context.Context, filter domain.SalesFilter, limit int) ([]domain.SaleRecord, error) {
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := payout.Filter(records, filter, opts)
	if err != nil {
		return nil, filterError(err)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	for i := range matched {
		matched[i].BrandName = payout.DisplayName(matched[i], opts.BrandNames)
	}
	return matched, nil
}

// ExportSalesCSV writes the filtered ledger as CSV, oldest first.
func (s *Service) ExportSalesCSV(ctx context.Context, filter domain.SalesFilter) ([]byte, int, error) {
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	matched, err := payout.Filter(records, filter, opts)
	if err != nil {
		return nil, 0, filterError(err)
	}

	var buf bytes.Buffer
	if err := export.WriteSales(&buf, matched, s.opts.Location, opts.BrandNames); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(matched), nil
}
