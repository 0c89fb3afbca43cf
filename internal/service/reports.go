package service

import (
	"context"
	"strings"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/payout"
)

const (
	dashboardTopPartners = 5
	lowStockThreshold    = 3
)

// BrandSummary aggregates the current ledger per brand.
func (s *Service) BrandSummary(ctx context.Context, filter domain.SalesFilter, top bool, limit int) (domain.BrandSummaryResponse, error) {
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return domain.BrandSummaryResponse{}, err
	}
	opts.TopPartners = top
	opts.Limit = limit

	groups, err := payout.Aggregate(records, filter, opts)
	if err != nil {
		return domain.BrandSummaryResponse{}, filterError(err)
	}
	total, err := payout.Total(records, filter, opts)
	if err != nil {
		return domain.BrandSummaryResponse{}, filterError(err)
	}

	return domain.BrandSummaryResponse{
		Brands:               groups,
		TotalGrossCents:      total.TotalGrossCents,
		TotalCommissionCents: total.TotalCommissionCents,
		TotalPayoutCents:     total.TotalPayoutCents,
		PendingPayoutCents:   total.PendingPayoutCents,
	}, nil
}

func (s *Service) Dashboard(ctx context.Context, storeLabel string) (domain.DashboardSummary, error) {
	storeLabel = strings.TrimSpace(storeLabel)
	records, opts, err := s.snapshot(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	now := s.now().In(s.opts.Location)
	date := now.Format("2006-01-02")
	month := now.Format("2006-01")

	today, err := payout.Total(records, domain.SalesFilter{StoreLabel: storeLabel, ExactDate: date}, opts)
	if err != nil {
		return domain.DashboardSummary{}, filterError(err)
	}
	monthFilter := domain.SalesFilter{StoreLabel: storeLabel, YearMonth: month}
	monthToDate, err := payout.Total(records, monthFilter, opts)
	if err != nil {
		return domain.DashboardSummary{}, filterError(err)
	}

	topOpts := opts
	topOpts.TopPartners = true
	topOpts.Limit = dashboardTopPartners
	top, err := payout.Aggregate(records, monthFilter, topOpts)
	if err != nil {
		return domain.DashboardSummary{}, filterError(err)
	}

	pending, err := payout.Aggregate(records, domain.SalesFilter{StoreLabel: storeLabel, PayoutStatus: domain.PayoutStatusPending}, opts)
	if err != nil {
		return domain.DashboardSummary{}, filterError(err)
	}

	items, err := s.repo.ListInventory(ctx, domain.InventoryQuery{StoreLabel: storeLabel})
	if err != nil {
		return domain.DashboardSummary{}, persistenceError("list inventory", err)
	}
	lowStock := 0
	for _, item := range items {
		if item.TracksStock() && item.StockCount <= lowStockThreshold {
			lowStock++
		}
	}

	return domain.DashboardSummary{
		StoreLabel:      storeLabel,
		Date:            date,
		Month:           month,
		Today:           today,
		MonthToDate:     monthToDate,
		TopPartners:     top,
		ActiveItems:     len(items),
		LowStockItems:   lowStock,
		PendingBrands:   len(pending),
		GeneratedAtUnix: now.Unix(),
	}, nil
}
