package payout

import (
	"sort"

	"consigna/backend/internal/domain"
)

// Aggregate groups the matching records by brand. Groups come out in order of
// first appearance, or by descending total payout when opts.TopPartners is
// set. Sums are integer minor units, so the result does not depend on record
// order.
func Aggregate(records []domain.SaleRecord, filter domain.SalesFilter, opts Options) ([]domain.BrandAggregate, error) {
	m, err := Compile(filter, opts)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]domain.BrandAggregate, 0, 8)
	for _, record := range records {
		if !m.Match(record) {
			continue
		}
		key := brandKey(record)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, domain.BrandAggregate{
				BrandID:   record.BrandID,
				BrandName: DisplayName(record, opts.BrandNames),
			})
		}
		accumulate(&groups[pos], record)
	}

	if opts.TopPartners {
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].TotalPayoutCents != groups[j].TotalPayoutCents {
				return groups[i].TotalPayoutCents > groups[j].TotalPayoutCents
			}
			return groups[i].BrandName < groups[j].BrandName
		})
	}
	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}
	return groups, nil
}

// Total folds every matching record into a single aggregate with no brand.
func Total(records []domain.SaleRecord, filter domain.SalesFilter, opts Options) (domain.BrandAggregate, error) {
	m, err := Compile(filter, opts)
	if err != nil {
		return domain.BrandAggregate{}, err
	}
	var total domain.BrandAggregate
	for _, record := range records {
		if m.Match(record) {
			accumulate(&total, record)
		}
	}
	return total, nil
}

// Tally totals every record with no filtering.
func Tally(records []domain.SaleRecord) domain.BrandAggregate {
	var total domain.BrandAggregate
	for _, record := range records {
		accumulate(&total, record)
	}
	return total
}

// Sum folds already-computed aggregates together.
func Sum(groups []domain.BrandAggregate) domain.BrandAggregate {
	var total domain.BrandAggregate
	for _, g := range groups {
		total.Count += g.Count
		total.TotalGrossCents += g.TotalGrossCents
		total.TotalCommissionCents += g.TotalCommissionCents
		total.TotalPayoutCents += g.TotalPayoutCents
		total.PendingPayoutCents += g.PendingPayoutCents
	}
	return total
}

func accumulate(agg *domain.BrandAggregate, record domain.SaleRecord) {
	agg.Count++
	agg.TotalGrossCents += record.GrossCents
	agg.TotalCommissionCents += record.CommissionCents
	agg.TotalPayoutCents += record.PayoutCents
	if record.PayoutStatus == domain.PayoutStatusPending {
		agg.PendingPayoutCents += record.PayoutCents
	}
}
