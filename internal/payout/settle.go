package payout

import (
	"strings"

	"consigna/backend/internal/domain"
)

// BrandRef identifies the brand being settled. ID wins when set; otherwise
// records match on display name, case-insensitively.
type BrandRef struct {
	ID   string
	Name string
}

func (b BrandRef) matches(record domain.SaleRecord, names map[string]string) bool {
	if b.ID != "" {
		return record.BrandID == b.ID
	}
	return strings.EqualFold(strings.TrimSpace(DisplayName(record, names)), strings.TrimSpace(b.Name))
}

// Resolve fills in the catalog id and current name for the reference. The
// second result is false when the brand is not in the catalog.
func (b BrandRef) Resolve(names map[string]string) (BrandRef, bool) {
	if b.ID != "" {
		name, ok := names[b.ID]
		if !ok {
			return b, false
		}
		return BrandRef{ID: b.ID, Name: name}, true
	}
	want := strings.TrimSpace(b.Name)
	for id, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), want) {
			return BrandRef{ID: id, Name: name}, true
		}
	}
	return b, false
}

// Selection is the set of pending records a settlement would flip.
type Selection struct {
	SaleIDs     []string
	PayoutCents int64
	Records     []domain.SaleRecord
}

func (s Selection) Empty() bool {
	return len(s.SaleIDs) == 0
}

// BrandIDs lists the distinct brand ids in the selection, in first-seen order.
func (s Selection) BrandIDs() []string {
	seen := make(map[string]bool, 1)
	var ids []string
	for _, record := range s.Records {
		if !seen[record.BrandID] {
			seen[record.BrandID] = true
			ids = append(ids, record.BrandID)
		}
	}
	return ids
}

// SelectPending picks every pending record of brand that also passes filter.
// Already settled records are never selected, so running a settlement twice
// selects nothing the second time.
func SelectPending(records []domain.SaleRecord, brand BrandRef, filter domain.SalesFilter, opts Options) (Selection, error) {
	filter.PayoutStatus = domain.PayoutStatusPending
	m, err := Compile(filter, opts)
	if err != nil {
		return Selection{}, err
	}

	var sel Selection
	for _, record := range records {
		if !brand.matches(record, opts.BrandNames) || !m.Match(record) {
			continue
		}
		sel.SaleIDs = append(sel.SaleIDs, record.ID)
		sel.PayoutCents += record.PayoutCents
		sel.Records = append(sel.Records, record)
	}
	return sel, nil
}

// BrandRecords returns every record of brand passing filter, any status.
func BrandRecords(records []domain.SaleRecord, brand BrandRef, filter domain.SalesFilter, opts Options) ([]domain.SaleRecord, error) {
	m, err := Compile(filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SaleRecord, 0, 16)
	for _, record := range records {
		if brand.matches(record, opts.BrandNames) && m.Match(record) {
			out = append(out, record)
		}
	}
	return out, nil
}
