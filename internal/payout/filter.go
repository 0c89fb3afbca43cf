package payout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"consigna/backend/internal/domain"
)

var ErrInvalidFilter = errors.New("invalid sales filter")

// Options control how records are read. Location fixes the calendar used for
// date filters; BrandNames maps brand ids to their current display name.
type Options struct {
	Location    *time.Location
	BrandNames  map[string]string
	TopPartners bool
	Limit       int
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Matcher is a compiled SalesFilter.
type Matcher struct {
	storeLabel   string
	brandID      string
	brandNeedle  string
	payoutStatus string
	day          *civilDate
	month        *civilMonth
	loc          *time.Location
	names        map[string]string
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

type civilMonth struct {
	year  int
	month time.Month
}

// Compile validates filter and binds it to the calendar in opts.
func Compile(filter domain.SalesFilter, opts Options) (*Matcher, error) {
	m := &Matcher{
		storeLabel:   strings.TrimSpace(filter.StoreLabel),
		brandID:      strings.TrimSpace(filter.BrandID),
		brandNeedle:  strings.ToLower(strings.TrimSpace(filter.BrandNameContains)),
		payoutStatus: strings.TrimSpace(filter.PayoutStatus),
		loc:          opts.location(),
		names:        opts.BrandNames,
	}

	switch m.payoutStatus {
	case "", domain.PayoutStatusPending, domain.PayoutStatusSettled:
	default:
		return nil, fmt.Errorf("%w: unknown payout status %q", ErrInvalidFilter, m.payoutStatus)
	}

	if exact := strings.TrimSpace(filter.ExactDate); exact != "" {
		parsed, err := time.Parse("2006-01-02", exact)
		if err != nil {
			return nil, fmt.Errorf("%w: exact_date must be YYYY-MM-DD", ErrInvalidFilter)
		}
		m.day = &civilDate{year: parsed.Year(), month: parsed.Month(), day: parsed.Day()}
		return m, nil
	}
	if ym := strings.TrimSpace(filter.YearMonth); ym != "" {
		parsed, err := time.Parse("2006-01", ym)
		if err != nil {
			return nil, fmt.Errorf("%w: year_month must be YYYY-MM", ErrInvalidFilter)
		}
		m.month = &civilMonth{year: parsed.Year(), month: parsed.Month()}
	}
	return m, nil
}

// Match reports whether record passes every condition of the filter.
func (m *Matcher) Match(record domain.SaleRecord) bool {
	if m.storeLabel != "" && record.StoreLabel != m.storeLabel {
		return false
	}
	if m.brandID != "" && record.BrandID != m.brandID {
		return false
	}
	if m.payoutStatus != "" && record.PayoutStatus != m.payoutStatus {
		return false
	}
	if m.brandNeedle != "" && !strings.Contains(strings.ToLower(DisplayName(record, m.names)), m.brandNeedle) {
		return false
	}
	if m.day != nil || m.month != nil {
		year, month, day := record.CreatedAt.In(m.loc).Date()
		if m.day != nil && (year != m.day.year || month != m.day.month || day != m.day.day) {
			return false
		}
		if m.month != nil && (year != m.month.year || month != m.month.month) {
			return false
		}
	}
	return true
}

// Filter returns the records matching filter, preserving input order.
func Filter(records []domain.SaleRecord, filter domain.SalesFilter, opts Options) ([]domain.SaleRecord, error) {
	m, err := Compile(filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SaleRecord, 0, len(records))
	for _, record := range records {
		if m.Match(record) {
			out = append(out, record)
		}
	}
	return out, nil
}

// DisplayName resolves the brand name shown for a record: the current catalog
// name when known, else the name captured at sale time.
func DisplayName(record domain.SaleRecord, names map[string]string) string {
	if record.BrandID != "" {
		if name := names[record.BrandID]; name != "" {
			return name
		}
	}
	return record.BrandName
}

func brandKey(record domain.SaleRecord) string {
	if record.BrandID != "" {
		return record.BrandID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(record.BrandName))
}
