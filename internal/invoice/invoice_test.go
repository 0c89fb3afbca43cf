package invoice

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/money"
)

func line(item, size string, unit int64, qty int, rate string, commission int64) domain.SaleRecord {
	gross := unit * int64(qty)
	return domain.SaleRecord{
		ItemName:              item,
		SizeLabel:             size,
		Quantity:              qty,
		UnitPriceCents:        unit,
		CommissionRatePercent: decimal.RequireFromString(rate),
		GrossCents:            gross,
		CommissionCents:       commission,
		PayoutCents:           gross - commission,
	}
}

func TestRenderShowsLinesAndTotals(t *testing.T) {
	html, err := Render(Input{
		Seller:        Seller{Name: "Corner Shop", Address: "1 Main St", Email: "hi@corner.test"},
		BrandName:     "Nike",
		PeriodLabel:   "March 2025",
		InvoiceDate:   "2025-04-01",
		InvoiceNumber: "INV-7",
		Records: []domain.SaleRecord{
			line("Tee", "M", 500, 2, "20", 200),
			line("Cap", "", 1500, 1, "20", 300),
		},
		Currency: money.NewFormatter("$", language.English),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Corner Shop", "1 Main St", "INV-7", "Nike", "March 2025",
		"Tee (M)", "$5.00", "$10.00", "$15.00",
		"Total sales", "$25.00",
		"Commission (20.00%)", "$5.00",
		"Net payout", "$20.00",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in invoice html", want)
		}
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	rec := line("<script>alert(1)</script>", "", 100, 1, "10", 10)
	html, err := Render(Input{BrandName: "Evil & Co", Records: []domain.SaleRecord{rec}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatalf("expected item name to be escaped")
	}
	if !strings.Contains(html, "Evil &amp; Co") {
		t.Fatalf("expected escaped brand name")
	}
}

func TestRenderRequiresBrand(t *testing.T) {
	if _, err := Render(Input{BrandName: "  "}); !errors.Is(err, ErrMissingBrand) {
		t.Fatalf("expected ErrMissingBrand, got %v", err)
	}
}

func TestSummarizeRate(t *testing.T) {
	uniform := Summarize([]domain.SaleRecord{
		line("A", "", 333, 1, "12.5", 42),
		line("B", "", 100, 1, "12.5", 13),
	})
	if !uniform.Rate.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected uniform rate 12.5, got %s", uniform.Rate)
	}

	mixed := Summarize([]domain.SaleRecord{
		line("A", "", 1000, 1, "10", 100),
		line("B", "", 1000, 1, "30", 300),
	})
	if !mixed.Rate.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected blended rate 20, got %s", mixed.Rate)
	}
	if mixed.GrossCents != 2000 || mixed.CommissionCents+mixed.PayoutCents != mixed.GrossCents {
		t.Fatalf("unexpected totals %+v", mixed)
	}

	if empty := Summarize(nil); !empty.Rate.IsZero() || empty.Count != 0 {
		t.Fatalf("expected zero totals, got %+v", empty)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	in := Input{BrandName: "Nike", Records: []domain.SaleRecord{line("Tee", "S", 500, 2, "20", 200)}}
	a, _ := Render(in)
	b, _ := Render(in)
	if a != b {
		t.Fatalf("expected identical output for identical input")
	}
}
