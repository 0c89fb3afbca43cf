package payout

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"consigna/backend/internal/domain"
)

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeLineTeeExample(t *testing.T) {
	split, err := ComputeLine(500, 2, rate("20"))
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	if split.GrossCents != 1000 || split.CommissionCents != 200 || split.PayoutCents != 800 {
		t.Fatalf("unexpected split %+v", split)
	}
}

func TestComputeLineRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		price int64
		qty   int
		rate  string
	}{
		{"zero qty", 500, 0, "20"},
		{"negative qty", 500, -1, "20"},
		{"negative price", -1, 1, "20"},
		{"rate above 100", 500, 1, "100.01"},
		{"negative rate", 500, 1, "-5"},
		{"three decimal rate", 500, 1, "12.345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeLine(tc.price, tc.qty, rate(tc.rate))
			if !errors.Is(err, ErrInvalidLine) {
				t.Fatalf("expected ErrInvalidLine, got %v", err)
			}
		})
	}
}

func TestComputeLineAllowsFreeItems(t *testing.T) {
	split, err := ComputeLine(0, 3, rate("15"))
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	if split != (Split{}) {
		t.Fatalf("expected zero split, got %+v", split)
	}
}

func TestComputeLineRoundsCommissionHalfAwayFromZero(t *testing.T) {
	// 333 * 12.5% = 41.625 -> 42
	split, err := ComputeLine(333, 1, rate("12.5"))
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	if split.CommissionCents != 42 || split.PayoutCents != 291 {
		t.Fatalf("unexpected split %+v", split)
	}
}

func TestSplitPartsAlwaysSumToGross(t *testing.T) {
	rates := []string{"0", "0.01", "7.5", "12.35", "20", "33.33", "66.67", "99.99", "100"}
	var cart Split
	for _, r := range rates {
		for price := int64(0); price < 2000; price += 37 {
			for qty := 1; qty <= 7; qty++ {
				split, err := ComputeLine(price, qty, rate(r))
				if err != nil {
					t.Fatalf("compute line price=%d qty=%d rate=%s: %v", price, qty, r, err)
				}
				if split.CommissionCents+split.PayoutCents != split.GrossCents {
					t.Fatalf("split does not balance: %+v", split)
				}
				cart = cart.Add(split)
			}
		}
	}
	if cart.CommissionCents+cart.PayoutCents != cart.GrossCents {
		t.Fatalf("cart does not balance: %+v", cart)
	}
}

func TestEffectiveRate(t *testing.T) {
	if got := EffectiveRate(2000, 300); !got.Equal(rate("15")) {
		t.Fatalf("expected 15, got %s", got)
	}
	if got := EffectiveRate(0, 0); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	if got := EffectiveRate(3, 1); !got.Equal(rate("33.33")) {
		t.Fatalf("expected 33.33, got %s", got)
	}
}

func sale(id, brandID, brandName, store string, payout int64, status string, at time.Time) domain.SaleRecord {
	return domain.SaleRecord{
		ID:              id,
		BrandID:         brandID,
		BrandName:       brandName,
		StoreLabel:      store,
		Quantity:        1,
		GrossCents:      payout + payout/4,
		CommissionCents: payout / 4,
		PayoutCents:     payout,
		PayoutStatus:    status,
		CreatedAt:       at,
	}
}

func ledgerFixture() []domain.SaleRecord {
	base := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	return []domain.SaleRecord{
		sale("s1", "b-nike", "Nike", "north", 800, domain.PayoutStatusPending, base),
		sale("s2", "b-adidas", "Adidas", "north", 400, domain.PayoutStatusSettled, base.Add(time.Hour)),
		sale("s3", "b-nike", "Nike", "south", 1200, domain.PayoutStatusPending, base.Add(2*time.Hour)),
		sale("s4", "b-puma", "Puma", "north", 3000, domain.PayoutStatusPending, base.AddDate(0, 1, 0)),
		sale("s5", "b-adidas", "Adidas", "south", 100, domain.PayoutStatusPending, base.AddDate(0, 0, 1)),
	}
}

func TestAggregateGroupsInFirstAppearanceOrder(t *testing.T) {
	groups, err := Aggregate(ledgerFixture(), domain.SalesFilter{}, Options{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	names := []string{groups[0].BrandName, groups[1].BrandName, groups[2].BrandName}
	if names[0] != "Nike" || names[1] != "Adidas" || names[2] != "Puma" {
		t.Fatalf("unexpected order %v", names)
	}
	nike := groups[0]
	if nike.Count != 2 || nike.TotalPayoutCents != 2000 || nike.PendingPayoutCents != 2000 {
		t.Fatalf("unexpected nike aggregate %+v", nike)
	}
	adidas := groups[1]
	if adidas.TotalPayoutCents != 500 || adidas.PendingPayoutCents != 100 {
		t.Fatalf("unexpected adidas aggregate %+v", adidas)
	}
}

func TestAggregateTopPartnersSortsByPayout(t *testing.T) {
	groups, err := Aggregate(ledgerFixture(), domain.SalesFilter{}, Options{TopPartners: true, Limit: 2})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(groups) != 2 || groups[0].BrandName != "Puma" || groups[1].BrandName != "Nike" {
		t.Fatalf("unexpected top partners %+v", groups)
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	records := ledgerFixture()
	reversed := make([]domain.SaleRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}
	a, _ := Aggregate(records, domain.SalesFilter{}, Options{TopPartners: true})
	b, _ := Aggregate(reversed, domain.SalesFilter{}, Options{TopPartners: true})
	if len(a) != len(b) {
		t.Fatalf("group counts differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("aggregate differs at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAggregateFilters(t *testing.T) {
	records := ledgerFixture()

	byStore, _ := Total(records, domain.SalesFilter{StoreLabel: "south"}, Options{})
	if byStore.Count != 2 || byStore.TotalPayoutCents != 1300 {
		t.Fatalf("unexpected store total %+v", byStore)
	}

	byMonth, _ := Total(records, domain.SalesFilter{YearMonth: "2025-03"}, Options{})
	if byMonth.Count != 4 {
		t.Fatalf("expected 4 march records, got %d", byMonth.Count)
	}

	// exact date overrides year_month
	byDay, _ := Total(records, domain.SalesFilter{ExactDate: "2025-03-15", YearMonth: "2025-04"}, Options{})
	if byDay.Count != 1 || byDay.TotalPayoutCents != 100 {
		t.Fatalf("unexpected day total %+v", byDay)
	}

	byName, _ := Total(records, domain.SalesFilter{BrandNameContains: "nik"}, Options{})
	if byName.Count != 2 {
		t.Fatalf("expected 2 nike records, got %d", byName.Count)
	}
}

func TestAggregateUsesSuppliedLocation(t *testing.T) {
	// 2025-03-14 23:30 UTC is already 2025-03-15 in UTC+7.
	at := time.Date(2025, time.March, 14, 23, 30, 0, 0, time.UTC)
	records := []domain.SaleRecord{sale("s1", "b1", "Nike", "north", 100, domain.PayoutStatusPending, at)}
	jakarta := time.FixedZone("UTC+7", 7*3600)

	utcDay, _ := Total(records, domain.SalesFilter{ExactDate: "2025-03-14"}, Options{Location: time.UTC})
	localDay, _ := Total(records, domain.SalesFilter{ExactDate: "2025-03-15"}, Options{Location: jakarta})
	if utcDay.Count != 1 || localDay.Count != 1 {
		t.Fatalf("expected calendar day to follow location, got utc=%d local=%d", utcDay.Count, localDay.Count)
	}
}

func TestAggregateRejectsMalformedDates(t *testing.T) {
	if _, err := Aggregate(nil, domain.SalesFilter{ExactDate: "14/03/2025"}, Options{}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if _, err := Aggregate(nil, domain.SalesFilter{YearMonth: "2025-13"}, Options{}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestAggregateResolvesRenamedBrands(t *testing.T) {
	records := ledgerFixture()
	groups, err := Aggregate(records, domain.SalesFilter{BrandNameContains: "swoosh"}, Options{
		BrandNames: map[string]string{"b-nike": "Swoosh Co"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(groups) != 1 || groups[0].BrandName != "Swoosh Co" || groups[0].Count != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestSelectPendingSkipsSettledRecords(t *testing.T) {
	records := ledgerFixture()

	sel, err := SelectPending(records, BrandRef{Name: "adidas"}, domain.SalesFilter{}, Options{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sel.SaleIDs) != 1 || sel.SaleIDs[0] != "s5" || sel.PayoutCents != 100 {
		t.Fatalf("unexpected selection %+v", sel)
	}

	sel, _ = SelectPending(records, BrandRef{ID: "b-nike"}, domain.SalesFilter{StoreLabel: "south"}, Options{})
	if len(sel.SaleIDs) != 1 || sel.SaleIDs[0] != "s3" {
		t.Fatalf("unexpected filtered selection %+v", sel)
	}

	sel, _ = SelectPending(records, BrandRef{Name: "Reebok"}, domain.SalesFilter{}, Options{})
	if !sel.Empty() {
		t.Fatalf("expected empty selection, got %+v", sel)
	}
}

func TestSelectPendingIgnoresCallerStatusFilter(t *testing.T) {
	sel, err := SelectPending(ledgerFixture(), BrandRef{ID: "b-adidas"}, domain.SalesFilter{PayoutStatus: domain.PayoutStatusSettled}, Options{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sel.SaleIDs) != 1 || sel.SaleIDs[0] != "s5" {
		t.Fatalf("expected only pending records, got %+v", sel)
	}
}

func TestBrandRefResolve(t *testing.T) {
	names := map[string]string{"b-nike": "Swoosh Co", "b-adidas": "Adidas"}

	got, ok := BrandRef{Name: " swoosh co "}.Resolve(names)
	if !ok || got.ID != "b-nike" || got.Name != "Swoosh Co" {
		t.Fatalf("expected name to resolve to catalog brand, got %+v ok=%v", got, ok)
	}
	got, ok = BrandRef{ID: "b-adidas", Name: "ignored"}.Resolve(names)
	if !ok || got.Name != "Adidas" {
		t.Fatalf("expected id to resolve to current name, got %+v ok=%v", got, ok)
	}
	if _, ok := (BrandRef{ID: "b-puma"}).Resolve(names); ok {
		t.Fatalf("expected unknown id to stay unresolved")
	}
	if got, ok := (BrandRef{Name: "Nike"}).Resolve(names); ok || got.Name != "Nike" {
		t.Fatalf("expected old name to stay unresolved, got %+v ok=%v", got, ok)
	}
}

func TestSelectionBrandIDs(t *testing.T) {
	records := ledgerFixture()
	records[3].BrandName = "Nike"

	sel, err := SelectPending(records, BrandRef{Name: "nike"}, domain.SalesFilter{}, Options{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	ids := sel.BrandIDs()
	if len(ids) != 2 || ids[0] != "b-nike" || ids[1] != "b-puma" {
		t.Fatalf("expected both brand ids in first-seen order, got %v", ids)
	}

	sel, _ = SelectPending(records, BrandRef{ID: "b-nike"}, domain.SalesFilter{}, Options{})
	if ids := sel.BrandIDs(); len(ids) != 1 || ids[0] != "b-nike" {
		t.Fatalf("expected a single brand id, got %v", ids)
	}
}

func TestTallyCountsEveryRecord(t *testing.T) {
	total := Tally(ledgerFixture())
	if total.Count != 5 || total.TotalPayoutCents != 5500 || total.PendingPayoutCents != 5100 {
		t.Fatalf("unexpected tally %+v", total)
	}
	if empty := Tally(nil); empty.Count != 0 || empty.TotalPayoutCents != 0 {
		t.Fatalf("expected zero tally, got %+v", empty)
	}
}
