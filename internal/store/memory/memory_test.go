package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/store"
)

func newFixture(t *testing.T) (*Store, domain.Brand, domain.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	s := New()

	brand, err := s.CreateBrand(ctx, domain.Brand{Name: "Nike", CommissionRatePercent: decimal.NewFromInt(20), PartnershipType: domain.PartnershipExclusive})
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	item, err := s.CreateInventoryItem(ctx, domain.InventoryItem{Name: "Tee", BrandID: brand.ID, UnitPriceCents: 500, StockCount: 10})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return s, *brand, *item
}

func pendingRecord(item domain.InventoryItem, payout int64) domain.SaleRecord {
	return domain.SaleRecord{
		ItemID:       item.ID,
		ItemName:     item.Name,
		BrandID:      item.BrandID,
		BrandName:    item.BrandName,
		Quantity:     1,
		GrossCents:   payout,
		PayoutCents:  payout,
		PayoutStatus: domain.PayoutStatusPending,
	}
}

func TestCreateSalesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, _, item := newFixture(t)

	_, err := s.CreateSales(ctx, domain.SaleSubmission{
		ID: "sub-1",
		Records: []domain.SaleRecord{
			pendingRecord(item, 400),
			{ItemID: "missing", Quantity: 1},
		},
		Decrements: []domain.StockDecrement{{ItemID: item.ID, Qty: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sales, _ := s.ListSales(ctx)
	if len(sales) != 0 {
		t.Fatalf("expected no sales after failed submission, got %d", len(sales))
	}
	got, _ := s.GetInventoryItem(ctx, item.ID)
	if got.StockCount != 10 {
		t.Fatalf("expected stock untouched, got %d", got.StockCount)
	}
}

func TestCreateSalesRejectsArchivedItem(t *testing.T) {
	ctx := context.Background()
	s, _, item := newFixture(t)

	archived := item
	archived.Status = domain.ItemStatusArchived
	if _, err := s.UpdateInventoryItem(ctx, archived); err != nil {
		t.Fatalf("archive item: %v", err)
	}

	_, err := s.CreateSales(ctx, domain.SaleSubmission{
		ID:         "sub-1",
		Records:    []domain.SaleRecord{pendingRecord(item, 400)},
		Decrements: []domain.StockDecrement{{ItemID: item.ID, Qty: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for archived item, got %v", err)
	}

	sales, _ := s.ListSales(ctx)
	if len(sales) != 0 {
		t.Fatalf("expected no sales recorded, got %d", len(sales))
	}
	got, _ := s.GetInventoryItem(ctx, item.ID)
	if got.StockCount != 10 {
		t.Fatalf("expected stock untouched, got %d", got.StockCount)
	}
}

func TestCreateSalesDecrementsStock(t *testing.T) {
	ctx := context.Background()
	s, _, item := newFixture(t)

	created, err := s.CreateSales(ctx, domain.SaleSubmission{
		ID:         "sub-1",
		Records:    []domain.SaleRecord{pendingRecord(item, 400), pendingRecord(item, 400)},
		Decrements: []domain.StockDecrement{{ItemID: item.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create sales: %v", err)
	}
	if len(created) != 2 || created[0].ID == "" || created[0].SubmissionID != "sub-1" {
		t.Fatalf("unexpected records %+v", created)
	}
	got, _ := s.GetInventoryItem(ctx, item.ID)
	if got.StockCount != 8 {
		t.Fatalf("expected stock 8, got %d", got.StockCount)
	}
}

func TestSettleSalesRejectsStaleSelection(t *testing.T) {
	ctx := context.Background()
	s, brand, item := newFixture(t)

	created, err := s.CreateSales(ctx, domain.SaleSubmission{
		ID:      "sub-1",
		Records: []domain.SaleRecord{pendingRecord(item, 800), pendingRecord(item, 1200)},
	})
	if err != nil {
		t.Fatalf("create sales: %v", err)
	}
	ids := []string{created[0].ID, created[1].ID}

	committed, err := s.SettleSales(ctx, domain.Settlement{BrandID: brand.ID, BrandName: brand.Name, SaleIDs: ids})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if committed.PayoutCents != 2000 || committed.ID == "" {
		t.Fatalf("unexpected settlement %+v", committed)
	}

	if _, err := s.SettleSales(ctx, domain.Settlement{BrandID: brand.ID, SaleIDs: ids}); !errors.Is(err, store.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot on second settle, got %v", err)
	}

	sales, _ := s.ListSales(ctx)
	for _, sale := range sales {
		if sale.PayoutStatus != domain.PayoutStatusSettled || sale.SettlementID != committed.ID || sale.SettledAt == nil {
			t.Fatalf("expected settled sale, got %+v", sale)
		}
	}
	list, _ := s.ListSettlements(ctx, brand.ID, 10)
	if len(list) != 1 {
		t.Fatalf("expected one settlement row, got %d", len(list))
	}
}

func TestSettleSalesPartialStaleChangesNothing(t *testing.T) {
	ctx := context.Background()
	s, brand, item := newFixture(t)

	created, _ := s.CreateSales(ctx, domain.SaleSubmission{ID: "sub-1", Records: []domain.SaleRecord{pendingRecord(item, 100)}})
	_, err := s.SettleSales(ctx, domain.Settlement{BrandID: brand.ID, SaleIDs: []string{created[0].ID, "sale-unknown"}})
	if !errors.Is(err, store.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	sales, _ := s.ListSales(ctx)
	if sales[0].PayoutStatus != domain.PayoutStatusPending {
		t.Fatalf("expected sale to remain pending")
	}
}

func TestUpdateBrandRenamesInventory(t *testing.T) {
	ctx := context.Background()
	s, brand, item := newFixture(t)

	brand.Name = "Swoosh"
	if _, err := s.UpdateBrand(ctx, brand); err != nil {
		t.Fatalf("update brand: %v", err)
	}
	got, _ := s.GetInventoryItem(ctx, item.ID)
	if got.BrandName != "Swoosh" {
		t.Fatalf("expected renamed brand on item, got %q", got.BrandName)
	}
	if _, err := s.GetBrandByName(ctx, "swoosh"); err != nil {
		t.Fatalf("expected case-insensitive lookup, got %v", err)
	}
}

func TestBrandNamesAreUnique(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newFixture(t)
	if _, err := s.CreateBrand(ctx, domain.Brand{Name: "NIKE"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteBrandWithActiveItemsConflicts(t *testing.T) {
	ctx := context.Background()
	s, brand, item := newFixture(t)

	if err := s.DeleteBrand(ctx, brand.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	item.Status = domain.ItemStatusArchived
	if _, err := s.UpdateInventoryItem(ctx, item); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := s.DeleteBrand(ctx, brand.ID); err != nil {
		t.Fatalf("delete brand: %v", err)
	}
}
