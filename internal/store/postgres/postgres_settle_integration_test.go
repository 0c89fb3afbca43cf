package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/store"
)

func TestSettleSalesOnlyOnce(t *testing.T) {
	databaseURL := os.Getenv("CONSIGNA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CONSIGNA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	stamp := time.Now().UnixNano()
	brandID := fmt.Sprintf("brand-it-%d", stamp)
	itemID := fmt.Sprintf("item-it-%d", stamp)
	submissionID := fmt.Sprintf("sub-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_records WHERE submission_id = $1`, submissionID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM settlements WHERE brand_id = $1`, brandID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, itemID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, brandID)
	})

	brand, err := s.CreateBrand(ctx, domain.Brand{
		ID:                    brandID,
		Name:                  fmt.Sprintf("Brand IT %d", stamp),
		PartnershipType:       domain.PartnershipExclusive,
		CommissionRatePercent: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	item, err := s.CreateInventoryItem(ctx, domain.InventoryItem{
		ID:                    itemID,
		Name:                  "Tee",
		BrandID:               brand.ID,
		UnitPriceCents:        500,
		StockCount:            5,
		CommissionRatePercent: brand.CommissionRatePercent,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	record := domain.SaleRecord{
		ItemID:                item.ID,
		ItemName:              item.Name,
		BrandID:               brand.ID,
		BrandName:             brand.Name,
		Quantity:              2,
		UnitPriceCents:        500,
		CommissionRatePercent: brand.CommissionRatePercent,
		GrossCents:            1000,
		CommissionCents:       200,
		PayoutCents:           800,
	}
	created, err := s.CreateSales(ctx, domain.SaleSubmission{
		ID:         submissionID,
		Records:    []domain.SaleRecord{record},
		Decrements: []domain.StockDecrement{{ItemID: item.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create sales: %v", err)
	}

	reloaded, err := s.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.StockCount != 3 {
		t.Fatalf("expected stock 3, got %d", reloaded.StockCount)
	}

	ids := []string{created[0].ID}
	settlement, err := s.SettleSales(ctx, domain.Settlement{BrandID: brand.ID, BrandName: brand.Name, SaleIDs: ids, SettledBy: "it@consigna.local"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settlement.PayoutCents != 800 {
		t.Fatalf("expected payout 800, got %d", settlement.PayoutCents)
	}

	if _, err := s.SettleSales(ctx, domain.Settlement{BrandID: brand.ID, SaleIDs: ids}); !errors.Is(err, store.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot on second settle, got %v", err)
	}

	history, err := s.ListSettlements(ctx, brand.ID, 10)
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(history) != 1 || len(history[0].SaleIDs) != 1 || history[0].SaleIDs[0] != created[0].ID {
		t.Fatalf("unexpected settlement history %+v", history)
	}
}
