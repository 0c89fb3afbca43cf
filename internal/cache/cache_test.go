package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"consigna/backend/internal/domain"
)

func exerciseDraftStore(t *testing.T, store DraftStore) {
	t.Helper()
	ctx := context.Background()

	price := int64(450)
	draft := domain.DraftSale{
		ID:         "draft-test-1",
		StoreLabel: "north",
		Customer:   domain.Customer{Name: "Ana"},
		Lines:      []domain.SaleLine{{ItemID: "item-1", Quantity: 2, UnitPriceCents: &price}},
		UpdatedAt:  time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, draft, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Get(ctx, draft.ID)
	if err != nil || !ok {
		t.Fatalf("expected draft, ok=%v err=%v", ok, err)
	}
	if got.StoreLabel != "north" || len(got.Lines) != 1 || *got.Lines[0].UnitPriceCents != 450 {
		t.Fatalf("unexpected draft %+v", got)
	}

	if err := store.Delete(ctx, draft.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, draft.ID); ok {
		t.Fatalf("expected draft to be gone")
	}
}

func TestMemoryDraftStore(t *testing.T) {
	exerciseDraftStore(t, NewMemoryDraftStore())
}

func TestMemoryDraftStoreExpires(t *testing.T) {
	store := NewMemoryDraftStore()
	now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Save(context.Background(), domain.DraftSale{ID: "d1"}, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(context.Background(), "d1"); ok {
		t.Fatalf("expected draft to expire")
	}
}

func TestRedisDraftStoreIntegration(t *testing.T) {
	addr := os.Getenv("CONSIGNA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONSIGNA_TEST_REDIS_ADDR is not set")
	}
	store := NewRedisDraftStore(addr, os.Getenv("CONSIGNA_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	exerciseDraftStore(t, store)
}
