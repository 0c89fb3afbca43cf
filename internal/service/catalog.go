package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/payout"
	"consigna/backend/internal/store"
)

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	brand, err := s.repo.GetBrand(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Brand{}, err
	}
	return *brand, nil
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	brand := domain.Brand{
		Name:                  strings.TrimSpace(req.Name),
		ContactEmail:          strings.TrimSpace(req.ContactEmail),
		PartnershipType:       defaultString(strings.TrimSpace(req.PartnershipType), domain.PartnershipNonExclusive),
		CommissionRatePercent: req.CommissionRatePercent,
	}
	if err := validateBrand(brand); err != nil {
		return domain.Brand{}, err
	}

	created, err := s.repo.CreateBrand(ctx, brand)
	if err != nil {
		return domain.Brand{}, err
	}

	s.logAudit(ctx, "brand_create", "brand", created.ID, fmt.Sprintf("name=%s,rate=%s", created.Name, created.CommissionRatePercent.StringFixed(2)))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{created.ID}, At: s.now().UTC()})
	return *created, nil
}

func (s *Service) UpdateBrand(ctx context.Context, id string, req domain.BrandUpdateRequest) (domain.Brand, error) {
	existing, err := s.repo.GetBrand(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Brand{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactEmail != nil {
		updated.ContactEmail = strings.TrimSpace(*req.ContactEmail)
	}
	if req.PartnershipType != nil {
		updated.PartnershipType = strings.TrimSpace(*req.PartnershipType)
	}
	if req.CommissionRatePercent != nil {
		updated.CommissionRatePercent = *req.CommissionRatePercent
	}
	if err := validateBrand(updated); err != nil {
		return domain.Brand{}, err
	}

	saved, err := s.repo.UpdateBrand(ctx, updated)
	if err != nil {
		return domain.Brand{}, err
	}

	s.logAudit(ctx, "brand_update", "brand", saved.ID, fmt.Sprintf("name=%s,rate=%s", saved.Name, saved.CommissionRatePercent.StringFixed(2)))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{saved.ID}, At: s.now().UTC()})
	return *saved, nil
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteBrand(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "brand_delete", "brand", id, "deleted")
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{id}, At: s.now().UTC()})
	return nil
}

func validateBrand(brand domain.Brand) error {
	if brand.Name == "" {
		return fmt.Errorf("%w: brand name is required", store.ErrValidation)
	}
	if err := payout.ValidateRate(brand.CommissionRatePercent); err != nil {
		return fmt.Errorf("%w: %w", store.ErrValidation, err)
	}
	if brand.ContactEmail != "" {
		if _, err := mail.ParseAddress(brand.ContactEmail); err != nil {
			return fmt.Errorf("%w: contact email %q is not a valid address", store.ErrValidation, brand.ContactEmail)
		}
	}
	switch brand.PartnershipType {
	case domain.PartnershipExclusive, domain.PartnershipNonExclusive:
	default:
		return fmt.Errorf("%w: unknown partnership type %q", store.ErrValidation, brand.PartnershipType)
	}
	return nil
}

func (s *Service) ListInventory(ctx context.Context, query domain.InventoryQuery) ([]domain.InventoryItem, error) {
	query.BrandID = strings.TrimSpace(query.BrandID)
	query.StoreLabel = strings.TrimSpace(query.StoreLabel)
	return s.repo.ListInventory(ctx, query)
}

// GetInventoryItem resolves a scanned code to an item. Archived items are
// not sellable and read as missing.
func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InventoryItem{}, store.ErrValidation
	}
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if item.Status != domain.ItemStatusActive {
		return domain.InventoryItem{}, store.ErrNotFound
	}
	return *item, nil
}

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.BrandID = strings.TrimSpace(req.BrandID)
	if req.Name == "" || req.BrandID == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: name and brand are required", store.ErrValidation)
	}
	if req.UnitPriceCents < 0 || req.StockCount < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: price and stock must not be negative", store.ErrValidation)
	}

	brand, err := s.repo.GetBrand(ctx, req.BrandID)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	rate := brand.CommissionRatePercent
	if req.CommissionRatePercent != nil {
		rate = *req.CommissionRatePercent
	}
	if err := payout.ValidateRate(rate); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("%w: %w", store.ErrValidation, err)
	}

	created, err := s.repo.CreateInventoryItem(ctx, domain.InventoryItem{
		Name:                  req.Name,
		BrandID:               brand.ID,
		Size:                  strings.TrimSpace(req.Size),
		UnitPriceCents:        req.UnitPriceCents,
		StockCount:            req.StockCount,
		CommissionRatePercent: rate,
		Status:                domain.ItemStatusActive,
		StoreLabel:            defaultString(strings.TrimSpace(req.StoreLabel), s.opts.StoreLabel),
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "item_create", "inventory_item", created.ID, fmt.Sprintf("name=%s,brand=%s,price=%d,stock=%d", created.Name, created.BrandName, created.UnitPriceCents, created.StockCount))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{created.ID}, At: s.now().UTC()})
	return *created, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req domain.InventoryUpdateRequest) (domain.InventoryItem, error) {
	existing, err := s.repo.GetInventoryItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItem{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InventoryItem{}, fmt.Errorf("%w: name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Size != nil {
		updated.Size = strings.TrimSpace(*req.Size)
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
		}
		updated.UnitPriceCents = *req.UnitPriceCents
	}
	if req.StockCount != nil {
		updated.StockCount = *req.StockCount
	}
	if req.CommissionRatePercent != nil {
		if err := payout.ValidateRate(*req.CommissionRatePercent); err != nil {
			return domain.InventoryItem{}, fmt.Errorf("%w: %w", store.ErrValidation, err)
		}
		updated.CommissionRatePercent = *req.CommissionRatePercent
	}
	if req.StoreLabel != nil {
		updated.StoreLabel = defaultString(strings.TrimSpace(*req.StoreLabel), s.opts.StoreLabel)
	}

	saved, err := s.repo.UpdateInventoryItem(ctx, updated)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	detail := fmt.Sprintf("price=%d,stock=%d", saved.UnitPriceCents, saved.StockCount)
	if !existing.CommissionRatePercent.Equal(saved.CommissionRatePercent) {
		detail += fmt.Sprintf(",rate=%s->%s", existing.CommissionRatePercent.StringFixed(2), saved.CommissionRatePercent.StringFixed(2))
	}
	s.logAudit(ctx, "item_update", "inventory_item", saved.ID, detail)
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{saved.ID}, At: s.now().UTC()})
	return *saved, nil
}

func (s *Service) ArchiveInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	existing, err := s.repo.GetInventoryItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if existing.Status == domain.ItemStatusArchived {
		return *existing, nil
	}

	archived := *existing
	archived.Status = domain.ItemStatusArchived
	saved, err := s.repo.UpdateInventoryItem(ctx, archived)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "item_archive", "inventory_item", saved.ID, "archived")
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{saved.ID}, At: s.now().UTC()})
	return *saved, nil
}

func (s *Service) RestockInventoryItem(ctx context.Context, id string, req domain.RestockRequest) (domain.InventoryItem, error) {
	id = strings.TrimSpace(id)
	if id == "" || req.Delta == 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: restock needs an item and a non-zero delta", store.ErrValidation)
	}

	item, err := s.repo.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "item_restock", "inventory_item", item.ID, fmt.Sprintf("delta=%d,stock=%d", req.Delta, item.StockCount))
	s.events.Publish(domain.LedgerEvent{Kind: domain.EventCatalogChanged, IDs: []string{item.ID}, At: s.now().UTC()})
	return *item, nil
}
