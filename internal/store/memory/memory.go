package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	brands       map[string]domain.Brand
	items        map[string]domain.InventoryItem
	sales        []domain.SaleRecord
	salesByID    map[string]int
	settlements  []domain.Settlement
	auditLogs    []domain.AuditLog
	usersByEmail map[string]domain.UserAccount
}

// New returns an empty store with no users.
func New() *Store {
	return &Store{
		brands:       make(map[string]domain.Brand),
		items:        make(map[string]domain.InventoryItem),
		sales:        make([]domain.SaleRecord, 0, 256),
		salesByID:    make(map[string]int),
		settlements:  make([]domain.Settlement, 0, 16),
		auditLogs:    make([]domain.AuditLog, 0, 128),
		usersByEmail: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_SALES_PASSWORD; unset ones fall back to dev defaults with a warning.
// The memory store is never used when DATABASE_URL is set.
func seedUsers(log *zap.Logger) map[string]domain.UserAccount {
	seeds := []struct {
		email string
		env   string
		dev   string
		role  string
	}{
		{"admin@consigna.local", "SEED_ADMIN_PASSWORD", "admin123", domain.RoleAdmin},
		{"manager@consigna.local", "SEED_MANAGER_PASSWORD", "manager123", domain.RoleManager},
		{"sales@consigna.local", "SEED_SALES_PASSWORD", "sales123", domain.RoleSales},
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, seed := range seeds {
		password := os.Getenv(seed.env)
		if password == "" {
			password = seed.dev
			log.Warn("memory store using default dev credentials", zap.String("email", seed.email), zap.String("override_env", seed.env))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("email", seed.email), zap.Error(err))
		}
		users[seed.email] = domain.UserAccount{
			Email:     seed.email,
			Password:  string(hash),
			Role:      seed.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

// NewSeeded returns a store with demo brands, inventory and users.
func NewSeeded(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := New()
	now := time.Now().UTC()

	brands := []domain.Brand{
		{ID: "brand-nike", Name: "Nike", ContactEmail: "partners@nike.example", PartnershipType: domain.PartnershipExclusive, CommissionRatePercent: decimal.NewFromInt(20)},
		{ID: "brand-adidas", Name: "Adidas", ContactEmail: "consign@adidas.example", PartnershipType: domain.PartnershipNonExclusive, CommissionRatePercent: decimal.NewFromInt(15)},
		{ID: "brand-lokal", Name: "Lokal Goods", PartnershipType: domain.PartnershipNonExclusive, CommissionRatePercent: decimal.RequireFromString("12.5")},
	}
	for _, b := range brands {
		b.CreatedAt = now
		b.UpdatedAt = now
		s.brands[b.ID] = b
	}

	items := []domain.InventoryItem{
		{ID: "item-nike-tee-m", Name: "Tee", BrandID: "brand-nike", Size: "M", UnitPriceCents: 500, StockCount: 40},
		{ID: "item-nike-cap", Name: "Cap", BrandID: "brand-nike", UnitPriceCents: 1200, StockCount: 15},
		{ID: "item-adidas-hoodie-l", Name: "Hoodie", BrandID: "brand-adidas", Size: "L", UnitPriceCents: 4500, StockCount: 8},
		{ID: "item-lokal-tote", Name: "Canvas Tote", BrandID: "brand-lokal", UnitPriceCents: 1800},
	}
	for _, item := range items {
		brand := s.brands[item.BrandID]
		item.BrandName = brand.Name
		item.CommissionRatePercent = brand.CommissionRatePercent
		item.Status = domain.ItemStatusActive
		item.StoreLabel = "main-store"
		item.CreatedAt = now
		item.UpdatedAt = now
		s.items[item.ID] = item
	}

	s.usersByEmail = seedUsers(log)
	return s
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]domain.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		brands = append(brands, b)
	}
	slices.SortFunc(brands, func(a, b domain.Brand) int {
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return brands, nil
}

func (s *Store) GetBrand(_ context.Context, id string) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brand, ok := s.brands[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &brand, nil
}

func (s *Store) GetBrandByName(_ context.Context, name string) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if brand, ok := s.brandByNameLocked(name); ok {
		return &brand, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) brandByNameLocked(name string) (domain.Brand, bool) {
	name = strings.TrimSpace(name)
	for _, b := range s.brands {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return domain.Brand{}, false
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrValidation
	}
	if _, exists := s.brandByNameLocked(brand.Name); exists {
		return nil, store.ErrConflict
	}
	if brand.ID == "" {
		brand.ID = xid.New("brand")
	}
	if _, exists := s.brands[brand.ID]; exists {
		return nil, store.ErrConflict
	}
	now := time.Now().UTC()
	if brand.CreatedAt.IsZero() {
		brand.CreatedAt = now
	}
	brand.UpdatedAt = now
	s.brands[brand.ID] = brand
	created := brand
	return &created, nil
}

func (s *Store) UpdateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.brands[brand.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrValidation
	}
	if other, exists := s.brandByNameLocked(brand.Name); exists && other.ID != brand.ID {
		return nil, store.ErrConflict
	}

	brand.CreatedAt = existing.CreatedAt
	brand.UpdatedAt = time.Now().UTC()
	s.brands[brand.ID] = brand

	if brand.Name != existing.Name {
		for id, item := range s.items {
			if item.BrandID == brand.ID {
				item.BrandName = brand.Name
				s.items[id] = item
			}
		}
	}

	updated := brand
	return &updated, nil
}

func (s *Store) DeleteBrand(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[id]; !ok {
		return store.ErrNotFound
	}
	for _, item := range s.items {
		if item.BrandID == id && item.Status == domain.ItemStatusActive {
			return store.ErrConflict
		}
	}
	delete(s.brands, id)
	return nil
}

func (s *Store) ListInventory(_ context.Context, query domain.InventoryQuery) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		if query.BrandID != "" && item.BrandID != query.BrandID {
			continue
		}
		if query.StoreLabel != "" && item.StoreLabel != query.StoreLabel {
			continue
		}
		if !query.IncludeArchived && item.Status != domain.ItemStatusActive {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, compareItems)
	return items, nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) GetInventoryItems(_ context.Context, ids []string) (map[string]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.InventoryItem, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			result[id] = item
		}
	}
	return result, nil
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(item.Name) == "" || item.UnitPriceCents < 0 {
		return nil, store.ErrValidation
	}
	brand, ok := s.brands[item.BrandID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrConflict
	}
	now := time.Now().UTC()
	item.BrandName = brand.Name
	if item.Status == "" {
		item.Status = domain.ItemStatusActive
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(item.Name) == "" || item.UnitPriceCents < 0 {
		return nil, store.ErrValidation
	}
	item.BrandID = existing.BrandID
	item.BrandName = existing.BrandName
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.StockCount += delta
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	adjusted := item
	return &adjusted, nil
}

func (s *Store) CreateSales(ctx context.Context, submission domain.SaleSubmission) ([]domain.SaleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(submission.Records) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check everything before touching state so a failure leaves nothing behind.
	for _, record := range submission.Records {
		if item, ok := s.items[record.ItemID]; !ok || item.Status != domain.ItemStatusActive {
			return nil, store.ErrNotFound
		}
		if record.ID != "" {
			if _, dup := s.salesByID[record.ID]; dup {
				return nil, store.ErrConflict
			}
		}
	}
	for _, dec := range submission.Decrements {
		if item, ok := s.items[dec.ItemID]; !ok || item.Status != domain.ItemStatusActive {
			return nil, store.ErrNotFound
		}
	}

	now := time.Now().UTC()
	created := make([]domain.SaleRecord, 0, len(submission.Records))
	for _, record := range submission.Records {
		if record.ID == "" {
			record.ID = xid.New("sale")
		}
		if record.SubmissionID == "" {
			record.SubmissionID = submission.ID
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if record.PayoutStatus == "" {
			record.PayoutStatus = domain.PayoutStatusPending
		}
		s.salesByID[record.ID] = len(s.sales)
		s.sales = append(s.sales, cloneSale(record))
		created = append(created, cloneSale(record))
	}
	for _, dec := range submission.Decrements {
		item := s.items[dec.ItemID]
		item.StockCount -= dec.Qty
		item.UpdatedAt = now
		s.items[dec.ItemID] = item
	}
	return created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.SaleRecord, 0, len(s.sales))
	for _, record := range s.sales {
		sales = append(sales, cloneSale(record))
	}
	return sales, nil
}

func (s *Store) SettleSales(ctx context.Context, settlement domain.Settlement) (*domain.Settlement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(settlement.SaleIDs) == 0 {
		return nil, store.ErrNoPendingSales
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(settlement.SaleIDs))
	total := int64(0)
	for _, id := range settlement.SaleIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		idx, ok := s.salesByID[id]
		if !ok || s.sales[idx].PayoutStatus != domain.PayoutStatusPending {
			return nil, store.ErrStaleSnapshot
		}
		total += s.sales[idx].PayoutCents
	}

	if settlement.ID == "" {
		settlement.ID = xid.New("stl")
	}
	if settlement.SettledAt.IsZero() {
		settlement.SettledAt = time.Now().UTC()
	}
	settlement.PayoutCents = total

	settledAt := settlement.SettledAt
	for id := range seen {
		idx := s.salesByID[id]
		s.sales[idx].PayoutStatus = domain.PayoutStatusSettled
		s.sales[idx].SettledAt = &settledAt
		s.sales[idx].SettlementID = settlement.ID
	}
	s.settlements = append(s.settlements, cloneSettlement(settlement))

	committed := cloneSettlement(settlement)
	return &committed, nil
}

func (s *Store) ListSettlements(_ context.Context, brandID string, limit int) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Settlement, 0, len(s.settlements))
	for _, st := range s.settlements {
		if brandID != "" && st.BrandID != brandID {
			continue
		}
		result = append(result, cloneSettlement(st))
	}
	slices.SortFunc(result, func(a, b domain.Settlement) int {
		if a.SettledAt.Equal(b.SettledAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.SettledAt.After(b.SettledAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByEmail[email]; exists {
		return store.ErrConflict
	}
	user.Email = email
	user.Role = domain.NormalizeRole(user.Role)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByEmail[email] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByEmail))
	for _, user := range s.usersByEmail {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Email, b.Email)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, email string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByEmail[email]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByEmail[email] = user
	return nil
}

func compareItems(a, b domain.InventoryItem) int {
	if c := cmpString(strings.ToLower(a.BrandName), strings.ToLower(b.BrandName)); c != 0 {
		return c
	}
	if c := cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return cmpString(a.ID, b.ID)
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneSale(src domain.SaleRecord) domain.SaleRecord {
	dst := src
	if src.SettledAt != nil {
		at := *src.SettledAt
		dst.SettledAt = &at
	}
	return dst
}

func cloneSettlement(src domain.Settlement) domain.Settlement {
	dst := src
	dst.SaleIDs = append([]string(nil), src.SaleIDs...)
	return dst
}
