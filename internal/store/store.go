package store

import (
	"context"
	"errors"
	"time"

	"consigna/backend/internal/domain"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrNoPendingSales = errors.New("no pending sales to settle")
	ErrStaleSnapshot  = errors.New("sales changed since selection, retry")
	ErrPersistence    = errors.New("persistence failure")
	ErrTimeout        = errors.New("operation timed out, retry")
)

// Repository is the catalog, ledger and user store. Implementations must be
// safe for concurrent use.
type Repository interface {
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	GetBrand(ctx context.Context, id string) (*domain.Brand, error)
	GetBrandByName(ctx context.Context, name string) (*domain.Brand, error)
	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	// UpdateBrand also rewrites the denormalized brand name on inventory items.
	UpdateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error

	ListInventory(ctx context.Context, query domain.InventoryQuery) ([]domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	GetInventoryItems(ctx context.Context, ids []string) (map[string]domain.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.InventoryItem, error)

	// CreateSales persists every record and stock decrement of a submission
	// in one commit, or nothing.
	CreateSales(ctx context.Context, submission domain.SaleSubmission) ([]domain.SaleRecord, error)
	ListSales(ctx context.Context) ([]domain.SaleRecord, error)
	// SettleSales flips every listed sale from pending to settled in one
	// commit. It fails with ErrStaleSnapshot, changing nothing, when any
	// listed sale is missing or already settled.
	SettleSales(ctx context.Context, settlement domain.Settlement) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, brandID string, limit int) ([]domain.Settlement, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, email string, password string) error
}
