package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	ContactEmail          string          `json:"contact_email,omitempty"`
	PartnershipType       string          `json:"partnership_type"`
	CommissionRatePercent decimal.Decimal `json:"commission_rate_percent"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type BrandCreateRequest struct {
	Name                  string          `json:"name"`
	ContactEmail          string          `json:"contact_email"`
	PartnershipType       string          `json:"partnership_type"`
	CommissionRatePercent decimal.Decimal `json:"commission_rate_percent"`
}

type BrandUpdateRequest struct {
	Name                  *string          `json:"name,omitempty"`
	ContactEmail          *string          `json:"contact_email,omitempty"`
	PartnershipType       *string          `json:"partnership_type,omitempty"`
	CommissionRatePercent *decimal.Decimal `json:"commission_rate_percent,omitempty"`
}

type InventoryItem struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	BrandID               string          `json:"brand_id"`
	BrandName             string          `json:"brand_name"`
	Size                  string          `json:"size"`
	UnitPriceCents        int64           `json:"unit_price_cents"`
	StockCount            int             `json:"stock_count"`
	CommissionRatePercent decimal.Decimal `json:"commission_rate_percent"`
	Status                string          `json:"status"`
	StoreLabel            string          `json:"store_label"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// TracksStock reports whether sales should decrement StockCount. A zero
// count means the item is sold without stock tracking.
func (i InventoryItem) TracksStock() bool {
	return i.StockCount != 0
}

type InventoryCreateRequest struct {
	Name                  string           `json:"name"`
	BrandID               string           `json:"brand_id"`
	Size                  string           `json:"size"`
	UnitPriceCents        int64            `json:"unit_price_cents"`
	StockCount            int              `json:"stock_count"`
	CommissionRatePercent *decimal.Decimal `json:"commission_rate_percent,omitempty"`
	StoreLabel            string           `json:"store_label"`
}

type InventoryUpdateRequest struct {
	Name                  *string          `json:"name,omitempty"`
	Size                  *string          `json:"size,omitempty"`
	UnitPriceCents        *int64           `json:"unit_price_cents,omitempty"`
	StockCount            *int             `json:"stock_count,omitempty"`
	CommissionRatePercent *decimal.Decimal `json:"commission_rate_percent,omitempty"`
	StoreLabel            *string          `json:"store_label,omitempty"`
}

type InventoryQuery struct {
	BrandID         string
	StoreLabel      string
	IncludeArchived bool
}

type RestockRequest struct {
	Delta int `json:"delta"`
}

type Customer struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type SaleLine struct {
	ItemID         string `json:"item_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

type SaleRequest struct {
	StoreLabel string     `json:"store_label"`
	DraftID    string     `json:"draft_id,omitempty"`
	Customer   Customer   `json:"customer"`
	Lines      []SaleLine `json:"lines"`
}

type SaleRecord struct {
	ID                    string          `json:"id"`
	SubmissionID          string          `json:"submission_id"`
	ItemID                string          `json:"item_id"`
	ItemName              string          `json:"item_name"`
	BrandID               string          `json:"brand_id"`
	BrandName             string          `json:"brand_name"`
	SizeLabel             string          `json:"size_label"`
	Quantity              int             `json:"quantity"`
	UnitPriceCents        int64           `json:"unit_price_cents"`
	CommissionRatePercent decimal.Decimal `json:"commission_rate_percent"`
	GrossCents            int64           `json:"gross_cents"`
	CommissionCents       int64           `json:"commission_cents"`
	PayoutCents           int64           `json:"payout_cents"`
	PayoutStatus          string          `json:"payout_status"`
	Customer              Customer        `json:"customer"`
	StoreLabel            string          `json:"store_label"`
	CreatedAt             time.Time       `json:"created_at"`
	SettledAt             *time.Time      `json:"settled_at,omitempty"`
	SettlementID          string          `json:"settlement_id,omitempty"`
}

// StockDecrement is applied in the same commit as the sale records it
// belongs to.
type StockDecrement struct {
	ItemID string
	Qty    int
}

type SaleSubmission struct {
	ID         string
	Records    []SaleRecord
	Decrements []StockDecrement
}

type SaleResponse struct {
	SubmissionID         string       `json:"submission_id"`
	Records              []SaleRecord `json:"records"`
	TotalGrossCents      int64        `json:"total_gross_cents"`
	TotalCommissionCents int64        `json:"total_commission_cents"`
	TotalPayoutCents     int64        `json:"total_payout_cents"`
}

// SalesFilter narrows a ledger snapshot. ExactDate (YYYY-MM-DD) wins over
// YearMonth (YYYY-MM) when both are set.
type SalesFilter struct {
	StoreLabel        string `json:"store_label,omitempty"`
	ExactDate         string `json:"exact_date,omitempty"`
	YearMonth         string `json:"year_month,omitempty"`
	BrandNameContains string `json:"brand_name_contains,omitempty"`
	BrandID           string `json:"brand_id,omitempty"`
	PayoutStatus      string `json:"payout_status,omitempty"`
}

type BrandAggregate struct {
	BrandID              string `json:"brand_id"`
	BrandName            string `json:"brand_name"`
	Count                int    `json:"count"`
	TotalGrossCents      int64  `json:"total_gross_cents"`
	TotalCommissionCents int64  `json:"total_commission_cents"`
	TotalPayoutCents     int64  `json:"total_payout_cents"`
	PendingPayoutCents   int64  `json:"pending_payout_cents"`
}

type BrandSummaryResponse struct {
	Brands               []BrandAggregate `json:"brands"`
	TotalGrossCents      int64            `json:"total_gross_cents"`
	TotalCommissionCents int64            `json:"total_commission_cents"`
	TotalPayoutCents     int64            `json:"total_payout_cents"`
	PendingPayoutCents   int64            `json:"pending_payout_cents"`
}

type DashboardSummary struct {
	StoreLabel      string           `json:"store_label,omitempty"`
	Date            string           `json:"date"`
	Month           string           `json:"month"`
	Today           BrandAggregate   `json:"today"`
	MonthToDate     BrandAggregate   `json:"month_to_date"`
	TopPartners     []BrandAggregate `json:"top_partners"`
	ActiveItems     int              `json:"active_items"`
	LowStockItems   int              `json:"low_stock_items"`
	PendingBrands   int              `json:"pending_brands"`
	GeneratedAtUnix int64            `json:"generated_at_unix"`
}

type SettleRequest struct {
	BrandID   string      `json:"brand_id,omitempty"`
	BrandName string      `json:"brand_name,omitempty"`
	Filter    SalesFilter `json:"filter"`
	AsOf      *time.Time  `json:"as_of,omitempty"`
}

type Settlement struct {
	ID          string    `json:"id"`
	BrandID     string    `json:"brand_id"`
	BrandName   string    `json:"brand_name"`
	SaleIDs     []string  `json:"sale_ids"`
	PayoutCents int64     `json:"payout_cents"`
	SettledAt   time.Time `json:"settled_at"`
	SettledBy   string    `json:"settled_by"`
}

type SettlementPreview struct {
	BrandID     string   `json:"brand_id"`
	BrandName   string   `json:"brand_name"`
	SaleIDs     []string `json:"sale_ids"`
	Count       int      `json:"count"`
	PayoutCents int64    `json:"payout_cents"`
}

type SettlementResponse struct {
	Settlement Settlement     `json:"settlement"`
	Aggregate  BrandAggregate `json:"aggregate"`
}

type InvoiceData struct {
	BrandID       string      `json:"brand_id,omitempty"`
	BrandName     string      `json:"brand_name,omitempty"`
	Filter        SalesFilter `json:"filter"`
	PeriodLabel   string      `json:"period_label"`
	InvoiceDate   string      `json:"invoice_date"`
	InvoiceNumber string      `json:"invoice_number,omitempty"`
}

type InvoiceEmailRequest struct {
	ToEmail string      `json:"to_email"`
	ToName  string      `json:"to_name"`
	Subject string      `json:"subject"`
	Data    InvoiceData `json:"data"`
}

type InvoiceEmailResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type InvoicePreviewResponse struct {
	Aggregate BrandAggregate `json:"aggregate"`
	HTML      string         `json:"html"`
}

type DraftSale struct {
	ID         string     `json:"id"`
	StoreLabel string     `json:"store_label"`
	Customer   Customer   `json:"customer"`
	Lines      []SaleLine `json:"lines"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type LedgerEvent struct {
	Kind string    `json:"kind"`
	IDs  []string  `json:"ids,omitempty"`
	At   time.Time `json:"at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Email     string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorEmail string    `json:"actor_email"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	PartnershipExclusive    = "exclusive"
	PartnershipNonExclusive = "non_exclusive"
)

const (
	ItemStatusActive   = "active"
	ItemStatusArchived = "archived"
)

const (
	PayoutStatusPending = "pending"
	PayoutStatusSettled = "settled"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

const (
	EventSaleRecorded   = "sale_recorded"
	EventSalesSettled   = "sales_settled"
	EventCatalogChanged = "catalog_changed"
)

// NormalizeRole maps a stored profile role onto a known role. Missing or
// unrecognised roles fall back to sales.
func NormalizeRole(role string) string {
	switch role {
	case RoleAdmin, RoleManager, RoleSales:
		return role
	default:
		return RoleSales
	}
}
