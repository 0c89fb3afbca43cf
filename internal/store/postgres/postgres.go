package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/jackc/pgx/v5/stdlib"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db    *sql.DB
	types *pgtype.Map
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, types: pgtype.NewMap()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates any missing tables and indexes. Every statement is
// idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const brandColumns = `id, name, contact_email, partnership_type, commission_rate_percent, created_at, updated_at`

func scanBrand(row interface{ Scan(...any) error }) (domain.Brand, error) {
	var b domain.Brand
	err := row.Scan(&b.ID, &b.Name, &b.ContactEmail, &b.PartnershipType, &b.CommissionRatePercent, &b.CreatedAt, &b.UpdatedAt)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, err
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+brandColumns+` FROM brands ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, 32)
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	b, err := scanBrand(s.db.QueryRowContext(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetBrandByName(ctx context.Context, name string) (*domain.Brand, error) {
	b, err := scanBrand(s.db.QueryRowContext(ctx, `SELECT `+brandColumns+` FROM brands WHERE lower(name) = lower($1)`, strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	if strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrValidation
	}
	if brand.ID == "" {
		brand.ID = xid.New("brand")
	}
	now := time.Now().UTC()
	if brand.CreatedAt.IsZero() {
		brand.CreatedAt = now
	}
	brand.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, name, contact_email, partnership_type, commission_rate_percent, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, brand.ID, brand.Name, brand.ContactEmail, brand.PartnershipType, brand.CommissionRatePercent, brand.CreatedAt, brand.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &brand, nil
}

func (s *Store) UpdateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	if strings.TrimSpace(brand.Name) == "" {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	brand.UpdatedAt = time.Now().UTC()
	err = tx.QueryRowContext(ctx, `
		UPDATE brands
		SET name = $2, contact_email = $3, partnership_type = $4, commission_rate_percent = $5, updated_at = $6
		WHERE id = $1
		RETURNING created_at
	`, brand.ID, brand.Name, brand.ContactEmail, brand.PartnershipType, brand.CommissionRatePercent, brand.UpdatedAt).Scan(&brand.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory_items SET brand_name = $2 WHERE brand_id = $1 AND brand_name <> $2
	`, brand.ID, brand.Name); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	brand.CreatedAt = brand.CreatedAt.UTC()
	return &brand, nil
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	var active int
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM inventory_items WHERE brand_id = $1 AND status = $2
	`, id, domain.ItemStatusActive).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return store.ErrConflict
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const itemColumns = `id, name, brand_id, brand_name, size, unit_price_cents, stock_count, commission_rate_percent, status, store_label, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (domain.InventoryItem, error) {
	var it domain.InventoryItem
	err := row.Scan(&it.ID, &it.Name, &it.BrandID, &it.BrandName, &it.Size, &it.UnitPriceCents, &it.StockCount,
		&it.CommissionRatePercent, &it.Status, &it.StoreLabel, &it.CreatedAt, &it.UpdatedAt)
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return it, err
}

func (s *Store) ListInventory(ctx context.Context, query domain.InventoryQuery) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE ($1 = '' OR brand_id = $1)
		  AND ($2 = '' OR store_label = $2)
		  AND ($3 OR status = 'active')
		ORDER BY lower(brand_name), lower(name), id
	`, query.BrandID, query.StoreLabel, query.IncludeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *Store) GetInventoryItems(ctx context.Context, ids []string) (map[string]domain.InventoryItem, error) {
	result := make(map[string]domain.InventoryItem, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if strings.TrimSpace(item.Name) == "" || item.UnitPriceCents < 0 {
		return nil, store.ErrValidation
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.Status == "" {
		item.Status = domain.ItemStatusActive
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory_items (
			id, name, brand_id, brand_name, size, unit_price_cents, stock_count,
			commission_rate_percent, status, store_label, created_at, updated_at
		)
		SELECT $1, $2, b.id, b.name, $4, $5, $6, $7, $8, $9, $10, $11
		FROM brands b
		WHERE b.id = $3
		RETURNING brand_name
	`, item.ID, item.Name, item.BrandID, item.Size, item.UnitPriceCents, item.StockCount,
		item.CommissionRatePercent, item.Status, item.StoreLabel, item.CreatedAt, item.UpdatedAt).Scan(&item.BrandName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if strings.TrimSpace(item.Name) == "" || item.UnitPriceCents < 0 {
		return nil, store.ErrValidation
	}
	updated, err := scanItem(s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET name = $2, size = $3, unit_price_cents = $4, stock_count = $5,
		    commission_rate_percent = $6, status = $7, store_label = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		item.ID, item.Name, item.Size, item.UnitPriceCents, item.StockCount,
		item.CommissionRatePercent, item.Status, item.StoreLabel))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (*domain.InventoryItem, error) {
	updated, err := scanItem(s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET stock_count = stock_count + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns, id, delta))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) CreateSales(ctx context.Context, submission domain.SaleSubmission) ([]domain.SaleRecord, error) {
	if len(submission.Records) == 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	itemIDs := uniqueItemIDs(submission)
	var found int
	if err := pgTx.QueryRowContext(ctx, `
		SELECT count(*) FROM (
			SELECT id FROM inventory_items WHERE id = ANY($1) AND status = 'active' FOR UPDATE
		) locked
	`, itemIDs).Scan(&found); err != nil {
		return nil, mapTxError(err)
	}
	if found != len(itemIDs) {
		return nil, store.ErrNotFound
	}

	now := time.Now().UTC()
	created := make([]domain.SaleRecord, 0, len(submission.Records))
	for _, r := range submission.Records {
		if r.ID == "" {
			r.ID = xid.New("sale")
		}
		if r.SubmissionID == "" {
			r.SubmissionID = submission.ID
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.PayoutStatus == "" {
			r.PayoutStatus = domain.PayoutStatusPending
		}
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_records (
				id, submission_id, item_id, item_name, brand_id, brand_name, size_label, quantity,
				unit_price_cents, commission_rate_percent, gross_cents, commission_cents, payout_cents,
				payout_status, customer_name, customer_phone, customer_address, store_label, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		`, r.ID, r.SubmissionID, r.ItemID, r.ItemName, r.BrandID, r.BrandName, r.SizeLabel, r.Quantity,
			r.UnitPriceCents, r.CommissionRatePercent, r.GrossCents, r.CommissionCents, r.PayoutCents,
			r.PayoutStatus, r.Customer.Name, r.Customer.Phone, r.Customer.Address, r.StoreLabel, r.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrConflict
			}
			return nil, mapTxError(err)
		}
		created = append(created, r)
	}

	for _, dec := range submission.Decrements {
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE inventory_items SET stock_count = stock_count - $2, updated_at = now() WHERE id = $1
		`, dec.ItemID, dec.Qty); err != nil {
			return nil, mapTxError(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return created, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submission_id, item_id, item_name, brand_id, brand_name, size_label, quantity,
		       unit_price_cents, commission_rate_percent, gross_cents, commission_cents, payout_cents,
		       payout_status, customer_name, customer_phone, customer_address, store_label, created_at,
		       settled_at, settlement_id
		FROM sale_records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRecord, 0, 256)
	for rows.Next() {
		var r domain.SaleRecord
		var settledAt sql.NullTime
		var settlementID sql.NullString
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.ItemID, &r.ItemName, &r.BrandID, &r.BrandName, &r.SizeLabel, &r.Quantity,
			&r.UnitPriceCents, &r.CommissionRatePercent, &r.GrossCents, &r.CommissionCents, &r.PayoutCents,
			&r.PayoutStatus, &r.Customer.Name, &r.Customer.Phone, &r.Customer.Address, &r.StoreLabel, &r.CreatedAt,
			&settledAt, &settlementID); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		if settledAt.Valid {
			at := settledAt.Time.UTC()
			r.SettledAt = &at
		}
		r.SettlementID = settlementID.String
		sales = append(sales, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) SettleSales(ctx context.Context, settlement domain.Settlement) (*domain.Settlement, error) {
	ids := uniqueStrings(settlement.SaleIDs)
	if len(ids) == 0 {
		return nil, store.ErrNoPendingSales
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, payout_status, payout_cents
		FROM sale_records
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, mapTxError(err)
	}
	locked := 0
	total := int64(0)
	stale := false
	for rows.Next() {
		var id, status string
		var cents int64
		if err := rows.Scan(&id, &status, &cents); err != nil {
			_ = rows.Close()
			return nil, err
		}
		locked++
		total += cents
		if status != domain.PayoutStatusPending {
			stale = true
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, mapTxError(err)
	}
	_ = rows.Close()
	if stale || locked != len(ids) {
		return nil, store.ErrStaleSnapshot
	}

	if settlement.ID == "" {
		settlement.ID = xid.New("stl")
	}
	if settlement.SettledAt.IsZero() {
		settlement.SettledAt = time.Now().UTC()
	}
	settlement.PayoutCents = total
	settlement.SaleIDs = ids

	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO settlements (id, brand_id, brand_name, payout_cents, settled_at, settled_by)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, settlement.ID, settlement.BrandID, settlement.BrandName, settlement.PayoutCents, settlement.SettledAt, settlement.SettledBy); err != nil {
		return nil, mapTxError(err)
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE sale_records
		SET payout_status = $2, settled_at = $3, settlement_id = $4
		WHERE id = ANY($1) AND payout_status = $5
	`, ids, domain.PayoutStatusSettled, settlement.SettledAt, settlement.ID, domain.PayoutStatusPending)
	if err != nil {
		return nil, mapTxError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected != int64(len(ids)) {
		return nil, store.ErrStaleSnapshot
	}

	if err := pgTx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &settlement, nil
}

func (s *Store) ListSettlements(ctx context.Context, brandID string, limit int) ([]domain.Settlement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.id, st.brand_id, st.brand_name, st.payout_cents, st.settled_at, st.settled_by,
		       COALESCE(array_agg(sr.id ORDER BY sr.seq) FILTER (WHERE sr.id IS NOT NULL), '{}')
		FROM settlements st
		LEFT JOIN sale_records sr ON sr.settlement_id = st.id
		WHERE ($1 = '' OR st.brand_id = $1)
		GROUP BY st.id
		ORDER BY st.settled_at DESC, st.id DESC
		LIMIT $2
	`, brandID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Settlement, 0, 16)
	for rows.Next() {
		var st domain.Settlement
		if err := rows.Scan(&st.ID, &st.BrandID, &st.BrandName, &st.PayoutCents, &st.SettledAt, &st.SettledBy,
			s.types.SQLScanner(&st.SaleIDs)); err != nil {
			return nil, err
		}
		st.SettledAt = st.SettledAt.UTC()
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_email, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorEmail, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_email, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorEmail, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	user.Role = domain.NormalizeRole(user.Role)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (email, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Email, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, password, role, active, created_at
		FROM app_users
		ORDER BY email ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Email, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, email string, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE email = $1
	`, email, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueItemIDs(submission domain.SaleSubmission) []string {
	ids := make([]string, 0, len(submission.Records)+len(submission.Decrements))
	for _, r := range submission.Records {
		ids = append(ids, r.ItemID)
	}
	for _, d := range submission.Decrements {
		ids = append(ids, d.ItemID)
	}
	return uniqueStrings(ids)
}

func uniqueStrings(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// mapTxError turns a serialization failure into the retryable stale error.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", store.ErrStaleSnapshot, pgErr.Message)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
