package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"consigna/backend/internal/cache"
	"consigna/backend/internal/domain"
	"consigna/backend/internal/invoice"
	"consigna/backend/internal/mailer"
	"consigna/backend/internal/metrics"
	"consigna/backend/internal/money"
	"consigna/backend/internal/payout"
	"consigna/backend/internal/store"
	"consigna/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	StoreLabel        string
	Location          *time.Location
	SettlementTimeout time.Duration
	EmailTimeout      time.Duration
	DraftTTL          time.Duration
	Seller            invoice.Seller
	Currency          money.Formatter
}

type Service struct {
	repo    store.Repository
	drafts  cache.DraftStore
	sender  mailer.Sender
	metrics *metrics.Metrics
	log     *zap.Logger
	events  *Broadcaster
	opts    Options
	now     func() time.Time
}

func New(repo store.Repository, drafts cache.DraftStore, sender mailer.Sender, m *metrics.Metrics, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if drafts == nil {
		drafts = cache.NewMemoryDraftStore()
	}
	if sender == nil {
		sender = mailer.NewLogSender(log)
	}
	if opts.StoreLabel == "" {
		opts.StoreLabel = "main-store"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SettlementTimeout <= 0 {
		opts.SettlementTimeout = 10 * time.Second
	}
	if opts.EmailTimeout <= 0 {
		opts.EmailTimeout = 15 * time.Second
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = 24 * time.Hour
	}
	if opts.Currency == (money.Formatter{}) {
		opts.Currency = money.NewFormatter("$", language.English)
	}

	return &Service{
		repo:    repo,
		drafts:  drafts,
		sender:  sender,
		metrics: m,
		log:     log,
		events:  NewBroadcaster(),
		opts:    opts,
		now:     time.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// snapshot reads the whole ledger together with the current brand names.
// Every report works from a fresh snapshot.
func (s *Service) snapshot(ctx context.Context) ([]domain.SaleRecord, payout.Options, error) {
	records, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, payout.Options{}, fmt.Errorf("%w: list sales: %w", store.ErrPersistence, err)
	}
	names, err := s.brandNames(ctx)
	if err != nil {
		return nil, payout.Options{}, err
	}
	return records, payout.Options{Location: s.opts.Location, BrandNames: names}, nil
}

func (s *Service) brandNames(ctx context.Context) (map[string]string, error) {
	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list brands: %w", store.ErrPersistence, err)
	}
	names := make(map[string]string, len(brands))
	for _, b := range brands {
		names[b.ID] = b.Name
	}
	return names, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.ParseInLocation("2006-01-02", date, s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Email: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

// persistenceError wraps unexpected store failures. Sentinel store errors
// pass through unchanged.
func persistenceError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrNoPendingSales),
		errors.Is(err, store.ErrStaleSnapshot),
		errors.Is(err, store.ErrTimeout),
		errors.Is(err, store.ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %s: %w", store.ErrPersistence, op, err)
}

func filterError(err error) error {
	if errors.Is(err, payout.ErrInvalidFilter) {
		return fmt.Errorf("%w: %w", store.ErrValidation, err)
	}
	return err
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
