package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"consigna/backend/internal/domain"
	"consigna/backend/internal/logging"
	"consigna/backend/internal/mailer"
	"consigna/backend/internal/metrics"
	"consigna/backend/internal/service"
	"consigna/backend/internal/store"
)

var (
	allRoles     = []string{domain.RoleAdmin, domain.RoleManager, domain.RoleSales}
	backOffice   = []string{domain.RoleAdmin, domain.RoleManager}
	adminOnly    = []string{domain.RoleAdmin}
	sseKeepAlive = 25 * time.Second
)

type API struct {
	service        *service.Service
	auth           *AuthManager
	metrics        *metrics.Metrics
	log            *zap.Logger
	allowedOrigin  string
	loginLimiter   *attemptLimiter
	invoiceLimiter *attemptLimiter
	csrfSecret     []byte
}

func New(svc *service.Service, auth *AuthManager, m *metrics.Metrics, log *zap.Logger, allowedOrigin string) *API {
	if log == nil {
		log = zap.NewNop()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		log.Warn("crypto/rand unavailable, using fallback csrf secret", zap.Error(err))
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:        svc,
		auth:           auth,
		metrics:        m,
		log:            log,
		allowedOrigin:  allowedOrigin,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		invoiceLimiter: newAttemptLimiter(10, time.Minute),
		csrfSecret:     csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (Unix time truncated to the hour), hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts tokens from the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(a.log))
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Use(a.withMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeMethodNotAllowed(w)
	})

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Get("/auth/csrf-token", a.handleCSRFToken)
		r.Get("/auth/me", a.requireAuth(a.handleMe, allRoles...))

		r.Get("/brands", a.requireAuth(a.handleListBrands, allRoles...))
		r.Post("/brands", a.requireAuth(a.handleCreateBrand, adminOnly...))
		r.Get("/brands/{id}", a.requireAuth(a.handleGetBrand, allRoles...))
		r.Patch("/brands/{id}", a.requireAuth(a.handleUpdateBrand, adminOnly...))
		r.Delete("/brands/{id}", a.requireAuth(a.handleDeleteBrand, adminOnly...))

		r.Get("/inventory", a.requireAuth(a.handleListInventory, allRoles...))
		r.Post("/inventory", a.requireAuth(a.handleCreateInventory, adminOnly...))
		r.Get("/inventory/{id}", a.requireAuth(a.handleGetInventory, allRoles...))
		r.Patch("/inventory/{id}", a.requireAuth(a.handleUpdateInventory, adminOnly...))
		r.Post("/inventory/{id}/archive", a.requireAuth(a.handleArchiveInventory, adminOnly...))
		r.Post("/inventory/{id}/restock", a.requireAuth(a.handleRestockInventory, adminOnly...))

		r.Post("/sales", a.requireAuth(a.handleRecordSale, allRoles...))
		r.Get("/sales", a.requireAuth(a.handleListSales, allRoles...))
		r.Get("/sales/export.csv", a.requireAuth(a.handleExportSales, backOffice...))

		r.Get("/reports/brands", a.requireAuth(a.handleBrandReport, backOffice...))
		r.Get("/reports/dashboard", a.requireAuth(a.handleDashboard, backOffice...))

		r.Get("/settlements/preview", a.requireAuth(a.handleSettlementPreview, backOffice...))
		r.Post("/settlements", a.requireAuth(a.handleSettle, backOffice...))
		r.Get("/settlements", a.requireAuth(a.handleListSettlements, backOffice...))

		r.Post("/invoices/preview", a.requireAuth(a.handleInvoicePreview, backOffice...))
		r.Post("/invoices/send", a.requireAuth(a.handleInvoiceSend, backOffice...))

		r.Post("/drafts", a.requireAuth(a.handleSaveDraft, allRoles...))
		r.Get("/drafts/{id}", a.requireAuth(a.handleGetDraft, allRoles...))
		r.Put("/drafts/{id}", a.requireAuth(a.handleSaveDraft, allRoles...))
		r.Delete("/drafts/{id}", a.requireAuth(a.handleDeleteDraft, allRoles...))

		r.Get("/events", a.requireAuth(a.handleEvents, allRoles...))

		r.Get("/audit-logs", a.requireAuth(a.handleAuditLogs, adminOnly...))
		r.Get("/users", a.requireAuth(a.handleListUsers, adminOnly...))
		r.Post("/users", a.requireAuth(a.handleCreateUser, adminOnly...))
	})

	return r
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless token clients send back in X-CSRF-Token
// on every mutating request.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"actor": actor})
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		a.writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := a.service.ListBrands(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func (a *API) handleGetBrand(w http.ResponseWriter, r *http.Request) {
	brand, err := a.service.GetBrand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand": brand})
}

func (a *API) handleCreateBrand(w http.ResponseWriter, r *http.Request) {
	var req domain.BrandCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	brand, err := a.service.CreateBrand(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"brand": brand})
}

func (a *API) handleUpdateBrand(w http.ResponseWriter, r *http.Request) {
	var req domain.BrandUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	brand, err := a.service.UpdateBrand(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand": brand})
}

func (a *API) handleDeleteBrand(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteBrand(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, err := a.service.ListInventory(r.Context(), domain.InventoryQuery{
		BrandID:         query.Get("brand_id"),
		StoreLabel:      query.Get("store"),
		IncludeArchived: query.Get("include_archived") == "true",
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	item, err := a.service.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.CreateInventoryItem(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleArchiveInventory(w http.ResponseWriter, r *http.Request) {
	item, err := a.service.ArchiveInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleRestockInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.RestockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.RestockInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

type lineFailureJSON struct {
	Index  int    `json:"index"`
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

func (a *API) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.RecordSale(r.Context(), req)
	if err != nil {
		var subErr *service.SubmissionError
		if errors.As(err, &subErr) {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				a.log.Error("sale submission failed", zap.Int("status", status), zap.Error(err))
			}
			lines := make([]lineFailureJSON, 0, len(subErr.Lines))
			for _, line := range subErr.Lines {
				lines = append(lines, lineFailureJSON{Index: line.Index, ItemID: line.ItemID, Error: publicMessage(status, line.Err)})
			}
			writeJSON(w, status, map[string]any{"error": publicMessage(status, errors.New("sale rejected")), "lines": lines})
			return
		}
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func salesFilterFromQuery(r *http.Request) domain.SalesFilter {
	query := r.URL.Query()
	return domain.SalesFilter{
		StoreLabel:        strings.TrimSpace(query.Get("store")),
		ExactDate:         strings.TrimSpace(query.Get("date")),
		YearMonth:         strings.TrimSpace(query.Get("month")),
		BrandNameContains: strings.TrimSpace(query.Get("brand")),
		BrandID:           strings.TrimSpace(query.Get("brand_id")),
		PayoutStatus:      strings.TrimSpace(query.Get("status")),
	}
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 2000)
	sales, err := a.service.ListSales(r.Context(), salesFilterFromQuery(r), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	body, count, err := a.service.ExportSalesCSV(r.Context(), salesFilterFromQuery(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	filename := "sales-" + time.Now().In(a.service.Location()).Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("X-Record-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *API) handleBrandReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	top := query.Get("top") == "true"
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		limit = parsePositiveLimit(raw, 0, 500)
	}
	summary, err := a.service.BrandSummary(r.Context(), salesFilterFromQuery(r), top, limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.Dashboard(r.Context(), r.URL.Query().Get("store"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleSettlementPreview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := salesFilterFromQuery(r)
	filter.BrandID = ""
	filter.BrandNameContains = ""
	preview, err := a.service.SettlementPreview(r.Context(), query.Get("brand_id"), query.Get("brand"), filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req domain.SettleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.SettleBrand(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), 50, 500)
	settlements, err := a.service.ListSettlements(r.Context(), query.Get("brand_id"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": settlements})
}

func (a *API) handleInvoicePreview(w http.ResponseWriter, r *http.Request) {
	var req domain.InvoiceData
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	preview, err := a.service.InvoicePreview(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (a *API) handleInvoiceSend(w http.ResponseWriter, r *http.Request) {
	if !a.invoiceLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many invoice emails"))
		return
	}
	var req domain.InvoiceEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.SendInvoice(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var draft domain.DraftSale
	if err := decodeJSON(r, &draft); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		draft.ID = id
		status = http.StatusOK
	}
	saved, err := a.service.SaveDraft(r.Context(), draft)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, status, map[string]any{"draft": saved})
}

func (a *API) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := a.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
}

func (a *API) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams ledger change notifications as Server-Sent Events.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	events, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		a.log.Warn("event stream cannot flush", zap.Error(err))
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), query.Get("date"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context())})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusFor maps service and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, mailer.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrStaleSnapshot):
		return http.StatusConflict
	case errors.Is(err, store.ErrNoPendingSales):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, mailer.ErrDelivery):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides 5xx details from clients; they go to the log instead.
func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		a.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]any{
		"error": publicMessage(status, err),
	})
}

func publicMessage(status int, err error) string {
	switch {
	case status < 500:
		return err.Error()
	case status == http.StatusBadGateway:
		return "email delivery failed, try again"
	case status == http.StatusGatewayTimeout:
		return "operation timed out, try again"
	case status == http.StatusServiceUnavailable:
		return "storage unavailable, try again"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
