package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/order"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/service"
	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/store"
)

type API struct {
	service       *service.Service
	allowedOrigin string
	confirmSecret []byte
	confirmTTL    time.Duration
}

func New(svc *service.Service, allowedOrigin string, confirmTTL time.Duration) *API {
	confirmSecret := make([]byte, 32)
	if _, err := rand.Read(confirmSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		confirmSecret = []byte("day-close-fallback-secret-32byte")
	}
	if confirmTTL <= 0 {
		confirmTTL = 2 * time.Minute
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		confirmSecret: confirmSecret,
		confirmTTL:    confirmTTL,
	}
}

// confirmTokenForBucket computes an HMAC-SHA256 token for the given time
// bucket (Unix time truncated to the token TTL). The token is hex-encoded.
func (a *API) confirmTokenForBucket(bucket int64) string {
	h := hmac.New(sha256.New, a.confirmSecret)
	fmt.Fprintf(h, "day-close:%d", bucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateConfirmToken returns the token for the current bucket. Ending the
// day is irreversible, so the client must fetch this token first (the confirm
// step) and present it on the execute step before it expires.
func (a *API) generateConfirmToken() string {
	bucket := time.Now().UTC().Truncate(a.confirmTTL).Unix()
	return a.confirmTokenForBucket(bucket)
}

// validateConfirmToken accepts the current or previous bucket, giving a
// confirmation window of one to two TTLs.
func (a *API) validateConfirmToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(a.confirmTTL).Unix()
	prevBucket := currentBucket - int64(a.confirmTTL/time.Second)

	expected1 := a.confirmTokenForBucket(currentBucket)
	expected2 := a.confirmTokenForBucket(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/menu", a.handleMenu)
	mux.HandleFunc("/api/v1/menu/top-items", a.handleTopItems)

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/sales/live", a.handleLiveSales)
	mux.HandleFunc("/api/v1/sales/", a.handleSaleActions)

	mux.HandleFunc("/api/v1/orders", a.handleOrderSession)
	mux.HandleFunc("/api/v1/orders/lines", a.handleOrderLines)
	mux.HandleFunc("/api/v1/orders/commit", a.handleCommitOrder)

	mux.HandleFunc("/api/v1/day-close/confirmation", a.handleDayCloseConfirmation)
	mux.HandleFunc("/api/v1/day-close", a.handleDayClose)

	mux.HandleFunc("/api/v1/history/dates", a.handleArchivedDates)
	mux.HandleFunc("/api/v1/history/sales", a.handleArchivedSales)
	mux.HandleFunc("/api/v1/history/expenses", a.handleArchivedExpenses)

	mux.HandleFunc("/api/v1/expenses", a.handleExpenses)
	mux.HandleFunc("/api/v1/expenses/live", a.handleLiveExpenses)
	mux.HandleFunc("/api/v1/expenses/", a.handleExpenseActions)

	mux.HandleFunc("/api/v1/reports/revenue", a.handleRevenueSummary)
	mux.HandleFunc("/api/v1/reports/breakdown", a.handleSalesBreakdown)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleMenu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		channel := r.URL.Query().Get("channel")
		items, err := a.service.GetMenu(r.Context(), channel)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req domain.MenuUpsertRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := a.service.UpsertMenuItem(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"item": item})
	case http.MethodDelete:
		itemName := r.URL.Query().Get("item")
		channel := r.URL.Query().Get("channel")
		if itemName == "" {
			writeError(w, http.StatusBadRequest, errors.New("item is required"))
			return
		}
		if err := a.service.DeleteMenuItem(r.Context(), itemName, channel); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": itemName})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleTopItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	channel := r.URL.Query().Get("channel")
	metric := r.URL.Query().Get("metric")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 5, 50)

	ranks, err := a.service.TopItems(r.Context(), channel, limit, metric)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ranks})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.LogSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record, err := a.service.LogSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": record})
}

func (a *API) handleLiveSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := a.service.GetLiveSales(r.Context(), r.URL.Query().Get("channel"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": records})
	case http.MethodDelete:
		removed, err := a.service.ClearLiveSales(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	timestamp := strings.TrimPrefix(r.URL.Path, "/api/v1/sales/")
	if timestamp == "" || timestamp == "live" {
		writeError(w, http.StatusBadRequest, errors.New("sale timestamp required"))
		return
	}

	if err := a.service.DeleteSale(r.Context(), timestamp); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": timestamp})
}

// handleOrderSession exposes the channel's pending order: GET returns the
// current lines, DELETE clears them.
func (a *API) handleOrderSession(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	switch r.Method {
	case http.MethodGet:
		lines, err := a.service.PendingOrderLines(channel)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
	case http.MethodDelete:
		if err := a.service.ClearOrder(channel); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": channel})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleOrderLines edits the pending order: POST adds one unit of an item,
// DELETE drops an item's line.
func (a *API) handleOrderLines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.OrderLineRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		lines, err := a.service.AddOrderLine(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
	case http.MethodDelete:
		channel := r.URL.Query().Get("channel")
		itemName := r.URL.Query().Get("item")
		lines, err := a.service.RemoveOrderLine(channel, itemName)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCommitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CommitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.CommitOrder(r.Context(), req)
	if err != nil {
		if len(result.Records) > 0 {
			// Partial commit: some lines landed before the failure.
			// Report what was written instead of a bare error.
			writeJSON(w, http.StatusConflict, result)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleDayCloseConfirmation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confirm_token": a.generateConfirmToken(),
		"valid_for":     a.confirmTTL.String(),
	})
}

func (a *API) handleDayClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	token := strings.TrimSpace(r.Header.Get("X-Confirm-Token"))
	if !a.validateConfirmToken(token) {
		writeError(w, http.StatusPreconditionFailed,
			errors.New("day close must be confirmed: fetch a confirmation token first"))
		return
	}

	result, err := a.service.CloseDay(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleArchivedDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	dates, err := a.service.GetArchivedDates(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (a *API) handleArchivedSales(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	switch r.Method {
	case http.MethodGet:
		records, err := a.service.GetArchivedSales(r.Context(), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": records})
	case http.MethodDelete:
		if err := a.service.DeleteArchivedSales(r.Context(), date); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted_date": date})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleArchivedExpenses(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	switch r.Method {
	case http.MethodGet:
		records, err := a.service.GetArchivedExpenses(r.Context(), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": records})
	case http.MethodDelete:
		if err := a.service.DeleteArchivedExpenses(r.Context(), date); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted_date": date})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.AddExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record, err := a.service.AddExpense(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": record})
}

func (a *API) handleLiveExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := a.service.GetLiveExpenses(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": records})
	case http.MethodDelete:
		removed, err := a.service.ClearLiveExpenses(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpenseActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	tail := strings.TrimPrefix(r.URL.Path, "/api/v1/expenses/")
	if tail == "" || tail == "live" {
		writeError(w, http.StatusBadRequest, errors.New("expense id required"))
		return
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("expense id must be an integer"))
		return
	}

	if err := a.service.DeleteExpense(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleRevenueSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.service.RevenueSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleSalesBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	breakdown, err := a.service.SalesBreakdown(r.Context(),
		r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Confirm-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
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

// writeServiceError maps the store's sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidRecord), errors.Is(err, order.ErrEmptyOrder):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateTimestamp):
		status = http.StatusConflict
	case errors.Is(err, service.ErrItemNotOnMenu):
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details. 4xx responses are user-facing so the original
	// error message is returned.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
