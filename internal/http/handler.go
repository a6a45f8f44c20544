// Package http serves the read-only index API: computed daily results,
// raw observations and the methodology document, straight from storage
// with a response cache in front.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stci-io/stci/internal/config"
	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/observability"
	"github.com/stci-io/stci/internal/storage"
)

// ServiceVersion is reported by the health and root endpoints.
const ServiceVersion = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	store       *storage.Store
	methodology domain.Methodology
	cache       Cache
	cacheTTL    time.Duration
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(store *storage.Store, methodology domain.Methodology, cache Cache, redisCfg *config.RedisConfig) *Handler {
	ttl := 60 * time.Second
	if redisCfg != nil && redisCfg.CacheTTLSecs > 0 {
		ttl = time.Duration(redisCfg.CacheTTLSecs) * time.Second
	}
	return &Handler{
		store:       store,
		methodology: methodology,
		cache:       cache,
		cacheTTL:    ttl,
	}
}

// HandleRoot serves the API documentation endpoint.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.sendError(w, http.StatusNotFound, "Not found")
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]any{
		"name":        "STCI API",
		"version":     ServiceVersion,
		"description": "Standard Token Cost Index - LLM pricing reference rates",
		"endpoints": map[string]string{
			"GET /health":                 "Health check",
			"GET /v1/index/latest":        "Latest computed index",
			"GET /v1/index/{date}":        "Index for specific date (YYYY-MM-DD)",
			"GET /v1/indices":             "List all available index dates",
			"GET /v1/observations/{date}": "Observations for date",
			"GET /v1/methodology":         "Current methodology configuration",
		},
	})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.LatestIndexDate(r.Context())

	h.sendJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "stci-api",
		"version":        ServiceVersion,
		"data_available": err == nil,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleIndexLatest serves the most recent computed index.
func (h *Handler) HandleIndexLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.store.LatestIndexDate(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "No index data available")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.serveIndex(w, r, latest)
}

// HandleIndexDate serves the index for the date in the path.
func (h *Handler) HandleIndexDate(w http.ResponseWriter, r *http.Request) {
	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}
	h.serveIndex(w, r, date)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, date domain.Date) {
	ctx := observability.WithDate(r.Context(), date.String())
	key := "stci:index:" + date.String()

	if body, ok := h.cache.Get(ctx, key); ok {
		h.sendCached(w, body)
		return
	}

	result, err := h.store.ReadIndex(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("No index data for %s", date))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.cache.Set(ctx, key, body, h.cacheTTL)
	h.sendCached(w, body)
}

// HandleIndices lists every date with a computed index, newest first.
func (h *Handler) HandleIndices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := "stci:indices"

	if body, ok := h.cache.Get(ctx, key); ok {
		h.sendCached(w, body)
		return
	}

	dates, err := h.store.ListIndexDates(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.String()
	}
	payload := map[string]any{
		"dates": strs,
		"count": len(strs),
	}
	if len(strs) > 0 {
		payload["latest"] = strs[0]
	} else {
		payload["latest"] = nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.cache.Set(ctx, key, body, h.cacheTTL)
	h.sendCached(w, body)
}

// HandleObservations serves the stored observations for the date in the path.
func (h *Handler) HandleObservations(w http.ResponseWriter, r *http.Request) {
	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}

	ctx := observability.WithDate(r.Context(), date.String())
	key := "stci:observations:" + date.String()

	if body, ok := h.cache.Get(ctx, key); ok {
		h.sendCached(w, body)
		return
	}

	observations, err := h.store.ReadObservations(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("No observations for %s", date))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"date":         date.String(),
		"count":        len(observations),
		"observations": observations,
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.cache.Set(ctx, key, body, h.cacheTTL)
	h.sendCached(w, body)
}

// HandleMethodology serves the active methodology configuration.
func (h *Handler) HandleMethodology(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.methodology)
}

func (h *Handler) pathDate(w http.ResponseWriter, r *http.Request) (domain.Date, bool) {
	raw := r.PathValue("date")
	date, err := domain.ParseDate(raw)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", raw))
		return domain.Date{}, false
	}
	return date, true
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Status already written, nothing left to do.
		return
	}
}

func (h *Handler) sendCached(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  message,
		"status": status,
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("request failed", observability.Error(err))
	h.sendError(w, http.StatusInternalServerError, "Internal server error")
}
