// Package api serves stored NUTS regions over read-only HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/regions-cli/internal/region"
)

// Reader is the read side of region.Store.
type Reader interface {
	GetRegions(ctx context.Context, nutsID string) ([]region.Region, error)
	ListRegions(ctx context.Context, filter region.Filter) ([]region.Region, error)
	CountRegions(ctx context.Context) (int, error)
}

type handler struct {
	store Reader
	log   *zap.Logger
}

// NewRouter mounts the health check and the /v1 region endpoints.
func NewRouter(store Reader) http.Handler {
	h := &handler{
		store: store,
		log:   zap.L().With(zap.String("component", "api")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/v1/regions", func(r chi.Router) {
		r.Get("/", h.listRegions)
		r.Get("/{nutsID}", h.getRegion)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountRegions(r.Context())
	if err != nil {
		h.log.Warn("health: count regions", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "regions": n})
}

func (h *handler) listRegions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := region.Filter{CountryCode: strings.ToUpper(strings.TrimSpace(q.Get("country")))}
	if raw := q.Get("level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 || level > 3 {
			writeError(w, http.StatusBadRequest, "level must be an integer between 0 and 3")
			return
		}
		filter.Level = &level
	}

	regions, err := h.store.ListRegions(r.Context(), filter)
	if err != nil {
		h.log.Error("list regions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list regions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions, "count": len(regions)})
}

func (h *handler) getRegion(w http.ResponseWriter, r *http.Request) {
	nutsID := chi.URLParam(r, "nutsID")

	regions, err := h.store.GetRegions(r.Context(), nutsID)
	if err != nil {
		h.log.Error("get region", zap.String("nuts_id", nutsID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get region failed")
		return
	}
	if len(regions) == 0 {
		writeError(w, http.StatusNotFound, "region "+nutsID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
