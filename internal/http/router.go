package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"election-service/internal/domain/election"
	"election-service/internal/metrics"
)

// Pinger is anything /ready should check before reporting the service ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// NominationsPerMin and NominationBurst configure the per-IP limiter on
	// nomination creation. Zero NominationsPerMin disables it.
	NominationsPerMin int
	NominationBurst   int
}

type Handler struct {
	svc    *election.Service
	store  Pinger
	logger *slog.Logger
}

func NewRouter(svc *election.Service, store Pinger, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:    svc,
		store:  store,
		logger: logger,
	}

	nominationLimit := func(next http.Handler) http.Handler { return next }
	if opts.NominationsPerMin > 0 {
		burst := opts.NominationBurst
		if burst <= 0 {
			burst = 1
		}
		nominationLimit = RateLimitNominations(rate.Every(time.Minute/time.Duration(opts.NominationsPerMin)), burst)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger(logger, opts.Metrics))
	r.Use(CORSMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ElectionService API running"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Handle("/metrics", opts.Metrics.Handler())

	mount := func(r chi.Router) {
		r.Route("/positions", func(r chi.Router) {
			r.Post("/", h.handleCreatePosition)
			r.Get("/", h.handleListPositions)
			r.Get("/{positionID}", h.handleGetPosition)
			r.Post("/{positionID}/close", h.handleClosePosition)

			r.With(nominationLimit).Post("/{positionID}/nominations", h.handleNominate)
			r.Get("/{positionID}/nominations", h.handleListNominations)
			r.Get("/{positionID}/nominations/{username}/status", h.handleNominationStatus)
			r.Post("/{positionID}/nominations/{username}/accept", h.handleAcceptNomination)
		})
	}
	mount(r)
	r.Route("/api/v1", mount)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

// pathParam returns the decoded value of a path segment. chi matches on
// RawPath when it is set, so only then is the param still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

// @Summary     Readiness probe
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string
// @Router      /ready [get]
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "store not configured",
			"code":  "store_unavailable",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "store not ready",
			"code":  "store_unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
