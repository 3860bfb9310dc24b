package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"culture_metrics/internal/domain"
)

// MetricsAPI is the slice of the metrics cache manager the handlers use.
type MetricsAPI interface {
	GetCompanyMetrics(ctx context.Context, companyID string) (domain.MetricsResult, error)
	RefreshMetrics(ctx context.Context, companyID string) (domain.MetricsResult, error)
	InvalidateMetrics(ctx context.Context, companyID string) error
	ListCompanies(ctx context.Context, sector *string) ([]domain.Company, error)
	CultureTrends(ctx context.Context, companyID string) ([]domain.QuarterTrend, error)
	Insights(ctx context.Context, companyID string) (domain.Insights, error)
	RatingTrends(ctx context.Context, companyID string, kind domain.RatingKind) ([]domain.RatingTrend, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

type BenchmarkAPI interface {
	IndustryAverage(ctx context.Context, dim domain.Dimension, sector *string) (domain.IndustryAverage, error)
	IndustryAverages(ctx context.Context, sector *string) ([]domain.IndustryAverage, error)
	Percentile(ctx context.Context, companyID string, dim domain.Dimension) (float64, error)
	Compare(ctx context.Context, a, b string) (domain.Comparison, error)
	Benchmark(ctx context.Context, companyID string) (domain.BenchmarkView, error)
}

const cacheStateHeader = "X-Cache-State"

type Handlers struct {
	Metrics MetricsAPI
	Bench   BenchmarkAPI
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/companies", h.listCompanies)
		r.Route("/companies/{company}", func(r chi.Router) {
			r.Get("/metrics", h.getMetrics)
			r.Post("/metrics/refresh", h.refreshMetrics)
			r.Delete("/metrics", h.invalidateMetrics)
			r.Get("/percentile", h.percentile)
			r.Get("/benchmark", h.benchmark)
			r.Get("/trends", h.trends)
			r.Get("/rating-trends", h.ratingTrends)
			r.Get("/insights", h.insights)
		})
		r.Get("/industry/average", h.industryAverage)
		r.Get("/compare", h.compare)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownDimension):
		writeProblem(w, http.StatusBadRequest, "Unknown Dimension", err.Error())
	case errors.Is(err, domain.ErrUnknownRating):
		writeProblem(w, http.StatusBadRequest, "Unknown Rating Type", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrNoData):
		writeProblem(w, http.StatusNotFound, "Insufficient Data", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Data Unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "request did not complete in time")
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with a weak ETag and honours If-None-Match.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func optional(r *http.Request, key string) *string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return &v
	}
	return nil
}

func companyParam(r *http.Request) string { return strings.TrimSpace(chi.URLParam(r, "company")) }

func (h *Handlers) listCompanies(w http.ResponseWriter, r *http.Request) {
	out, err := h.Metrics.ListCompanies(r.Context(), optional(r, "sector"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getMetrics(w http.ResponseWriter, r *http.Request) {
	res, err := h.Metrics.GetCompanyMetrics(r.Context(), companyParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set(cacheStateHeader, res.State.String())
	writeCached(w, r, res)
}

func (h *Handlers) refreshMetrics(w http.ResponseWriter, r *http.Request) {
	res, err := h.Metrics.RefreshMetrics(r.Context(), companyParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set(cacheStateHeader, res.State.String())
	_, body := calcETagAndBody(res)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) invalidateMetrics(w http.ResponseWriter, r *http.Request) {
	if err := h.Metrics.InvalidateMetrics(r.Context(), companyParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) percentile(w http.ResponseWriter, r *http.Request) {
	dim, err := domain.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		writeError(w, err)
		return
	}
	company := companyParam(r)
	p, err := h.Bench.Percentile(r.Context(), company, dim)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, map[string]any{"company_id": company, "dimension": dim, "percentile": p})
}

func (h *Handlers) benchmark(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bench.Benchmark(r.Context(), companyParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) trends(w http.ResponseWriter, r *http.Request) {
	out, err := h.Metrics.CultureTrends(r.Context(), companyParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, map[string]any{"company_id": companyParam(r), "quarters": out})
}

func (h *Handlers) ratingTrends(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseRatingKind(r.URL.Query().Get("dimension"))
	if err != nil {
		writeError(w, err)
		return
	}
	company := companyParam(r)
	out, err := h.Metrics.RatingTrends(r.Context(), company, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, map[string]any{"company_id": company, "rating": kind, "quarters": out})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Metrics.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) insights(w http.ResponseWriter, r *http.Request) {
	out, err := h.Metrics.Insights(r.Context(), companyParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) industryAverage(w http.ResponseWriter, r *http.Request) {
	sector := optional(r, "sector")
	raw := optional(r, "dimension")
	if raw == nil {
		out, err := h.Bench.IndustryAverages(r.Context(), sector)
		if err != nil {
			writeError(w, err)
			return
		}
		writeCached(w, r, out)
		return
	}
	dim, err := domain.ParseDimension(*raw)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Bench.IndustryAverage(r.Context(), dim, sector)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) compare(w http.ResponseWriter, r *http.Request) {
	a, b := optional(r, "a"), optional(r, "b")
	if a == nil || b == nil {
		writeProblem(w, http.StatusBadRequest, "Missing Company", "both a and b are required")
		return
	}
	out, err := h.Bench.Compare(r.Context(), *a, *b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}
