// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/hoopdex/internal/app"

	"github.com/okian/hoopdex/internal/adapters/repository"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/query"
	"github.com/okian/hoopdex/internal/domain/similarity"
	"github.com/okian/hoopdex/internal/domain/vector"
	"github.com/okian/hoopdex/internal/ingest"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Search evaluates a conjunctive predicate and returns one page.
	Search(ctx context.Context, pred *query.Predicate, page, pageSize int) (*service.SearchResult, error)

	// Recommend ranks the k nearest builds to the anchor.
	Recommend(ctx context.Context, id string, k int) (*service.RecommendResult, error)

	// Compare produces the pairwise attribute report for two builds.
	Compare(ctx context.Context, aID, bID string) (*service.CompareResult, error)

	// GetBuild fetches one build and the generation that holds it.
	GetBuild(ctx context.Context, id string) (repository.Entry, string, error)

	// Reload rebuilds the catalog and returns the ingestion report.
	Reload(ctx context.Context) (*ingest.Report, error)

	// GetStats summarizes the published generation.
	GetStats(ctx context.Context) (*service.Stats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	searchHandler  *SearchHandler
	buildsHandler  *BuildsHandler
	compareHandler *CompareHandler
	reloadHandler  *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		searchHandler:  NewSearchHandler(deps),
		buildsHandler:  NewBuildsHandler(deps),
		compareHandler: NewCompareHandler(deps),
		reloadHandler:  NewReloadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandlePostSearch, "search"))
	mux.HandleFunc("/compare", MetricsMiddleware(s.compareHandler.HandleGetCompare, "compare"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandlePostReload, "reload"))
	mux.HandleFunc("/builds/", MetricsMiddleware(s.buildsHandler.HandleBuilds, "builds"))
}

// cellResponse renders a raw cell the way it appeared in the source.
type cellResponse struct {
	Raw      string  `json:"raw"`
	Midpoint float64 `json:"midpoint"`
}

// attributeResponse is one raw attribute with its normalized value.
type attributeResponse struct {
	Name       string  `json:"name"`
	Raw        string  `json:"raw"`
	Midpoint   float64 `json:"midpoint"`
	Normalized float64 `json:"normalized,omitempty"`
}

// buildResponse mirrors the OpenAPI schema for build payloads.
type buildResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Source      string              `json:"source"`
	Position    string              `json:"position,omitempty"`
	Height      *cellResponse       `json:"height,omitempty"`
	Weight      *cellResponse       `json:"weight,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Attributes  []attributeResponse `json:"attributes"`
	Composites  map[string]float64  `json:"composites,omitempty"`
	PrimaryRole string              `json:"primary_role,omitempty"`
	Strength    int                 `json:"strength"`
}

func toBuildResponse(e repository.Entry) buildResponse {
	rec := e.Record
	resp := buildResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Source:      rec.Source,
		Position:    string(rec.Position),
		Tags:        rec.Tags,
		Composites:  e.Features.Scores,
		PrimaryRole: e.Features.PrimaryRole,
		Strength:    e.Strength,
	}
	if rec.Height != (model.Cell{}) {
		resp.Height = &cellResponse{Raw: rec.Height.String(), Midpoint: rec.Height.Midpoint()}
	}
	if rec.Weight != (model.Cell{}) {
		resp.Weight = &cellResponse{Raw: rec.Weight.String(), Midpoint: rec.Weight.Midpoint()}
	}
	resp.Attributes = make([]attributeResponse, 0, len(rec.Attrs))
	for _, a := range rec.Attrs {
		ar := attributeResponse{
			Name:     a.Name,
			Raw:      a.Cell.String(),
			Midpoint: a.Cell.Midpoint(),
		}
		if v, ok := e.Vector.Value(a.Name); ok {
			ar.Normalized = v
		}
		resp.Attributes = append(resp.Attributes, ar)
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates sentinel errors from lower layers into
// stable HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, vector.ErrInsufficientDimensions):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_dimensions", err)
	case errors.Is(err, service.ErrReloadInProgress):
		writeError(w, http.StatusConflict, "reload_in_progress", err)
	case errors.Is(err, service.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, similarity.ErrInvalidLimit),
		errors.Is(err, query.ErrUnknownPosition),
		errors.Is(err, query.ErrUnknownOp),
		errors.Is(err, query.ErrEmptyAttributeName),
		errors.Is(err, query.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
