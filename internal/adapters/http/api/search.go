// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/hoopdex/internal/app"
	"github.com/okian/hoopdex/internal/domain/query"
)

// SearchDependencies defines the interface for search operations.
type SearchDependencies interface {
	Search(ctx context.Context, pred *query.Predicate, page, pageSize int) (*service.SearchResult, error)
}

// SearchHandler handles filter search requests.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// searchRequest mirrors the OpenAPI schema for POST /search.
type searchRequest struct {
	Position   string                  `json:"position,omitempty"`
	Height     *query.Range            `json:"height,omitempty"`
	Weight     *query.Range            `json:"weight,omitempty"`
	Tags       []string                `json:"tags,omitempty"`
	Attributes []query.AttributeFilter `json:"attributes,omitempty"`
	Page       int                     `json:"page,omitempty"`
	PageSize   int                     `json:"page_size,omitempty"`
}

type searchResponse struct {
	Generation string          `json:"generation"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Results    []buildResponse `json:"results"`
}

// HandlePostSearch handles POST /search requests.
func (h *SearchHandler) HandlePostSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	pred := &query.Predicate{
		Position: req.Position,
		Height:   req.Height,
		Weight:   req.Weight,
		Tags:     req.Tags,
		Attrs:    req.Attributes,
	}

	res, err := h.deps.Search(r.Context(), pred, req.Page, req.PageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := searchResponse{
		Generation: res.GenerationID,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		Results:    make([]buildResponse, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		resp.Results = append(resp.Results, toBuildResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
