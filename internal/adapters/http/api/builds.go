// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/hoopdex/internal/adapters/repository"
	service "github.com/okian/hoopdex/internal/app"
)

// BuildsDependencies defines the interface for build lookups.
type BuildsDependencies interface {
	GetBuild(ctx context.Context, id string) (repository.Entry, string, error)
	Recommend(ctx context.Context, id string, k int) (*service.RecommendResult, error)
}

// BuildsHandler handles build detail and similarity requests.
type BuildsHandler struct {
	deps BuildsDependencies
}

// NewBuildsHandler creates a new builds handler.
func NewBuildsHandler(deps BuildsDependencies) *BuildsHandler {
	return &BuildsHandler{deps: deps}
}

type buildDetailResponse struct {
	Generation string        `json:"generation"`
	Build      buildResponse `json:"build"`
}

type neighborResponse struct {
	Build      buildResponse `json:"build"`
	Score      float64       `json:"score"`
	SharedDims int           `json:"shared_dimensions"`
}

type similarResponse struct {
	Generation string             `json:"generation"`
	Anchor     string             `json:"anchor"`
	Neighbors  []neighborResponse `json:"neighbors"`
}

// HandleBuilds dispatches GET /builds/{id} and GET /builds/{id}/similar.
func (h *BuildsHandler) HandleBuilds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/builds/")
	switch {
	case path == "":
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	case strings.HasSuffix(path, "/similar"):
		h.handleSimilar(w, r, strings.TrimSuffix(path, "/similar"))
	case strings.Contains(path, "/"):
		http.NotFound(w, r)
	default:
		h.handleDetail(w, r, path)
	}
}

func (h *BuildsHandler) handleDetail(w http.ResponseWriter, r *http.Request, id string) {
	entry, genID, err := h.deps.GetBuild(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildDetailResponse{
		Generation: genID,
		Build:      toBuildResponse(entry),
	})
}

func (h *BuildsHandler) handleSimilar(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		k = parsed
	}

	res, err := h.deps.Recommend(r.Context(), id, k)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := similarResponse{
		Generation: res.GenerationID,
		Anchor:     res.AnchorID,
		Neighbors:  make([]neighborResponse, 0, len(res.Neighbors)),
	}
	for _, n := range res.Neighbors {
		resp.Neighbors = append(resp.Neighbors, neighborResponse{
			Build:      toBuildResponse(n.Entry),
			Score:      n.Score,
			SharedDims: n.SharedDims,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
