// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/hoopdex/internal/app"
	"github.com/okian/hoopdex/internal/domain/similarity"
)

// CompareDependencies defines the interface for compare operations.
type CompareDependencies interface {
	Compare(ctx context.Context, aID, bID string) (*service.CompareResult, error)
}

// CompareHandler handles pairwise build comparisons.
type CompareHandler struct {
	deps CompareDependencies
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(deps CompareDependencies) *CompareHandler {
	return &CompareHandler{deps: deps}
}

type compareResponse struct {
	Generation   string             `json:"generation"`
	A            buildResponse      `json:"a"`
	B            buildResponse      `json:"b"`
	Score        float64            `json:"score"`
	SharedDims   int                `json:"shared_dimensions"`
	Deltas       []similarity.Delta `json:"deltas"`
	ExclusiveToA []string           `json:"exclusive_to_a,omitempty"`
	ExclusiveToB []string           `json:"exclusive_to_b,omitempty"`
}

// HandleGetCompare handles GET /compare?a={id}&b={id} requests.
func (h *CompareHandler) HandleGetCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	aID := r.URL.Query().Get("a")
	bID := r.URL.Query().Get("b")
	if aID == "" || bID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	res, err := h.deps.Compare(r.Context(), aID, bID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cmp := res.Comparison
	writeJSON(w, http.StatusOK, compareResponse{
		Generation:   res.GenerationID,
		A:            toBuildResponse(cmp.A),
		B:            toBuildResponse(cmp.B),
		Score:        cmp.Score,
		SharedDims:   cmp.SharedDims,
		Deltas:       cmp.Deltas,
		ExclusiveToA: cmp.ExclusiveToA,
		ExclusiveToB: cmp.ExclusiveToB,
	})
}
