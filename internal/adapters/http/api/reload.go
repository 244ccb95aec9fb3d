// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/hoopdex/internal/ingest"
)

// ReloadDependencies defines the interface for reload operations.
type ReloadDependencies interface {
	Reload(ctx context.Context) (*ingest.Report, error)
}

// ReloadHandler handles catalog reload requests.
type ReloadHandler struct {
	deps ReloadDependencies
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps ReloadDependencies) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

// reloadResponse embeds the ingestion report so its fields (sources, row
// counts, skipped rows with reasons) land at the top level of the body.
type reloadResponse struct {
	Status string `json:"status"`
	*ingest.Report
}

// HandlePostReload handles POST /reload requests. The rebuild runs
// synchronously; a concurrent reload gets 409 and the old generation keeps
// serving until the swap. The 200 body is the ingestion report.
func (h *ReloadHandler) HandlePostReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	report, err := h.deps.Reload(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Report: report})
}
