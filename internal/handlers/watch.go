package handlers

import (
	"net/http"

	"github.com/decidefyi/decide/internal/common/errors"
)

// WatchSnapshots handles GET /api/admin/watch. It returns the latest
// policy-page snapshot per vendor.
func (h *Handlers) WatchSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.detector == nil {
		h.writeError(w, errors.NotFoundError("policy page watcher"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules_version": h.table.Version(),
		"snapshots":     h.detector.Snapshots(),
	})
}

// WatchCheck handles POST /api/admin/watch/check. It runs a full
// policy-page sweep immediately instead of waiting for the schedule.
func (h *Handlers) WatchCheck(w http.ResponseWriter, r *http.Request) {
	if h.detector == nil {
		h.writeError(w, errors.NotFoundError("policy page watcher"))
		return
	}

	h.detector.CheckAll(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules_version": h.table.Version(),
		"snapshots":     h.detector.Snapshots(),
	})
}
