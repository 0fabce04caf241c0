// Package handlers implements the HTTP surface of the decision service:
// REST decision endpoints, the idempotent workflow endpoint, the JSON-RPC
// facade, and the admin routes for rules export and policy-page watching.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/decidefyi/decide/internal/common/errors"
	"github.com/decidefyi/decide/internal/common/logging"
	"github.com/decidefyi/decide/internal/config"
	"github.com/decidefyi/decide/internal/idempotency"
	"github.com/decidefyi/decide/internal/policy"
	"github.com/decidefyi/decide/internal/rules"
	"github.com/decidefyi/decide/internal/watch"
)

// Handlers holds the service dependencies shared by all HTTP endpoints.
// Everything is injected so tests can swap in fakes.
type Handlers struct {
	evaluator *policy.Evaluator
	table     *rules.Table
	store     idempotency.Store
	detector  *watch.Detector
	cfg       *config.Config
	logger    logging.Logger
}

// New creates the handler set. The detector may be nil when policy-page
// watching is disabled.
func New(evaluator *policy.Evaluator, table *rules.Table, store idempotency.Store, detector *watch.Detector, cfg *config.Config) *Handlers {
	return &Handlers{
		evaluator: evaluator,
		table:     table,
		store:     store,
		detector:  detector,
		cfg:       cfg,
		logger:    logging.GetGlobalLogger(),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
		switch appErr.Type {
		case errors.ErrTypeValidation:
			status = http.StatusBadRequest
		case errors.ErrTypeNotFound:
			status = http.StatusNotFound
		case errors.ErrTypeAuth:
			status = http.StatusUnauthorized
		case errors.ErrTypeRateLimit:
			status = http.StatusTooManyRequests
		}
	}

	if status >= 500 {
		h.logger.Error("request failed", err)
	}

	h.writeJSON(w, status, map[string]string{"error": message})
}

// HealthCheck reports service liveness along with the loaded rules version.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":        "healthy",
		"rules_version": h.table.Version(),
	})
}
