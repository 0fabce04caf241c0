package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/decidefyi/decide/internal/common/errors"
	"github.com/decidefyi/decide/internal/policy"
)

// decideRequest is the body for the REST decision endpoints. The workflow
// comes from the route, not the body.
type decideRequest struct {
	Vendor            string `json:"vendor"`
	Region            string `json:"region"`
	Plan              string `json:"plan"`
	DaysSincePurchase *int   `json:"days_since_purchase"`
}

func (req *decideRequest) validate() error {
	if req.Vendor == "" {
		return errors.ValidationError("vendor is required")
	}
	if req.DaysSincePurchase != nil && *req.DaysSincePurchase < 0 {
		return errors.ValidationError("days_since_purchase must not be negative")
	}
	return nil
}

// DecideRefund handles POST /api/decide/refund.
func (h *Handlers) DecideRefund(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, policy.WorkflowRefund)
}

// DecideCancellation handles POST /api/decide/cancellation.
func (h *Handlers) DecideCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, policy.WorkflowCancellation)
}

// DecideTrial handles POST /api/decide/trial.
func (h *Handlers) DecideTrial(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, policy.WorkflowTrial)
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, workflow policy.Workflow) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ValidationError("invalid JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, err)
		return
	}

	decision := h.evaluator.Evaluate(policy.Request{
		Workflow:          workflow,
		Vendor:            req.Vendor,
		Region:            req.Region,
		Plan:              req.Plan,
		DaysSincePurchase: req.DaysSincePurchase,
	})

	h.writeJSON(w, http.StatusOK, decision)
}

// RulesVersion handles GET /api/rules/version.
func (h *Handlers) RulesVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"rules_version": h.table.Version(),
		"updated":       h.table.Updated(),
	})
}
