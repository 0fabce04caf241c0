package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/decidefyi/decide/internal/common/errors"
	"github.com/decidefyi/decide/internal/common/logging"
	"github.com/decidefyi/decide/internal/idempotency"
	"github.com/decidefyi/decide/internal/policy"
)

// ReplayHeader is set to "true" on responses served from the idempotency
// cache instead of a fresh evaluation.
const ReplayHeader = "X-Idempotent-Replay"

// IdempotencyKeyHeader carries a client-chosen idempotency key. When
// absent the key is derived from the stable request fields.
const IdempotencyKeyHeader = "Idempotency-Key"

// workflowRequest is the body for POST /api/workflow, the ticket-driven
// entry point. Question is free text from the support ticket and does not
// influence the decision or the idempotency key.
type workflowRequest struct {
	TicketID          string `json:"ticket_id"`
	Workflow          string `json:"workflow"`
	Vendor            string `json:"vendor"`
	Region            string `json:"region"`
	Plan              string `json:"plan"`
	DaysSincePurchase *int   `json:"days_since_purchase"`
	Question          string `json:"question"`
}

func (req *workflowRequest) validate() (policy.Workflow, error) {
	if req.TicketID == "" {
		return "", errors.ValidationError("ticket_id is required")
	}
	workflow, ok := policy.ParseWorkflow(req.Workflow)
	if !ok {
		return "", errors.ValidationError("workflow must be one of refund, cancellation, trial")
	}
	if req.Vendor == "" {
		return "", errors.ValidationError("vendor is required")
	}
	if req.DaysSincePurchase != nil && *req.DaysSincePurchase < 0 {
		return "", errors.ValidationError("days_since_purchase must not be negative")
	}
	return workflow, nil
}

// workflowResponse wraps a decision with its idempotency metadata. The
// decision payload is what gets cached; the replayed flag and header are
// computed per response so a replay is always distinguishable from a
// fresh evaluation.
type workflowResponse struct {
	Replayed       bool            `json:"replayed"`
	IdempotencyKey string          `json:"idempotency_key"`
	TicketID       string          `json:"ticket_id"`
	Decision       json.RawMessage `json:"decision"`
}

// Workflow handles POST /api/workflow. The endpoint is idempotent: the
// first evaluation for a key is cached, and subsequent requests with the
// same key replay the cached decision verbatim.
func (h *Handlers) Workflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ValidationError("invalid JSON body"))
		return
	}
	workflow, err := req.validate()
	if err != nil {
		h.writeError(w, err)
		return
	}

	days := ""
	if workflow == policy.WorkflowRefund && req.DaysSincePurchase != nil {
		days = strconv.Itoa(*req.DaysSincePurchase)
	}
	key := idempotency.DeriveKey(r.Header.Get(IdempotencyKeyHeader), idempotency.KeyFields{
		TicketID:          req.TicketID,
		Workflow:          string(workflow),
		Vendor:            req.Vendor,
		DaysSincePurchase: days,
		Region:            req.Region,
		Plan:              req.Plan,
	})

	if cached, ok := h.store.Get(key); ok {
		h.logger.Debug("replaying cached decision",
			logging.String("idempotency_key", key),
		)
		w.Header().Set(ReplayHeader, "true")
		h.writeJSON(w, http.StatusOK, workflowResponse{
			Replayed:       true,
			IdempotencyKey: key,
			TicketID:       req.TicketID,
			Decision:       cached,
		})
		return
	}

	decision := h.evaluator.Evaluate(policy.Request{
		Workflow:          workflow,
		Vendor:            req.Vendor,
		Region:            req.Region,
		Plan:              req.Plan,
		DaysSincePurchase: req.DaysSincePurchase,
	})

	payload, err := json.Marshal(decision)
	if err != nil {
		h.writeError(w, errors.InternalError("failed to encode decision", err))
		return
	}
	h.store.Put(key, payload)

	h.writeJSON(w, http.StatusOK, workflowResponse{
		Replayed:       false,
		IdempotencyKey: key,
		TicketID:       req.TicketID,
		Decision:       payload,
	})
}
