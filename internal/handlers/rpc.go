package handlers

import (
	"encoding/json"

	"github.com/decidefyi/decide/internal/jsonrpc"
	"github.com/decidefyi/decide/internal/policy"
)

// rpcDecideParams is the params object shared by the policy.* methods.
type rpcDecideParams struct {
	Vendor            string `json:"vendor"`
	Region            string `json:"region"`
	Plan              string `json:"plan"`
	DaysSincePurchase *int   `json:"days_since_purchase"`
}

// RPCRouter builds the JSON-RPC facade over the same evaluator the REST
// endpoints use. Methods mirror the REST decision routes one to one.
func (h *Handlers) RPCRouter() *jsonrpc.Router {
	router := jsonrpc.NewRouter()
	router.Register("policy.refund", h.rpcDecide(policy.WorkflowRefund))
	router.Register("policy.cancellation", h.rpcDecide(policy.WorkflowCancellation))
	router.Register("policy.trial", h.rpcDecide(policy.WorkflowTrial))
	router.Register("rules.version", h.rpcRulesVersion)
	return router
}

func (h *Handlers) rpcDecide(workflow policy.Workflow) jsonrpc.HandlerFunc {
	return func(params json.RawMessage) (interface{}, *jsonrpc.Error) {
		var p rpcDecideParams
		if len(params) == 0 {
			return nil, jsonrpc.InvalidParams("params object is required")
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, jsonrpc.InvalidParams("params must be an object")
		}
		if p.Vendor == "" {
			return nil, jsonrpc.InvalidParams("vendor is required")
		}
		if p.DaysSincePurchase != nil && *p.DaysSincePurchase < 0 {
			return nil, jsonrpc.InvalidParams("days_since_purchase must not be negative")
		}

		decision := h.evaluator.Evaluate(policy.Request{
			Workflow:          workflow,
			Vendor:            p.Vendor,
			Region:            p.Region,
			Plan:              p.Plan,
			DaysSincePurchase: p.DaysSincePurchase,
		})
		return decision, nil
	}
}

func (h *Handlers) rpcRulesVersion(params json.RawMessage) (interface{}, *jsonrpc.Error) {
	return map[string]string{
		"rules_version": h.table.Version(),
		"updated":       h.table.Updated(),
	}, nil
}
