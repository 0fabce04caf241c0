// Package policy computes deterministic verdicts for subscription policy
// questions by applying a small decision procedure to the static vendor
// rules table.
package policy

import (
	"fmt"

	"github.com/decidefyi/decide/internal/rules"
)

// Evaluator answers policy questions against one rules table version.
// Evaluate is pure, synchronous, and total: for any request that passed
// boundary type validation it returns a structured decision and never
// fails. This is the function the idempotency cache memoizes.
type Evaluator struct {
	table *rules.Table
}

// NewEvaluator creates an evaluator over the given rules table.
func NewEvaluator(table *rules.Table) *Evaluator {
	return &Evaluator{table: table}
}

// RulesVersion returns the version of the table decisions are made against.
func (e *Evaluator) RulesVersion() string {
	return e.table.Version()
}

// Evaluate answers one policy question.
func (e *Evaluator) Evaluate(req Request) Decision {
	vendor, ok := e.table.Lookup(req.Vendor)
	if !ok {
		return Decision{
			Verdict:      VerdictUnknown,
			Code:         CodeUnknownVendor,
			Message:      fmt.Sprintf("no rules on file for vendor %q", req.Vendor),
			Vendor:       rules.Normalize(req.Vendor),
			RulesVersion: e.table.Version(),
		}
	}

	switch req.Workflow {
	case WorkflowRefund:
		return e.evaluateRefund(vendor, req)
	case WorkflowCancellation:
		return e.evaluateCancellation(vendor)
	case WorkflowTrial:
		return e.evaluateTrial(vendor)
	default:
		// Boundary validation guarantees a known workflow; answer the
		// impossible input deterministically anyway.
		return Decision{
			Verdict:      VerdictUnknown,
			Code:         CodeUnknownVendor,
			Message:      fmt.Sprintf("unsupported workflow %q", req.Workflow),
			Vendor:       vendor.Key,
			RulesVersion: e.table.Version(),
		}
	}
}

func (e *Evaluator) evaluateRefund(vendor *rules.Vendor, req Request) Decision {
	windowDays := vendor.RefundWindow(req.Region, req.Plan)

	decision := Decision{
		Vendor:       vendor.Key,
		RulesVersion: e.table.Version(),
		WindowDays:   &windowDays,
		PolicyURL:    vendor.PolicyURL,
	}

	if windowDays == 0 {
		decision.Verdict = VerdictDenied
		decision.Code = CodeNoRefundPolicy
		decision.Message = fmt.Sprintf("%s does not offer refunds for this plan and region", vendor.Name)
		return decision
	}

	if req.DaysSincePurchase == nil {
		decision.Verdict = VerdictConditional
		decision.Code = CodeDaysRequired
		decision.Message = fmt.Sprintf("refundable within %d days of purchase; days since purchase not supplied", windowDays)
		return decision
	}

	decision.DaysSincePurchase = req.DaysSincePurchase
	if *req.DaysSincePurchase <= windowDays {
		decision.Verdict = VerdictAllowed
		decision.Code = CodeWithinWindow
		decision.Message = fmt.Sprintf("within the %d-day refund window", windowDays)
		return decision
	}

	decision.Verdict = VerdictDenied
	decision.Code = CodeWindowExpired
	decision.Message = fmt.Sprintf("the %d-day refund window has passed", windowDays)
	return decision
}

func (e *Evaluator) evaluateCancellation(vendor *rules.Vendor) Decision {
	decision := Decision{
		Vendor:       vendor.Key,
		RulesVersion: e.table.Version(),
		PolicyURL:    vendor.PolicyURL,
		PenaltyNote:  vendor.Cancellation.Note,
	}

	if vendor.Cancellation.Penalty {
		decision.Verdict = VerdictConditional
		decision.Code = CodePenaltyApplies
		decision.Message = fmt.Sprintf("cancelling %s incurs a penalty", vendor.Name)
		return decision
	}

	decision.Verdict = VerdictAllowed
	decision.Code = CodeNoPenalty
	decision.Message = fmt.Sprintf("%s can be cancelled without penalty", vendor.Name)
	return decision
}

func (e *Evaluator) evaluateTrial(vendor *rules.Vendor) Decision {
	decision := Decision{
		Vendor:       vendor.Key,
		RulesVersion: e.table.Version(),
		PolicyURL:    vendor.PolicyURL,
	}

	if vendor.Trial.Available {
		decision.Verdict = VerdictAllowed
		decision.Code = CodeTrialAvailable
		if vendor.Trial.Days > 0 {
			days := vendor.Trial.Days
			decision.TrialDays = &days
			decision.Message = fmt.Sprintf("%s offers a %d-day free trial", vendor.Name, days)
		} else {
			decision.Message = fmt.Sprintf("%s offers a free trial", vendor.Name)
		}
		return decision
	}

	decision.Verdict = VerdictDenied
	decision.Code = CodeTrialUnavailable
	decision.Message = fmt.Sprintf("%s does not offer a free trial", vendor.Name)
	return decision
}
