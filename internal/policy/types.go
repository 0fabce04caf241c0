package policy

// Workflow identifies which policy question is being asked.
type Workflow string

const (
	// WorkflowRefund asks whether a purchase is still refundable.
	WorkflowRefund Workflow = "refund"
	// WorkflowCancellation asks whether cancelling incurs a penalty.
	WorkflowCancellation Workflow = "cancellation"
	// WorkflowTrial asks whether a free trial is available.
	WorkflowTrial Workflow = "trial"
)

// ParseWorkflow maps a request string to a known workflow.
func ParseWorkflow(s string) (Workflow, bool) {
	switch Workflow(s) {
	case WorkflowRefund, WorkflowCancellation, WorkflowTrial:
		return Workflow(s), true
	default:
		return "", false
	}
}

// Verdict is the top-level answer to a policy question.
type Verdict string

const (
	// VerdictAllowed means the action is permitted under the vendor's rules.
	VerdictAllowed Verdict = "ALLOWED"
	// VerdictDenied means the action is not permitted.
	VerdictDenied Verdict = "DENIED"
	// VerdictConditional means the action is permitted with strings attached.
	VerdictConditional Verdict = "CONDITIONAL"
	// VerdictUnknown means the rules table cannot answer the question.
	VerdictUnknown Verdict = "UNKNOWN"
)

// Code explains the verdict in machine-readable form.
type Code string

const (
	CodeWithinWindow     Code = "WITHIN_WINDOW"
	CodeWindowExpired    Code = "WINDOW_EXPIRED"
	CodeNoRefundPolicy   Code = "NO_REFUND_POLICY"
	CodePenaltyApplies   Code = "PENALTY_APPLIES"
	CodeNoPenalty        Code = "NO_PENALTY"
	CodeTrialAvailable   Code = "TRIAL_AVAILABLE"
	CodeTrialUnavailable Code = "TRIAL_UNAVAILABLE"
	CodeUnknownVendor    Code = "UNKNOWN_VENDOR"
	CodeDaysRequired     Code = "DAYS_SINCE_PURCHASE_REQUIRED"
)

// Request is one policy question. DaysSincePurchase is only meaningful
// for the refund workflow and stays nil otherwise.
type Request struct {
	Workflow          Workflow `json:"workflow"`
	Vendor            string   `json:"vendor"`
	Region            string   `json:"region,omitempty"`
	Plan              string   `json:"plan,omitempty"`
	DaysSincePurchase *int     `json:"days_since_purchase,omitempty"`
}

// Decision is the structured answer to a policy question.
type Decision struct {
	Verdict           Verdict `json:"verdict"`
	Code              Code    `json:"code"`
	Message           string  `json:"message"`
	Vendor            string  `json:"vendor,omitempty"`
	RulesVersion      string  `json:"rules_version"`
	WindowDays        *int    `json:"window_days,omitempty"`
	DaysSincePurchase *int    `json:"days_since_purchase,omitempty"`
	PenaltyNote       string  `json:"penalty_note,omitempty"`
	TrialDays         *int    `json:"trial_days,omitempty"`
	PolicyURL         string  `json:"policy_url,omitempty"`
}
