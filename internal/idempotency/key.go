package idempotency

import "strings"

// keyDelimiter joins the derived key fields in fixed order. Fields are
// joined as given; ticket IDs and vendor keys do not contain colons in
// practice, and a collision only costs a spurious replay within the TTL.
const keyDelimiter = ":"

// KeyFields are the stable request fields an idempotency key is derived
// from. Incidental fields, like free-text question wording, deliberately
// do not participate: two requests identical in these fields replay the
// same response no matter how the question was phrased.
type KeyFields struct {
	TicketID          string
	Workflow          string
	Vendor            string
	DaysSincePurchase string // empty when not applicable to the workflow
	Region            string
	Plan              string
}

// DeriveKey returns the idempotency key for a request. An explicitly
// supplied key is used verbatim; otherwise the key is the fields joined
// in fixed order, e.g. "ZD-1:refund:adobe:5:US:individual".
func DeriveKey(explicit string, fields KeyFields) string {
	if explicit != "" {
		return explicit
	}

	return strings.Join([]string{
		fields.TicketID,
		fields.Workflow,
		fields.Vendor,
		fields.DaysSincePurchase,
		fields.Region,
		fields.Plan,
	}, keyDelimiter)
}
