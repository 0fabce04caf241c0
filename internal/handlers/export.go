package handlers

import (
	"encoding/csv"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ExportRules handles GET /api/admin/rules/export. It renders the full
// vendor rules table as CSV for offline review by support leads.
func (h *Handlers) ExportRules(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rules-`+h.table.Version()+`.csv"`)
	w.Header().Set("X-Rules-Version", h.table.Version())

	cw := csv.NewWriter(w)
	header := []string{
		"vendor", "name", "aliases", "refund_window_days",
		"refund_plan_overrides", "refund_region_overrides",
		"cancellation_penalty", "cancellation_note",
		"trial_available", "trial_days", "policy_url",
	}
	if err := cw.Write(header); err != nil {
		h.logger.Error("failed to write csv header", err)
		return
	}

	for _, vendor := range h.table.All() {
		row := []string{
			vendor.Key,
			vendor.Name,
			strings.Join(vendor.Aliases, " "),
			strconv.Itoa(vendor.Refund.WindowDays),
			formatOverrides(vendor.Refund.Plans),
			formatOverrides(vendor.Refund.Regions),
			strconv.FormatBool(vendor.Cancellation.Penalty),
			vendor.Cancellation.Note,
			strconv.FormatBool(vendor.Trial.Available),
			strconv.Itoa(vendor.Trial.Days),
			vendor.PolicyURL,
		}
		if err := cw.Write(row); err != nil {
			h.logger.Error("failed to write csv row", err)
			return
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("failed to flush csv export", err)
	}
}

// formatOverrides renders an override map as "key=days" pairs in a
// stable order.
func formatOverrides(overrides map[string]int) string {
	if len(overrides) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(overrides))
	for key, days := range overrides {
		pairs = append(pairs, key+"="+strconv.Itoa(days))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
