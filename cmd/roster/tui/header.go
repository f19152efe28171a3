package tui

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// renderAppHeader renders the shared application header: title, record
// counts, and the active filter summary.
func renderAppHeader(shown, total, edited int, filterSummary string) string {
	icon := "📋"
	appName := titleStyle.Bold(true).Render("ROSTER")

	counts := fmt.Sprintf("%d of %d tools", shown, total)
	if edited > 0 {
		counts += fmt.Sprintf("  •  %d edited", edited)
	}
	stats := mutedTextStyle.Render("  " + counts)

	header := fmt.Sprintf(" %s %s%s", icon, appName, stats)

	if filterSummary != "" {
		header += filterLabelStyle.Render("  [" + filterSummary + "]")
	}

	return header
}

// filterSummary builds the human-readable description of the active
// filters for the header.
func filterSummary(query string, typ types.PackageType, editedOnly bool) string {
	var parts []string
	if query != "" {
		parts = append(parts, query)
	}
	if typ != "" {
		parts = append(parts, "type:"+string(typ))
	}
	if editedOnly {
		parts = append(parts, "edited")
	}
	return strings.Join(parts, " ")
}
