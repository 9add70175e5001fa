package triage

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

// Fallback builds an answer without text generation from the conversation's
// symptoms and whatever records were found. It returns "" when there is
// nothing to say.
func Fallback(symptoms []string, appliance catalog.ApplianceType, parts []catalog.Part, repairs []catalog.Repair) string {
	var sb strings.Builder
	for _, s := range symptoms {
		if d, ok := DiagnosticFor(s, appliance); ok {
			sb.WriteString(d.Response)
			break
		}
	}

	if len(repairs) > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		r := repairs[0]
		fmt.Fprintf(&sb, "See the repair guide %q: %s", r.Title, r.Description)
	}

	if len(parts) > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		names := make([]string, 0, len(parts))
		for _, p := range parts {
			names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.PartNumber))
		}
		fmt.Fprintf(&sb, "Parts that commonly fix this: %s.", strings.Join(names, ", "))
	}
	return sb.String()
}
