package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))

	for i, r := range results {
		md := r.Document.Metadata
		fmt.Fprintf(&sb, "--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity)
		fmt.Fprintf(&sb, "%s: %s\n", md.Kind, md.RecordID)
		if md.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", md.Title)
		}
		if md.ApplianceType != "" {
			fmt.Fprintf(&sb, "Appliance: %s\n", md.ApplianceType)
		}
		if md.Brand != "" {
			fmt.Fprintf(&sb, "Brand: %s\n", md.Brand)
		}

		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
