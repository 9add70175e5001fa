package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
)

const systemPrompt = `You are a parts assistant for refrigerators and dishwashers. You only discuss refrigerator and dishwasher parts, repairs and installation.

Read the customer's message and the conversation context carefully and never ask for details they already gave.

Rules:
- Use only the parts, repair guides and articles listed below. Never invent part numbers, prices or compatibility.
- A refrigerator part never fits a dishwasher and a dishwasher part never fits a refrigerator.
- If a model number is missing and it matters, ask for it once.
- Quote part numbers and prices exactly as listed.
- Keep answers short: a direct answer first, then at most three concrete steps.`

// buildPrompt grounds generation in the conversation context and the
// records found for this request.
func buildPrompt(conv *convctx.Context, found results) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n")
	if conv != nil {
		sb.WriteString(conv.Prompt())
		sb.WriteString("\n")
	}

	if len(found.parts) > 0 {
		sb.WriteString("Parts:\n")
		for _, p := range found.parts {
			sb.WriteString(partLine(p))
		}
		sb.WriteString("\n")
	}
	if len(found.repairs) > 0 {
		sb.WriteString("Repair guides:\n")
		for _, r := range found.repairs {
			fmt.Fprintf(&sb, "- %s (%s, %s): %s", r.Title, r.ApplianceType, r.Difficulty, r.Description)
			if len(r.PartNames) > 0 {
				fmt.Fprintf(&sb, " Parts involved: %s.", strings.Join(r.PartNames, ", "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(found.articles) > 0 {
		sb.WriteString("Articles:\n")
		for _, a := range found.articles {
			fmt.Fprintf(&sb, "- %s: %s\n", a.Title, a.Summary)
		}
		sb.WriteString("\n")
	}
	if found.empty() {
		sb.WriteString("No catalog records matched this question. Say so and ask for a part or model number.\n")
	}
	return sb.String()
}

func partLine(p catalog.Part) string {
	stock := "in stock"
	if !p.InStock {
		stock = "out of stock"
	}
	line := fmt.Sprintf("- %s %s by %s for %s, $%.2f, %s", p.PartNumber, p.Name, p.Brand, p.ApplianceType, p.Price, stock)
	if p.InstallDifficulty != "" {
		line += fmt.Sprintf(", install %s (%s)", p.InstallDifficulty, p.InstallTime)
	}
	return line + "\n"
}
