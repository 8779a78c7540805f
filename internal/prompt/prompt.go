package prompt

import (
	"fmt"
	"strings"

	"github.com/davie-sparq/bizot/internal/models"
)

// Assemble builds the two strings handed to the model: the resolved system
// instruction and the composed prompt body.
//
// The system instruction template may contain {{key}} placeholders; for each
// key the first occurrence is substituted (this is not a templating language)
// and unresolved placeholders are left verbatim. The body is composed of up
// to three sections in fixed order — AVAILABLE SERVICES, CONTEXT, QUESTION —
// each optional except the question, separated by one blank line.
//
// Assemble never mutates its inputs and is byte-deterministic.
func Assemble(query, systemTemplate string, placeholders map[string]string, services []models.Service, chunks []string) (systemInstruction, body string) {
	systemInstruction = systemTemplate
	for key, value := range placeholders {
		systemInstruction = strings.Replace(systemInstruction, "{{"+key+"}}", value, 1)
	}

	body = "QUESTION: " + query

	if len(chunks) > 0 {
		body = "CONTEXT:\n" + strings.Join(chunks, "\n\n---\n\n") + "\n\n" + body
	}

	if servicesText := formatServices(services); servicesText != "" {
		body = "AVAILABLE SERVICES:\n" + servicesText + "\n\n" + body
	}

	return systemInstruction, body
}

// formatServices renders one "- name (category): description" line per
// confirmed service. Unconfirmed AI suggestions are never shown to the model.
func formatServices(services []models.Service) string {
	lines := make([]string, 0, len(services))
	for _, s := range services {
		if s.IsSuggestion {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", s.Name, s.Category, s.Description))
	}
	return strings.Join(lines, "\n")
}
