package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// GraphOverlay contains flow state data to visualize on the graph.
type GraphOverlay struct {
	// AnsweredSteps are styled as visited.
	AnsweredSteps []string
	// CurrentStep is highlighted.
	CurrentStep string
	// EffectivePath, when set, greys out every step not on it.
	EffectivePath []string
}

const (
	startID = "__start"
	endID   = "__end"
)

// GenerateMermaid produces a Mermaid flowchart of the steps in declaration order.
// It applies semantic styling:
// - Choice steps: [/Parallelogram/]
// - Scales and numbers: [[Subroutine]]
// - Text input: [Rectangle]
// Conditional steps get a labelled entry edge and a dotted bypass edge to the
// step that follows them.
func GenerateMermaid(steps []domain.Step, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", startID))

	for _, step := range steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.Kind.ChoiceLike():
			opener, closer = "[/", "/]"
		case step.Kind == domain.KindRatingScale || step.Kind == domain.KindNumberInput:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s <br/> <small>%s</small>\"%s\n", safeID, opener, step.ID, step.Kind, closer))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", endID))

	// Edges. A conditional step may be bypassed, so every preceding step
	// back to the last unconditional one can reach whatever follows it.
	sources := []string{startID}
	for _, step := range steps {
		safeID := sanitizeMermaidID(step.ID)
		arrow := "-->"
		if step.When != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(step.When, "\"", "'"))
		}
		for i, from := range sources {
			if i < len(sources)-1 {
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", from, safeID))
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, safeID))
		}
		if step.When != "" {
			sources = append(sources, safeID)
		} else {
			sources = []string{safeID}
		}
	}
	for i, from := range sources {
		arrow := "-->"
		if i < len(sources)-1 {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, endID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef excluded fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 4,color:#757575;\n")

		if overlay.EffectivePath != nil {
			onPath := make(map[string]bool, len(overlay.EffectivePath))
			for _, id := range overlay.EffectivePath {
				onPath[id] = true
			}
			for _, step := range steps {
				if !onPath[step.ID] {
					sb.WriteString(fmt.Sprintf("    class %s excluded;\n", sanitizeMermaidID(step.ID)))
				}
			}
		}

		seen := make(map[string]bool)
		for _, id := range overlay.AnsweredSteps {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] || id == overlay.CurrentStep {
				continue
			}
			seen[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
		}

		if overlay.CurrentStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
