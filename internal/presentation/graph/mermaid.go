// Package graph renders a flow as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedFrames []string
	CurrentFrame  string
}

// OverlayOf builds an overlay from a run history; the last frame is current.
func OverlayOf(h domain.History) *GraphOverlay {
	o := &GraphOverlay{VisitedFrames: h.Types()}
	if last, ok := h.Last(); ok {
		o.CurrentFrame = last.Type
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the flow topology.
// It applies semantic styling:
// - Start frame: ((Circle))
// - Decision frame: {Rhombus}
// - Terminal frame: ([Stadium])
// - Dependency function: [[Subroutine]]
// Dependency edges are dotted and point from a function to its consumer.
func GenerateMermaid(flow *dsl.Flow, overlay *GraphOverlay) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	deps := make(map[string]bool)
	var depEdges [][2]string
	for _, name := range flow.Frames.Names() {
		ft, err := flow.Frames.Lookup(name)
		if err != nil {
			return "", err
		}
		id := frameID(name)

		opener, closer := "[", "]"
		switch {
		case name == flow.Start:
			opener, closer = "((", "))"
		case ft.Routing.Kind == domain.RoutingDecision:
			opener, closer = "{", "}"
		case ft.Routing.Kind == domain.RoutingTerminal:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, escape(name), closer)

		for _, next := range ft.Routing.Next {
			arrow := "-->"
			if ft.Routing.Kind == domain.RoutingDecision {
				arrow = "-- \"choose\" -->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", id, arrow, frameID(next))
		}

		if len(ft.Dependencies()) == 0 {
			continue
		}
		g, err := dependency.BuildForFrame(ft, flow.Deps)
		if err != nil {
			return "", err
		}
		for _, fn := range g.Names() {
			deps[fn] = true
		}
		for _, e := range g.Edges() {
			depEdges = append(depEdges, [2]string{dependencyID(e[1]), dependencyID(e[0])})
		}
		for _, fn := range ft.Dependencies() {
			depEdges = append(depEdges, [2]string{dependencyID(fn), id})
		}
	}

	if len(deps) > 0 {
		sb.WriteString("\n    %% Dependencies\n")
		for _, fn := range flow.Deps.Names() {
			if deps[fn] {
				fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", dependencyID(fn), escape(fn))
			}
		}
		seen := make(map[[2]string]bool)
		for _, e := range depEdges {
			if !seen[e] {
				seen[e] = true
				fmt.Fprintf(&sb, "    %s -.-> %s\n", e[0], e[1])
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, name := range overlay.VisitedFrames {
			if name == "" || visited[name] || name == overlay.CurrentFrame {
				continue
			}
			visited[name] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", frameID(name))
		}
		if overlay.CurrentFrame != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", frameID(overlay.CurrentFrame))
		}
	}

	return sb.String(), nil
}

func frameID(name string) string { return "f_" + sanitizeMermaidID(name) }

func dependencyID(name string) string { return "d_" + sanitizeMermaidID(name) }

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}

func escape(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}
