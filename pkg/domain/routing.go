package domain

import "fmt"

// RoutingKind classifies a frame's declared successor.
type RoutingKind string

const (
	RoutingTerminal RoutingKind = "terminal"
	RoutingDirect   RoutingKind = "direct"
	RoutingDecision RoutingKind = "decision"
)

// Routing is the tagged variant Terminal | Direct(next) | Decision(candidates).
type Routing struct {
	Kind RoutingKind `json:"kind"`
	// Next holds the successor frame names: empty for Terminal,
	// exactly one for Direct, two or more for Decision.
	Next []string `json:"next,omitempty"`
}

// Terminal ends the run after the frame is produced.
func Terminal() Routing {
	return Routing{Kind: RoutingTerminal}
}

// Direct always continues with the named frame.
func Direct(next string) Routing {
	return Routing{Kind: RoutingDirect, Next: []string{next}}
}

// Decision lets the filler pick one of the candidates.
func Decision(candidates ...string) Routing {
	return Routing{Kind: RoutingDecision, Next: append([]string(nil), candidates...)}
}

// RoutingFor classifies a list of successor names, ignoring empty entries.
func RoutingFor(successors ...string) Routing {
	var next []string
	for _, s := range successors {
		if s != "" {
			next = append(next, s)
		}
	}
	switch len(next) {
	case 0:
		return Terminal()
	case 1:
		return Direct(next[0])
	default:
		return Decision(next...)
	}
}

// Allows reports whether name is one of the routing's successors.
func (r Routing) Allows(name string) bool {
	for _, n := range r.Next {
		if n == name {
			return true
		}
	}
	return false
}

func (r Routing) String() string {
	switch r.Kind {
	case RoutingDirect:
		return fmt.Sprintf("direct(%s)", r.Next[0])
	case RoutingDecision:
		return fmt.Sprintf("decision%v", r.Next)
	default:
		return string(RoutingTerminal)
	}
}
