package domain

// FrameInstance is one produced value of a frame type.
// It is immutable once appended to a History.
type FrameInstance struct {
	// Type is the registered frame name.
	Type string `json:"type"`
	// Index is the production position inside the run.
	Index int `json:"index"`
	// Value is the populated frame struct (a value, not a pointer).
	Value any `json:"value"`
	// Fields maps external field names to the values held by Value.
	Fields map[string]any `json:"-"`
	// Sources records how each field was populated.
	Sources map[string]FieldSource `json:"sources,omitempty"`
}

// Field returns the value of a field by external name.
func (f FrameInstance) Field(name string) (any, bool) {
	v, ok := f.Fields[name]
	return v, ok
}

// History is the ordered trace of frames produced by one run.
type History []FrameInstance

// Len returns the number of produced frames.
func (h History) Len() int { return len(h) }

// Last returns the most recently produced frame.
func (h History) Last() (FrameInstance, bool) {
	if len(h) == 0 {
		return FrameInstance{}, false
	}
	return h[len(h)-1], true
}

// Types lists the frame names in production order.
func (h History) Types() []string {
	names := make([]string, len(h))
	for i, f := range h {
		names[i] = f.Type
	}
	return names
}

// Snapshot returns a copy whose backing array is detached from the live trace.
func (h History) Snapshot() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}

// Result is what a finished (or aborted) run hands back.
type Result struct {
	RunID    string  `json:"run_id"`
	History  History `json:"history"`
	Response any     `json:"response,omitempty"`
}
