package domain

// Struct tag keys read at frame registration.
const (
	// TagFrame carries the resolution annotation of a field, e.g. `frame:"dep:fetchWeather"`.
	TagFrame = "frame"
	// TagHint carries the hint forwarded to the filler, e.g. `hint:"a short greeting"`.
	TagHint = "hint"
	// TagJSON names a field externally (inputs, filler output, schema).
	TagJSON = "json"
)

// Values accepted inside the frame tag.
const (
	AnnotationDependency = "dep"
	AnnotationRecall     = "recall"
	AnnotationGate       = "gate"
	AnnotationInput      = "input"
)
