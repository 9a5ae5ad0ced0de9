// Package memory provides an in-process dependency cache, the default cache
// scope of a run.
package memory
