/*
Package schema describes frame types as JSON Schema and reduces those
descriptions to what a filler still has to produce.

A frame's full description is reflected once, at registration, with
github.com/invopop/jsonschema. Field hints (`hint:"..."` tags) become property
descriptions at every nesting level. Reduce strips everything already populated,
recursing into partially populated objects, so the filler only ever sees the
fields it owns.

Paths and ValuePaths expose the leaf paths of a description and of a populated
value set; for any frame T and populated set P,

	Paths(Reduce(T, P)) ∪ ValuePaths(T, P) == Paths(T)

with no path appearing on both sides.
*/
package schema
