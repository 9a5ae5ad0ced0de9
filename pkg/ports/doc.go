/*
Package ports defines the driven ports (interfaces) of the weft engine.

These interfaces decouple the resolution core from its external collaborators,
so a run can be driven by any LLM backend, any source of human input and any
cache backend.

# Key Interfaces

  - Filler: produces the remaining field values of a frame and picks among
    candidate successor frames.
  - Gate: supplies values for gate fields by waiting on external input.
  - DependencyCache: stores dependency results by (function, arguments) identity.
  - Engine: the run surface driving adapters (the HTTP server) depend on.
*/
package ports
