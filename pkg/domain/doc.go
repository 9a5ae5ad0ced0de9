/*
Package domain contains the core domain models of the weft engine.

It defines the vocabulary shared by every other package: how a frame field is
classified, how a frame routes to its successor, what a produced frame looks like
and the error taxonomy of a run. The package is kept pure and free of I/O, so the
resolver, the scheduler and the adapters can all depend on it.

# Key Entities

  - Field: a declared frame field together with its resolution kind and hint.
  - Routing: the Terminal / Direct / Decision classification of a frame's successor.
  - FrameInstance: one produced, immutable frame value.
  - History: the append-only trace of a run.
  - LifecycleHooks: optional callbacks fired on each scheduler transition.
*/
package domain
