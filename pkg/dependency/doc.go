/*
Package dependency declares dependency functions and resolves them.

A dependency is a named function whose parameters are bound to other
dependencies (chaining), to populated frame fields, or to constants. For one
frame the reachable dependencies form a DAG, built fresh per resolution with
BuildForFrame or BuildFrom. The Resolver executes the DAG level by level,
running each level concurrently and consulting a ports.DependencyCache so that
each unique (function, arguments) pair is invoked at most once per cache scope.
*/
package dependency
