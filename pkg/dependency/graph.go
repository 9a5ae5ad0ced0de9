package dependency

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
)

// Graph is the dependency DAG reachable from a set of seed functions.
// Nodes live in an arena; edges are index pairs pointing from a function to
// the function it requires.
type Graph struct {
	nodes []*Definition
	index map[string]int
	// requires[i] lists the arena indices node i chains to.
	requires [][]int
	seeds    []int
}

// BuildForFrame builds the graph of every dependency declared by a frame.
// Fields sharing a function become one node.
func BuildForFrame(ft *frame.Type, cat *Catalog) (*Graph, error) {
	g, err := build(ft.Dependencies(), cat)
	if err != nil {
		var defErr *domain.DefinitionError
		if errors.As(err, &defErr) && defErr.Frame == "" {
			defErr.Frame = ft.Name
		}
		return nil, err
	}
	return g, nil
}

// BuildFrom builds the graph reachable from a single function.
func BuildFrom(name string, cat *Catalog) (*Graph, error) {
	return build([]string{name}, cat)
}

func build(seeds []string, cat *Catalog) (*Graph, error) {
	g := &Graph{index: make(map[string]int)}

	// Collect every reachable definition with a worklist, assigning arena
	// slots in discovery order.
	var work []int
	add := func(name, requiredBy string) (int, error) {
		if i, ok := g.index[name]; ok {
			return i, nil
		}
		def, ok := cat.Lookup(name)
		if !ok {
			if requiredBy == "" {
				return 0, &domain.DefinitionError{Reason: fmt.Sprintf("unknown dependency %q", name)}
			}
			return 0, &domain.DefinitionError{Reason: fmt.Sprintf("unknown dependency %q (required by %s)", name, requiredBy)}
		}
		i := len(g.nodes)
		g.nodes = append(g.nodes, def)
		g.requires = append(g.requires, nil)
		g.index[name] = i
		work = append(work, i)
		return i, nil
	}

	for _, name := range seeds {
		i, err := add(name, "")
		if err != nil {
			return nil, err
		}
		g.seeds = append(g.seeds, i)
	}
	for len(work) > 0 {
		i := work[0]
		work = work[1:]
		for _, dep := range g.nodes[i].Requires() {
			j, err := add(dep, g.nodes[i].Name)
			if err != nil {
				return nil, err
			}
			g.requires[i] = append(g.requires[i], j)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &domain.DependencyCycleError{Functions: cycle}
	}
	return g, nil
}

const (
	white uint8 = iota
	grey
	black
)

// findCycle runs an iterative depth-first walk with a colour array and
// returns the function names on the first cycle met, or nil.
func (g *Graph) findCycle() []string {
	colour := make([]uint8, len(g.nodes))
	type step struct{ node, next int }

	for root := range g.nodes {
		if colour[root] != white {
			continue
		}
		stack := []step{{node: root}}
		colour[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(g.requires[top.node]) {
				colour[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := g.requires[top.node][top.next]
			top.next++
			switch colour[child] {
			case white:
				colour[child] = grey
				stack = append(stack, step{node: child})
			case grey:
				var names []string
				on := false
				for _, s := range stack {
					if s.node == child {
						on = true
					}
					if on {
						names = append(names, g.nodes[s.node].Name)
					}
				}
				return append(names, g.nodes[child].Name)
			}
		}
	}
	return nil
}

// Len returns the number of distinct functions in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Names lists the functions in arena order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.nodes))
	for i, d := range g.nodes {
		out[i] = d.Name
	}
	return out
}

// Edges lists (function, required function) pairs.
func (g *Graph) Edges() [][2]string {
	var out [][2]string
	for i, reqs := range g.requires {
		for _, j := range reqs {
			out = append(out, [2]string{g.nodes[i].Name, g.nodes[j].Name})
		}
	}
	return out
}

// Levels groups arena indices so that every function appears after all the
// functions it requires. Functions in one level are independent.
func (g *Graph) Levels() [][]int {
	pending := make([]int, len(g.nodes))
	dependents := make([][]int, len(g.nodes))
	for i, reqs := range g.requires {
		seen := make(map[int]bool, len(reqs))
		for _, j := range reqs {
			if seen[j] {
				continue
			}
			seen[j] = true
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i, n := range pending {
		if n == 0 {
			ready = append(ready, i)
		}
	}
	var levels [][]int
	for len(ready) > 0 {
		sort.Ints(ready)
		levels = append(levels, ready)
		var next []int
		for _, i := range ready {
			for _, d := range dependents[i] {
				pending[d]--
				if pending[d] == 0 {
					next = append(next, d)
				}
			}
		}
		ready = next
	}
	return levels
}

// LevelNames is Levels expressed with function names.
func (g *Graph) LevelNames() [][]string {
	levels := g.Levels()
	out := make([][]string, len(levels))
	for i, level := range levels {
		for _, n := range level {
			out[i] = append(out[i], g.nodes[n].Name)
		}
	}
	return out
}
