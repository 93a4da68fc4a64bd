package depgraph

import (
	"fmt"
	"sort"
)

// Graph is the dependency graph over a container type's member names.
// It is not safe for concurrent mutation; types build it once at definition
// time and afterwards only read it.
type Graph struct {
	// nodes stores all members in the graph, keyed by name.
	nodes map[string]*node
}

// node represents a single member. It is un-exported to enforce interaction
// with the graph via member names, not by direct struct manipulation.
type node struct {
	name string
	// deps holds the members this member reads (predecessors).
	deps map[string]*node
	// dependents holds the members that read this member (successors).
	dependents map[string]*node
}

// New returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// Add registers a member with the given name. Adding an existing member does
// nothing.
func (g *Graph) Add(name string) {
	if _, ok := g.nodes[name]; ok {
		return
	}
	g.nodes[name] = &node{
		name:       name,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// Has reports whether a member with the given name is registered.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Depend records that dependent reads dependency. An error is returned if
// either member is unregistered or the edge would be self-referential.
func (g *Graph) Depend(dependent, dependency string) error {
	if dependent == dependency {
		return fmt.Errorf("member %q depends on itself", dependent)
	}
	depNode, ok := g.nodes[dependent]
	if !ok {
		return fmt.Errorf("unknown member: %s", dependent)
	}
	srcNode, ok := g.nodes[dependency]
	if !ok {
		return fmt.Errorf("unknown member: %s", dependency)
	}

	depNode.deps[dependency] = srcNode
	srcNode.dependents[dependent] = depNode
	return nil
}

// Dependencies returns the names of the members the given member reads,
// sorted for determinism. Unknown members have no dependencies.
func (g *Graph) Dependencies(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return sortedKeys(n.deps)
}

// Dependents returns the names of the members that directly read the given
// member, sorted for determinism.
func (g *Graph) Dependents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// Affected returns every member transitively downstream of the given member,
// sorted for determinism. The member itself is not included. Each node is
// visited at most once, so shared paths do not repeat.
func (g *Graph) Affected(name string) []string {
	start, ok := g.nodes[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var walk func(n *node)
	walk = func(n *node) {
		for _, dep := range n.dependents {
			if seen[dep.name] {
				continue
			}
			seen[dep.name] = true
			walk(dep)
		}
	}
	walk(start)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CheckAcyclic verifies the graph has no dependency cycles. It returns a
// non-nil error naming the first member found on a cycle.
func (g *Graph) CheckAcyclic() error {
	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and known to be safe.
	// temporary: currently on the recursion stack.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.name] {
			return nil
		}
		if temporary[n.name] {
			// Already on the recursion stack, so we have a cycle.
			return fmt.Errorf("dependency cycle involving %q", n.name)
		}

		temporary[n.name] = true

		for _, dep := range n.dependents {
			if err := visit(dep); err != nil {
				return err
			}
		}

		delete(temporary, n.name)
		permanent[n.name] = true
		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.name] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]*node) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
