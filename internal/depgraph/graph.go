package depgraph

import "sort"

// Graph maps a file to the set of files it directly imports. It is
// supplied by an external analysis step and treated as read-only by the
// core; it may contain cycles. A reverse index is maintained so that
// dependents of a file can be answered without scanning.
type Graph struct {
	deps       map[string][]string
	dependents map[string][]string
}

// New builds a graph from a file -> direct dependencies mapping. The
// input map is copied; later mutation of it does not affect the graph.
func New(deps map[string][]string) *Graph {
	g := &Graph{
		deps:       make(map[string][]string, len(deps)),
		dependents: make(map[string][]string),
	}

	for file, targets := range deps {
		copied := make([]string, len(targets))
		copy(copied, targets)
		sort.Strings(copied)
		g.deps[file] = copied

		for _, target := range targets {
			g.dependents[target] = append(g.dependents[target], file)
		}
	}

	for target := range g.dependents {
		sort.Strings(g.dependents[target])
	}

	return g
}

// Dependencies returns the files that path directly imports
func (g *Graph) Dependencies(path string) []string {
	return g.deps[path]
}

// Dependents returns the files that directly import path
func (g *Graph) Dependents(path string) []string {
	return g.dependents[path]
}

// Contains reports whether path appears in the graph, either as a
// source or as a dependency target
func (g *Graph) Contains(path string) bool {
	if _, ok := g.deps[path]; ok {
		return true
	}
	_, ok := g.dependents[path]
	return ok
}

// Files returns every file known to the graph, sorted
func (g *Graph) Files() []string {
	seen := make(map[string]struct{}, len(g.deps))
	for file := range g.deps {
		seen[file] = struct{}{}
	}
	for file := range g.dependents {
		seen[file] = struct{}{}
	}

	files := make([]string, 0, len(seen))
	for file := range seen {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Len returns the number of files with outgoing edges
func (g *Graph) Len() int {
	return len(g.deps)
}

// NeighborsWithin returns every file reachable from path within
// maxHops edges, following edges in both directions, together with the
// hop distance at which it was first reached. The starting file itself
// is excluded. A visited set guards against cycles.
func (g *Graph) NeighborsWithin(path string, maxHops int) map[string]int {
	neighbors := make(map[string]int)
	if maxHops <= 0 {
		return neighbors
	}

	visited := map[string]struct{}{path: {}}
	frontier := []string{path}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, current := range frontier {
			for _, adjacent := range append(g.Dependencies(current), g.Dependents(current)...) {
				if _, ok := visited[adjacent]; ok {
					continue
				}
				visited[adjacent] = struct{}{}
				neighbors[adjacent] = hop
				next = append(next, adjacent)
			}
		}
		frontier = next
	}

	return neighbors
}
