package indexer

import (
	"sort"

	"github.com/testweave/coreindex/internal/depgraph"
)

// CalculateAffectedFiles returns every file that transitively depends
// on any of the changed files, excluding the changed files themselves.
// Traversal follows reverse dependency edges breadth-first with a
// visited set, so dependency cycles terminate. Output is sorted for
// deterministic downstream scheduling.
func CalculateAffectedFiles(graph *depgraph.Graph, changed []string) []string {
	if graph == nil || len(changed) == 0 {
		return []string{}
	}

	origin := make(map[string]struct{}, len(changed))
	for _, path := range changed {
		origin[path] = struct{}{}
	}

	visited := make(map[string]struct{}, len(changed))
	queue := make([]string, 0, len(changed))
	for _, path := range changed {
		visited[path] = struct{}{}
		queue = append(queue, path)
	}

	affected := make([]string, 0)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range graph.Dependents(current) {
			if _, seen := visited[dependent]; seen {
				continue
			}
			visited[dependent] = struct{}{}
			queue = append(queue, dependent)

			if _, isOrigin := origin[dependent]; !isOrigin {
				affected = append(affected, dependent)
			}
		}
	}

	sort.Strings(affected)
	return affected
}
