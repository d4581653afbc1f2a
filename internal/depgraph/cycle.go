package depgraph

import (
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// Cycle is a strongly connected component with an example cycle through it
type Cycle struct {
	// Members are the component's vertices, sorted
	Members []string `json:"members" yaml:"members"`

	// Path is a concrete cycle starting and ending at the first member
	Path []string `json:"path" yaml:"path"`
}

// Key identifies the cycle by its members
func (c Cycle) Key() string {
	return strings.Join(c.Members, ",")
}

// FindCycles returns the cycles of a directed graph: every strongly connected
// component with two or more vertices, plus vertices with a self loop.
// Cycles are sorted by size (largest first), then by members.
func FindCycles(g graph.Graph[string, string]) ([]Cycle, error) {
	comps, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	var out []Cycle
	for _, comp := range comps {
		if len(comp) == 1 {
			v := comp[0]
			if _, self := adj[v][v]; !self {
				continue
			}
		}
		members := append([]string(nil), comp...)
		sort.Strings(members)
		out = append(out, Cycle{
			Members: members,
			Path:    ExamplePath(adj, members),
		})
	}

	SortCycles(out)
	return out, nil
}

// SortCycles orders cycles by size (largest first), then by members
func SortCycles(cycles []Cycle) {
	sort.SliceStable(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		if len(a.Members) != len(b.Members) {
			return len(a.Members) > len(b.Members)
		}
		return a.Key() < b.Key()
	})
}

// ExamplePath returns a shortest cycle through the first of the sorted
// members, staying inside the member set. Neighbors are visited in name order
// so the result is deterministic. Returns nil when no such cycle exists.
func ExamplePath(adj map[string]map[string]graph.Edge[string], members []string) []string {
	if len(members) == 0 {
		return nil
	}
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}

	start := members[0]
	if _, self := adj[start][start]; self {
		return []string{start, start}
	}

	prev := make(map[string]string)
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(adj[cur]) {
			if !in[next] {
				continue
			}
			if next == start {
				path := []string{start}
				for v := cur; v != start; v = prev[v] {
					path = append(path, v)
				}
				// path holds start followed by the route reversed
				for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return append(path, start)
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

// Route returns a shortest path from one vertex to another, both included,
// that only passes through members. Returns nil when to is unreachable.
func Route(adj map[string]map[string]graph.Edge[string], members []string, from, to string) []string {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}

	prev := map[string]string{}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			path := []string{to}
			for v := to; v != from; {
				v = prev[v]
				path = append(path, v)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, next := range sortedKeys(adj[cur]) {
			if !in[next] || visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}
