// Package graph builds the precedence network of a project and answers
// ordering and reachability questions about it.
package graph

import (
	"fmt"
	"sort"

	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
)

// Build constructs a Graph from a project's tasks and milestones. Edges to
// unknown predecessors are skipped with a warning, as are repeated
// predecessor pairs (the first one wins).
func Build(p *project.Project) (*Graph, error) {
	g := &Graph{
		Nodes:  make(map[string]*Node),
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
		Edges:  make(map[[2]string]Edge),
	}

	for _, t := range p.Tasks {
		kind := TaskNode
		if t.Type == project.MilestoneTask {
			kind = MilestoneNode
		}
		g.Nodes[t.ID] = &Node{ID: t.ID, Name: t.Name, Kind: kind}
	}
	for _, m := range p.Milestones {
		g.Nodes[m.ID] = &Node{ID: m.ID, Name: m.Name, Kind: MilestoneNode}
	}

	addEdges := func(to string, deps []project.Dependency) {
		for _, d := range deps {
			if _, ok := g.Nodes[d.PredecessorID]; !ok {
				g.Warnings = append(g.Warnings,
					fmt.Sprintf("%s: unknown predecessor %q ignored", to, d.PredecessorID))
				continue
			}
			g.AddEdge(Edge{From: d.PredecessorID, To: to, Type: d.Type, Lag: d.LagDays})
		}
	}
	for _, t := range p.Tasks {
		addEdges(t.ID, t.Dependencies)
	}
	for _, m := range p.Milestones {
		addEdges(m.ID, m.Dependencies)
	}

	g.finish()

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, errs.NewCycle("graph.Build", cycle)
	}
	return g, nil
}

// AddEdge inserts an edge unless the pair already exists, in which case a
// warning is recorded. It does not check for cycles.
func (g *Graph) AddEdge(e Edge) bool {
	if e.Type == "" {
		e.Type = project.FinishToStart
	}
	key := [2]string{e.From, e.To}
	if _, dup := g.Edges[key]; dup {
		g.Warnings = append(g.Warnings,
			fmt.Sprintf("%s: duplicate dependency on %q ignored", e.To, e.From))
		return false
	}
	g.Edges[key] = e
	g.Adj[e.From] = append(g.Adj[e.From], e.To)
	g.RevAdj[e.To] = append(g.RevAdj[e.To], e.From)
	return true
}

// finish sorts adjacency lists and recomputes roots and leaves.
func (g *Graph) finish() {
	for k := range g.Adj {
		sort.Strings(g.Adj[k])
	}
	for k := range g.RevAdj {
		sort.Strings(g.RevAdj[k])
	}

	g.Roots, g.Leaves = nil, nil
	for _, id := range g.IDs() {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}
}

// IDs returns every node id in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edge returns the edge from -> to.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	e, ok := g.Edges[[2]string{from, to}]
	return e, ok
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				// walk parents back to next, then reverse into forward order
				cycle := []string{next, node}
				for cur := node; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopoSort orders nodes with Kahn's algorithm, breaking ties by id.
func (g *Graph) TopoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	var queue []string
	for _, id := range g.IDs() {
		inDegree[id] = len(g.RevAdj[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []string
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(order) != len(g.Nodes) {
		return nil, errs.NewCycle("graph.TopoSort", g.DetectCycle())
	}
	return order, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Path returns a shortest successor path from from to to, inclusive of both
// ends, or nil when to is unreachable.
func (g *Graph) Path(from, to string) []string {
	prev := map[string]string{from: from}
	queue := []string{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == to {
			var path []string
			for cur := to; cur != from; cur = prev[cur] {
				path = append(path, cur)
			}
			path = append(path, from)
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, s := range g.Adj[n] {
			if _, seen := prev[s]; !seen {
				prev[s] = n
				queue = append(queue, s)
			}
		}
	}
	return nil
}
