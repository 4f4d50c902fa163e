package graph

import "github.com/jackhale98/tessera/internal/project"

// Kind distinguishes the two node types in a project network.
type Kind string

const (
	TaskNode      Kind = "task"
	MilestoneNode Kind = "milestone"
)

// Node is a task or milestone in the dependency network.
type Node struct {
	ID   string
	Name string
	Kind Kind
}

// Edge is a typed precedence link from a predecessor to a successor.
type Edge struct {
	From string
	To   string
	Type project.DependencyType
	Lag  float64 // days; negative is a lead
}

// Graph is a directed acyclic network of tasks and milestones.
type Graph struct {
	Nodes    map[string]*Node
	Adj      map[string][]string // node -> successors
	RevAdj   map[string][]string // node -> predecessors
	Edges    map[[2]string]Edge  // keyed by {from, to}
	Roots    []string            // nodes with no predecessors
	Leaves   []string            // nodes with no successors
	Warnings []string
}
