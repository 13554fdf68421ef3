package pipeline

import (
	"fmt"
)

// Graph assembles nodes into a runnable pipeline. Edges are wired at node
// construction time (each node holds a reference to its downstream sink);
// the graph tracks the nodes by name, validates the assembly, and manages
// the start/terminate lifecycle as a unit.
type Graph struct {
	nodes   map[string]*Node
	order   []string // insertion order; terminal sinks are added first
	entry   string
	started bool
}

// NewGraph creates an empty pipeline graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Add registers a node under its configured name. Nodes should be added
// sink-first so Start brings consumers up before their producers. Duplicate
// names are a construction-time error.
func (g *Graph) Add(n *Node) error {
	if n == nil {
		return fmt.Errorf("pipeline: graph cannot hold a nil node")
	}
	if _, dup := g.nodes[n.Name()]; dup {
		return fmt.Errorf("pipeline: duplicate node name %q", n.Name())
	}
	g.nodes[n.Name()] = n
	g.order = append(g.order, n.Name())
	return nil
}

// SetEntry names the node that external producers push into.
func (g *Graph) SetEntry(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("pipeline: unknown entry node %q", name)
	}
	g.entry = name
	return nil
}

// Node looks up a registered node by name.
func (g *Graph) Node(name string) *Node { return g.nodes[name] }

// Source returns the push endpoint of the graph's entry node. Valid only
// after a successful Start.
func (g *Graph) Source() Sink { return g.nodes[g.entry] }

// Start validates the graph and launches every node's worker pool in
// insertion order (consumers first).
func (g *Graph) Start() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("pipeline: graph has no nodes")
	}
	if g.entry == "" {
		return fmt.Errorf("pipeline: graph has no entry node")
	}
	for _, name := range g.order {
		g.nodes[name].Start()
	}
	g.started = true
	diagf("graph started: %d nodes, entry %q", len(g.nodes), g.entry)
	return nil
}

// Stop terminates the entry node and lets termination cascade downstream.
// It returns once every node has drained.
func (g *Graph) Stop() {
	if !g.started {
		return
	}
	g.nodes[g.entry].Terminate()
	g.started = false
	diagf("graph stopped")
}

// Restart reopens every node for another run, consumers first.
func (g *Graph) Restart() {
	for _, name := range g.order {
		g.nodes[name].Restart()
	}
	g.started = true
}
