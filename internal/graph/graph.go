package graph

import (
	"fmt"
	"sort"
)

// Edge connects a producer node to a consumer node. InputIdx is the operand
// position the producer's value takes among the consumer's inputs.
type Edge struct {
	From     NodeID
	To       NodeID
	InputIdx int
}

// Graph is an arena-owned directed acyclic multigraph of computation nodes.
// Nodes are addressed by NodeID and edges live in adjacency lists, so
// structural rewrites during fusion touch only integer indices.
type Graph struct {
	// Name labels the circuit in listings and log lines.
	Name string

	nodes map[NodeID]*Node
	succs map[NodeID][]Edge
	preds map[NodeID][]Edge

	inputs  map[int]NodeID
	outputs map[int]NodeID

	nextID NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   map[NodeID]*Node{},
		succs:   map[NodeID][]Edge{},
		preds:   map[NodeID][]Edge{},
		inputs:  map[int]NodeID{},
		outputs: map[int]NodeID{},
	}
}

// AddNode moves a node into the arena and assigns its ID.
func (g *Graph) AddNode(node *Node) NodeID {
	id := g.nextID
	g.nextID++
	node.ID = id
	g.nodes[id] = node
	return id
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodeIDs returns all node IDs in ascending order. Ascending ID order is
// creation order, which keeps traversals deterministic.
func (g *Graph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddEdge connects from to to at the given operand position. Duplicate
// (from, to, inputIdx) triples and self loops are rejected.
func (g *Graph) AddEdge(from, to NodeID, inputIdx int) error {
	if g.nodes[from] == nil || g.nodes[to] == nil {
		return fmt.Errorf("edge endpoints must exist in the graph")
	}
	if from == to {
		return fmt.Errorf("node %d cannot consume itself", from)
	}
	for _, e := range g.succs[from] {
		if e.To == to && e.InputIdx == inputIdx {
			return fmt.Errorf("duplicate edge %d -> %d at operand %d", from, to, inputIdx)
		}
	}
	edge := Edge{From: from, To: to, InputIdx: inputIdx}
	g.succs[from] = append(g.succs[from], edge)
	g.preds[to] = append(g.preds[to], edge)
	return nil
}

// RemoveEdge drops a single edge.
func (g *Graph) RemoveEdge(from, to NodeID, inputIdx int) {
	g.succs[from] = dropEdge(g.succs[from], from, to, inputIdx)
	g.preds[to] = dropEdge(g.preds[to], from, to, inputIdx)
}

func dropEdge(edges []Edge, from, to NodeID, inputIdx int) []Edge {
	kept := edges[:0]
	for _, e := range edges {
		if e.From == from && e.To == to && e.InputIdx == inputIdx {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// RemoveNode drops a node and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) {
	for _, e := range g.preds[id] {
		g.succs[e.From] = dropEdge(g.succs[e.From], e.From, e.To, e.InputIdx)
	}
	for _, e := range g.succs[id] {
		g.preds[e.To] = dropEdge(g.preds[e.To], e.From, e.To, e.InputIdx)
	}
	delete(g.preds, id)
	delete(g.succs, id)
	delete(g.nodes, id)
}

// InEdges returns the edges feeding the node, sorted by operand position.
func (g *Graph) InEdges(id NodeID) []Edge {
	edges := append([]Edge(nil), g.preds[id]...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].InputIdx != edges[j].InputIdx {
			return edges[i].InputIdx < edges[j].InputIdx
		}
		return edges[i].From < edges[j].From
	})
	return edges
}

// OutEdges returns the edges leaving the node, sorted by consumer.
func (g *Graph) OutEdges(id NodeID) []Edge {
	edges := append([]Edge(nil), g.succs[id]...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].InputIdx < edges[j].InputIdx
	})
	return edges
}

// Predecessors returns the distinct producers of the node, ascending.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	return distinctEndpoints(g.preds[id], func(e Edge) NodeID { return e.From })
}

// Successors returns the distinct consumers of the node, ascending.
func (g *Graph) Successors(id NodeID) []NodeID {
	return distinctEndpoints(g.succs[id], func(e Edge) NodeID { return e.To })
}

func distinctEndpoints(edges []Edge, pick func(Edge) NodeID) []NodeID {
	seen := map[NodeID]bool{}
	ids := make([]NodeID, 0, len(edges))
	for _, e := range edges {
		id := pick(e)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OrderedPredecessors returns the node's producers by operand position.
// The incoming operand positions of every node must form a permutation of
// 0..in-degree-1, which CheckOperandPositions verifies.
func (g *Graph) OrderedPredecessors(id NodeID) []NodeID {
	edges := g.InEdges(id)
	ordered := make([]NodeID, len(edges))
	for i, e := range edges {
		ordered[i] = e.From
	}
	return ordered
}

// CheckOperandPositions verifies that every node's incoming operand
// positions are exactly 0..in-degree-1, each used once.
func (g *Graph) CheckOperandPositions() error {
	for _, id := range g.NodeIDs() {
		edges := g.preds[id]
		seen := make(map[int]bool, len(edges))
		for _, e := range edges {
			if e.InputIdx < 0 || e.InputIdx >= len(edges) {
				return fmt.Errorf("node %d has operand position %d outside 0..%d", id, e.InputIdx, len(edges)-1)
			}
			if seen[e.InputIdx] {
				return fmt.Errorf("node %d has duplicate operand position %d", id, e.InputIdx)
			}
			seen[e.InputIdx] = true
		}
	}
	return nil
}

// SetInput binds a parameter position to a node.
func (g *Graph) SetInput(position int, id NodeID) {
	g.inputs[position] = id
}

// SetOutput binds a result position to a node.
func (g *Graph) SetOutput(position int, id NodeID) {
	g.outputs[position] = id
}

// InputCount returns the number of circuit parameters.
func (g *Graph) InputCount() int { return len(g.inputs) }

// OutputCount returns the number of circuit results.
func (g *Graph) OutputCount() int { return len(g.outputs) }

// Input returns the node bound to the given parameter position.
func (g *Graph) Input(position int) NodeID {
	if id, ok := g.inputs[position]; ok {
		return id
	}
	return Invalid
}

// Output returns the node bound to the given result position.
func (g *Graph) Output(position int) NodeID {
	if id, ok := g.outputs[position]; ok {
		return id
	}
	return Invalid
}

// ReplaceOutput rebinds every result position held by old to new.
func (g *Graph) ReplaceOutput(old, new NodeID) {
	for position, id := range g.outputs {
		if id == old {
			g.outputs[position] = new
		}
	}
}

// InputNodes returns the parameter nodes in positional order.
func (g *Graph) InputNodes() []NodeID {
	return orderedPositions(g.inputs)
}

// OutputNodes returns the result nodes in positional order.
func (g *Graph) OutputNodes() []NodeID {
	return orderedPositions(g.outputs)
}

func orderedPositions(bound map[int]NodeID) []NodeID {
	positions := make([]int, 0, len(bound))
	for p := range bound {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	ids := make([]NodeID, len(positions))
	for i, p := range positions {
		ids[i] = bound[p]
	}
	return ids
}

// TopologicalOrder returns the nodes so that every producer precedes its
// consumers. Ties break on ascending ID. An error means the graph has a
// cycle.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	remaining := map[NodeID]int{}
	for _, id := range g.NodeIDs() {
		remaining[id] = len(g.Predecessors(id))
	}

	ready := make([]NodeID, 0, len(remaining))
	for _, id := range g.NodeIDs() {
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]NodeID, 0, len(remaining))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, succ := range g.Successors(id) {
			remaining[succ]--
			if remaining[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(remaining) {
		return nil, fmt.Errorf("graph contains a cycle")
	}
	return order, nil
}

// Ancestors returns every node from which id is reachable, id excluded.
func (g *Graph) Ancestors(id NodeID) map[NodeID]bool {
	seen := map[NodeID]bool{}
	stack := append([]NodeID(nil), g.Predecessors(id)...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		stack = append(stack, g.Predecessors(current)...)
	}
	return seen
}

// Descendants returns every node reachable from id, id excluded.
func (g *Graph) Descendants(id NodeID) map[NodeID]bool {
	seen := map[NodeID]bool{}
	stack := append([]NodeID(nil), g.Successors(id)...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		stack = append(stack, g.Successors(current)...)
	}
	return seen
}

// IsAcyclic reports whether the graph has no cycle.
func (g *Graph) IsAcyclic() bool {
	_, err := g.TopologicalOrder()
	return err == nil
}

// PruneUselessNodes removes every node that no circuit result depends on.
// Parameter nodes are never pruned, an unused parameter is still part of
// the circuit signature.
func (g *Graph) PruneUselessNodes() {
	useful := map[NodeID]bool{}
	stack := g.OutputNodes()
	stack = append(stack, g.InputNodes()...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if useful[current] {
			continue
		}
		useful[current] = true
		stack = append(stack, g.Predecessors(current)...)
	}

	for _, id := range g.NodeIDs() {
		if !useful[id] {
			g.RemoveNode(id)
		}
	}
}

// MaxBitWidth returns the widest integer output in the graph, 0 when the
// graph has no integer node.
func (g *Graph) MaxBitWidth() int {
	widest := 0
	for _, id := range g.NodeIDs() {
		if width := g.nodes[id].Output.Dtype.BitWidth(); g.nodes[id].Output.IsInteger() && width > widest {
			widest = width
		}
	}
	return widest
}
