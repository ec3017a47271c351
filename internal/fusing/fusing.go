// Package fusing rewrites computation graphs so that float regions and
// multi-input table lookups collapse into single opaque nodes, each
// implementable as one table lookup over one variable input.
package fusing

import (
	"github.com/tliron/commonlog"

	"lutra/internal/graph"
)

var log = commonlog.GetLogger("lutra.fusing")

// subgraph is a candidate fusion region: every node it spans, its start
// nodes, and the terminal node the region computes.
type subgraph struct {
	all      nodeSet
	starts   nodeSet
	terminal graph.NodeID
}

// Fuse rewrites the graph in place until no fusable subgraph remains.
// Float bridging is searched first, then multi-input table lookups; each
// search restarts when the other makes progress, because collapsing a
// table lookup can expose a new float bridge.
func Fuse(g *graph.Graph) error {
	processed := nodeSet{}

	fusingFloats := true
	for {
		var candidate *subgraph
		if fusingFloats {
			candidate = findFloatSubgraph(g, processed)
		} else {
			candidate = findTLUSubgraph(g, processed)
		}

		if candidate == nil {
			if fusingFloats {
				fusingFloats = false
				processed = nodeSet{}
				continue
			}
			break
		}

		processed[candidate.terminal] = true

		fused, before, err := convertSubgraphToNode(g, candidate)
		if err != nil {
			return err
		}
		if fused == nil {
			continue
		}

		terminal := candidate.terminal
		fusedID := g.AddNode(fused)

		g.ReplaceOutput(terminal, fusedID)

		for _, edge := range g.OutEdges(terminal) {
			g.RemoveEdge(edge.From, edge.To, edge.InputIdx)
			if err := g.AddEdge(fusedID, edge.To, edge.InputIdx); err != nil {
				return err
			}
		}

		if err := g.AddEdge(before, fusedID, 0); err != nil {
			return err
		}

		g.PruneUselessNodes()
		log.Debugf("fused %d nodes into node %d", len(candidate.all), int(fusedID))

		if !fusingFloats {
			// A collapsed lookup can expose a new float bridge.
			fusingFloats = true
			processed = nodeSet{}
		}
	}

	return nil
}

// findFloatSubgraph searches for a region of float computation bridged by
// integer boundaries: a terminal node with a float input and an integer
// output, extended upstream to the closest integer output nodes and, when
// several variable start nodes result, to their lowest single common
// ancestor. A terminal without such an ancestor cannot be fused and is
// skipped.
func findFloatSubgraph(g *graph.Graph, processed nodeSet) *subgraph {
	terminal := graph.Invalid
	for _, id := range g.NodeIDs() {
		if processed[id] {
			continue
		}
		node := g.Node(id)
		if !node.Output.IsInteger() {
			continue
		}
		for _, input := range node.Inputs {
			if input.IsFloat() {
				terminal = id
				break
			}
		}
		if terminal != graph.Invalid {
			break
		}
	}
	if terminal == graph.Invalid {
		return nil
	}

	all := nodeSet{}
	var starts nodeSet

	searchFrom := terminal
	for {
		starts = findClosestIntegerOutputNodes(g, []graph.NodeID{searchFrom}, all)

		variableStarts := variableNodes(g, starts)
		if len(variableStarts) == 1 {
			break
		}

		// Several variable start nodes, fusion needs a single one.
		lca := FindSingleLCA(g, variableStarts)
		if lca == graph.Invalid {
			processed[terminal] = true
			log.Debugf("no single common ancestor for node %d, skipping", int(terminal))
			return findFloatSubgraph(g, processed)
		}

		addNodesFromTo(g, starts.ids(), nodeSet{lca: true}, all)

		if g.Node(lca).Output.IsInteger() {
			starts = nodeSet{lca: true}
			break
		}

		// The ancestor itself is a float node, push the search a
		// little further upstream from it.
		searchFrom = lca
	}

	return &subgraph{all: all, starts: starts, terminal: terminal}
}

// findTLUSubgraph searches for a table-lookup node with several variable
// predecessors, all integer typed, whose predecessors share a single
// common ancestor. Without such an ancestor the region is exactly the
// predecessors plus the terminal; whether fusion is possible is then the
// conversion step's single-variable-input precondition to check.
func findTLUSubgraph(g *graph.Graph, processed nodeSet) *subgraph {
	terminal := graph.Invalid
	for _, id := range g.NodeIDs() {
		if processed[id] {
			continue
		}
		node := g.Node(id)
		if !node.ConvertedToTableLookup() || !node.Output.IsInteger() {
			continue
		}
		allInteger := true
		for _, input := range node.Inputs {
			if !input.IsInteger() {
				allInteger = false
				break
			}
		}
		if !allInteger {
			continue
		}
		if len(variableNodes(g, idSet(g.Predecessors(id)))) > 1 {
			terminal = id
			break
		}
	}
	if terminal == graph.Invalid {
		return nil
	}

	predecessors := g.Predecessors(terminal)
	variableStarts := variableNodes(g, idSet(predecessors))

	lca := FindSingleLCA(g, variableStarts)
	if lca == graph.Invalid {
		all := idSet(predecessors)
		all[terminal] = true
		return &subgraph{all: all, starts: idSet(predecessors), terminal: terminal}
	}

	if !g.Node(lca).Output.IsInteger() {
		// The shared ancestor bridges through float, the float phase
		// handles it. Skip here.
		processed[terminal] = true
		return findTLUSubgraph(g, processed)
	}

	all := nodeSet{}
	addNodesFromTo(g, predecessors, nodeSet{lca: true}, all)
	all[terminal] = true

	return &subgraph{all: all, starts: nodeSet{lca: true}, terminal: terminal}
}
