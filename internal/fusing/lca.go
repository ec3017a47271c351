package fusing

import (
	"sort"

	"lutra/internal/graph"
)

// nodeSet is an unordered set of node IDs.
type nodeSet map[graph.NodeID]bool

func (s nodeSet) ids() []graph.NodeID {
	ids := make([]graph.NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func idSet(ids []graph.NodeID) nodeSet {
	s := nodeSet{}
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// variableNodes filters the constant nodes out of a set, ascending.
func variableNodes(g *graph.Graph, s nodeSet) []graph.NodeID {
	var variable []graph.NodeID
	for _, id := range s.ids() {
		if g.Node(id).Operation != graph.OperationConstant {
			variable = append(variable, id)
		}
	}
	return variable
}

// FindSingleLCA finds the lowest single common ancestor of the given
// nodes: the topologically last non-constant node that is an ancestor of,
// or equal to, every node in the set and accounts for all of their
// non-constant inputs. Returns graph.Invalid when no such node exists.
func FindSingleLCA(g *graph.Graph, nodes []graph.NodeID) graph.NodeID {
	// A node's own ancestors include itself here, the single lca can be
	// one of the target nodes.
	ancestorSets := make([]map[graph.NodeID]bool, len(nodes))
	for i, node := range nodes {
		ancestors := g.Ancestors(node)
		ancestors[node] = true
		ancestorSets[i] = ancestors
	}

	common := nodeSet{}
	for _, id := range g.NodeIDs() {
		if g.Node(id).Operation == graph.OperationConstant {
			continue
		}
		isCommon := true
		for _, ancestors := range ancestorSets {
			if !ancestors[id] {
				isCommon = false
				break
			}
		}
		if isCommon {
			common[id] = true
		}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return graph.Invalid
	}

	// Reverse topological order guarantees the first single common
	// ancestor found is the lowest one.
	for i := len(order) - 1; i >= 0; i-- {
		candidate := order[i]
		if !common[candidate] {
			continue
		}
		if isSingleCommonAncestor(g, candidate, nodes) {
			return candidate
		}
	}

	return graph.Invalid
}

// isSingleCommonAncestor checks whether every non-constant input of the
// target nodes genuinely originates from the candidate. It builds the
// subgraph induced by all simple paths from the candidate to each target
// and compares, for every node but the candidate, the predecessor count
// in that subgraph with the non-constant predecessor count in the full
// graph. A mismatch means some input arrives from outside the candidate's
// region.
func isSingleCommonAncestor(g *graph.Graph, candidate graph.NodeID, nodes []graph.NodeID) bool {
	members := nodeSet{candidate: true}
	predsInSubgraph := map[graph.NodeID]nodeSet{}

	for _, node := range nodes {
		members[node] = true
		for _, path := range allSimplePaths(g, candidate, node) {
			for i := 0; i+1 < len(path); i++ {
				members[path[i]] = true
				members[path[i+1]] = true
				if predsInSubgraph[path[i+1]] == nil {
					predsInSubgraph[path[i+1]] = nodeSet{}
				}
				predsInSubgraph[path[i+1]][path[i]] = true
			}
		}
	}

	for member := range members {
		if member == candidate {
			continue
		}

		fullCount := 0
		for _, pred := range g.Predecessors(member) {
			if g.Node(pred).Operation != graph.OperationConstant {
				fullCount++
			}
		}

		if len(predsInSubgraph[member]) != fullCount {
			return false
		}
	}

	return true
}

// allSimplePaths enumerates every simple path from source to target.
func allSimplePaths(g *graph.Graph, source, target graph.NodeID) [][]graph.NodeID {
	var paths [][]graph.NodeID
	onPath := nodeSet{}

	var walk func(path []graph.NodeID)
	walk = func(path []graph.NodeID) {
		current := path[len(path)-1]
		if current == target {
			paths = append(paths, append([]graph.NodeID(nil), path...))
			return
		}
		for _, succ := range g.Successors(current) {
			if onPath[succ] {
				continue
			}
			onPath[succ] = true
			walk(append(path, succ))
			delete(onPath, succ)
		}
	}

	onPath[source] = true
	walk([]graph.NodeID{source})
	return paths
}

// findClosestIntegerOutputNodes walks upstream from the start nodes until
// each path reaches its nearest integer output node, extending visited
// with every traversed node. Integer constants count as closest nodes
// here and are filtered out later when the variable start is picked.
func findClosestIntegerOutputNodes(g *graph.Graph, startNodes []graph.NodeID, visited nodeSet) nodeSet {
	closest := nodeSet{}
	seen := nodeSet{}

	current := idSet(startNodes)
	for len(current) > 0 {
		next := nodeSet{}
		for _, id := range current.ids() {
			if seen[id] {
				continue
			}
			seen[id] = true

			visited[id] = true
			for _, pred := range g.Predecessors(id) {
				if g.Node(pred).Output.IsInteger() {
					closest[pred] = true
					visited[pred] = true
				} else {
					next[pred] = true
				}
			}
		}
		current = next
	}

	return closest
}

// addNodesFromTo extends the set with every node on a walk upstream from
// the from nodes, stopping at the to nodes.
func addNodesFromTo(g *graph.Graph, fromNodes []graph.NodeID, toNodes nodeSet, all nodeSet) {
	for id := range toNodes {
		all[id] = true
	}

	seen := nodeSet{}
	current := idSet(fromNodes)
	for len(current) > 0 {
		next := nodeSet{}
		for _, id := range current.ids() {
			if seen[id] {
				continue
			}
			seen[id] = true

			all[id] = true
			if !toNodes[id] {
				for _, pred := range g.Predecessors(id) {
					if !toNodes[pred] {
						next[pred] = true
					}
				}
			}
		}
		current = next
	}
}
