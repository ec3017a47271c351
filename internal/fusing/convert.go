package fusing

import (
	"fmt"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/tensor"
	"lutra/internal/values"
)

// convertSubgraphToNode extracts the candidate region into an inner graph
// and wraps it in a single node whose evaluator runs that inner graph.
// A nil node with a nil error means the terminal was skipped: multivariate
// terminals natively accept several inputs, and a where terminal selecting
// between several variables stays as is.
//
// Precondition, checked explicitly: the region must have exactly one
// variable input node. More than one is a fatal diagnostic.
func convertSubgraphToNode(g *graph.Graph, candidate *subgraph) (*graph.Node, graph.NodeID, error) {
	terminal := g.Node(candidate.terminal)

	if terminal.IsMultivariate() {
		return nil, graph.Invalid, nil
	}

	variableInputs := variableNodes(g, candidate.starts)
	if len(variableInputs) != 1 {
		if terminal.Name == "where" {
			return nil, graph.Invalid, nil
		}

		highlighted := highlightSubgraph(g, candidate.all)
		for _, id := range variableInputs {
			highlighted[id] = []string{"this is one of the input nodes", g.Node(id).Location}
		}

		return nil, graph.Invalid, errors.MultipleInputNodes(
			"a subgraph within the function cannot be fused because it has multiple input nodes").
			At(terminal.Location).
			WithDetail(g.Format(highlighted))
	}

	variableInput := variableInputs[0]
	if err := checkSubgraphFusibility(g, candidate.all, variableInput); err != nil {
		return nil, graph.Invalid, err
	}

	inner, innerTerminal := extractInnerGraph(g, candidate, variableInput)

	evaluator := func(inputs []*tensor.Tensor) (*tensor.Tensor, error) {
		results, err := inner.Evaluate(map[int]*tensor.Tensor{0: inputs[0]})
		if err != nil {
			return nil, err
		}
		return results[0], nil
	}

	fused := graph.NewGeneric("subgraph",
		[]values.Description{g.Node(variableInput).Output.Clone()},
		terminal.Output.Clone(),
		evaluator)
	fused.Location = terminal.Location
	fused.Tag = terminal.Tag
	fused.Attributes = map[string]any{"subgraph": inner}

	log.Debugf("extracted inner graph of %d nodes terminating at %d",
		inner.Len(), int(innerTerminal))

	return fused, variableInput, nil
}

// extractInnerGraph copies the region into a fresh graph whose single
// parameter stands in for the variable input node.
func extractInnerGraph(g *graph.Graph, candidate *subgraph, variableInput graph.NodeID) (*graph.Graph, graph.NodeID) {
	inner := graph.New()
	inner.Name = g.Name

	mapping := map[graph.NodeID]graph.NodeID{}

	original := g.Node(variableInput)
	input := graph.NewInput("input", original.Output.Clone())
	input.Location = original.Location
	input.Tag = original.Tag
	mapping[variableInput] = inner.AddNode(input)
	inner.SetInput(0, mapping[variableInput])

	for _, id := range candidate.all.ids() {
		if id == variableInput {
			continue
		}
		node := g.Node(id)
		copied := *node
		mapping[id] = inner.AddNode(&copied)
	}

	for _, id := range candidate.all.ids() {
		for _, edge := range g.InEdges(id) {
			from, ok := mapping[edge.From]
			if !ok {
				continue
			}
			// The region has one variable input, every other edge
			// source is inside the region, so this cannot fail.
			if err := inner.AddEdge(from, mapping[id], edge.InputIdx); err != nil {
				panic(fmt.Sprintf("inner graph edge: %v", err))
			}
		}
	}

	inner.SetOutput(0, mapping[candidate.terminal])
	return inner, mapping[candidate.terminal]
}

// checkSubgraphFusibility verifies that every non-constant node of the
// region, other than the variable input, is individually fusable and has
// the variable input's shape. Reshaping or shuffling breaks the
// one-to-one cell correspondence a table lookup needs.
func checkSubgraphFusibility(g *graph.Graph, all nodeSet, variableInput graph.NodeID) error {
	inputNode := g.Node(variableInput)

	for _, id := range all.ids() {
		node := g.Node(id)
		if id == variableInput || node.Operation == graph.OperationConstant {
			continue
		}

		if !node.Fusable {
			highlighted := highlightSubgraph(g, all)
			highlighted[variableInput] = []string{"with this input node", inputNode.Location}
			highlighted[id] = []string{"this node is not fusable", node.Location}
			return errors.NonFusableNode(
				"a subgraph within the function cannot be fused because of a node which is marked explicitly as non-fusable").
				At(node.Location).
				WithDetail(g.Format(highlighted))
		}

		if !node.Output.SameShape(inputNode.Output) {
			highlighted := highlightSubgraph(g, all)
			highlighted[variableInput] = []string{"with this input node", inputNode.Location}
			highlighted[id] = []string{"this node has a different shape than the input node", node.Location}
			return errors.ShapeMismatch(
				"a subgraph within the function cannot be fused because of a node which has a different shape than the input node").
				At(node.Location).
				WithDetail(g.Format(highlighted))
		}
	}

	return nil
}

func highlightSubgraph(g *graph.Graph, all nodeSet) map[graph.NodeID][]string {
	highlighted := map[graph.NodeID][]string{}
	for id := range all {
		highlighted[id] = []string{"within this subgraph", g.Node(id).Location}
	}
	return highlighted
}
