package graph

import (
	"fmt"

	"lutra/internal/tensor"
)

// Evaluate runs the whole graph over concrete parameter values and returns
// the result tensors by output position.
func (g *Graph) Evaluate(arguments map[int]*tensor.Tensor) (map[int]*tensor.Tensor, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	positionOf := map[NodeID]int{}
	for position, id := range g.inputs {
		positionOf[id] = position
	}

	computed := map[NodeID]*tensor.Tensor{}
	for _, id := range order {
		node := g.nodes[id]

		var result *tensor.Tensor
		switch node.Operation {
		case OperationInput:
			argument, ok := arguments[positionOf[id]]
			if !ok {
				return nil, fmt.Errorf("missing argument for parameter %q", node.Name)
			}
			result = argument
		case OperationConstant:
			result = node.Constant
		default:
			operands := make([]*tensor.Tensor, 0, len(g.preds[id]))
			for _, pred := range g.OrderedPredecessors(id) {
				operands = append(operands, computed[pred])
			}
			result, err = node.Evaluate(operands)
			if err != nil {
				return nil, fmt.Errorf("evaluating %s: %w", node.Label(nil), err)
			}
		}

		computed[id] = result
	}

	results := make(map[int]*tensor.Tensor, len(g.outputs))
	for position, id := range g.outputs {
		results[position] = computed[id]
	}
	return results, nil
}
