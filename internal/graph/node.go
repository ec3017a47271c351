package graph

import (
	"fmt"
	"sort"
	"strings"

	"lutra/internal/tensor"
	"lutra/internal/values"
)

// NodeID identifies a node within the graph arena that owns it.
type NodeID int

// Invalid is returned by lookups that found no node.
const Invalid NodeID = -1

// Operation classifies a node.
type Operation int

const (
	// OperationInput marks a circuit parameter.
	OperationInput Operation = iota
	// OperationConstant marks an embedded literal.
	OperationConstant
	// OperationGeneric marks a computation with a named operation.
	OperationGeneric
)

func (o Operation) String() string {
	switch o {
	case OperationInput:
		return "input"
	case OperationConstant:
		return "constant"
	case OperationGeneric:
		return "generic"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// Evaluator computes a node's value from its ordered operand values.
type Evaluator func(inputs []*tensor.Tensor) (*tensor.Tensor, error)

// Node is one vertex of the computation graph. Nodes live in a Graph arena
// and refer to each other through NodeIDs on edges, never through pointers.
type Node struct {
	ID        NodeID
	Operation Operation

	// Name is the parameter name for inputs and the operation name for
	// generic nodes. Constants leave it empty.
	Name string

	// Inputs describes the expected operand values in positional order,
	// Output describes the produced value.
	Inputs []values.Description
	Output values.Description

	// Constant holds the embedded literal of constant nodes.
	Constant *tensor.Tensor

	// Evaluator computes the node over concrete tensors. Inputs and
	// constants ignore their operands.
	Evaluator Evaluator

	// Attributes carries operation keyword arguments (axis, keepdims,
	// the lookup table of a dynamic TLU) plus bookkeeping flags.
	Attributes map[string]any

	// Fusable reports whether the node can be absorbed into a lookup
	// table. Shape-changing operations are not fusable.
	Fusable bool

	// Location is the user call site that created the node, file:line.
	Location string

	// Tag is an optional user label active when the node was created.
	Tag string
}

// NewInput creates a circuit parameter node.
func NewInput(name string, output values.Description) *Node {
	out := output.Clone()
	return &Node{
		ID:        Invalid,
		Operation: OperationInput,
		Name:      name,
		Inputs:    []values.Description{output.Clone()},
		Output:    out,
		Evaluator: nil,
		Fusable:   true,
	}
}

// NewConstant creates a node embedding the given literal.
func NewConstant(value *tensor.Tensor) *Node {
	held := value.Clone()
	return &Node{
		ID:        Invalid,
		Operation: OperationConstant,
		Output:    values.Of(held),
		Constant:  held,
		Evaluator: func([]*tensor.Tensor) (*tensor.Tensor, error) { return held, nil },
		Fusable:   true,
	}
}

// NewGeneric creates a computation node.
func NewGeneric(name string, inputs []values.Description, output values.Description, evaluator Evaluator) *Node {
	cloned := make([]values.Description, len(inputs))
	for i, in := range inputs {
		cloned[i] = in.Clone()
	}
	return &Node{
		ID:        Invalid,
		Operation: OperationGeneric,
		Name:      name,
		Inputs:    cloned,
		Output:    output.Clone(),
		Evaluator: evaluator,
		Fusable:   true,
	}
}

// Evaluate runs the node over concrete operand values.
func (n *Node) Evaluate(inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	switch n.Operation {
	case OperationConstant:
		return n.Constant, nil
	case OperationInput:
		if len(inputs) != 1 {
			return nil, fmt.Errorf("input node %q expects exactly one value, got %d", n.Name, len(inputs))
		}
		return inputs[0], nil
	default:
		if len(inputs) != len(n.Inputs) {
			return nil, fmt.Errorf("operation %q expects %d operands, got %d", n.Name, len(n.Inputs), len(inputs))
		}
		return n.Evaluator(inputs)
	}
}

// notTableLookup lists the operations the backend implements directly,
// without a lookup table.
var notTableLookup = map[string]bool{
	"add":            true,
	"subtract":       true,
	"multiply":       true,
	"negative":       true,
	"sum":            true,
	"matmul":         true,
	"dot":            true,
	"reshape":        true,
	"transpose":      true,
	"broadcast_to":   true,
	"expand_dims":    true,
	"squeeze":        true,
	"index_static":   true,
	"assign_static":  true,
	"index_dynamic":  true,
	"assign_dynamic": true,
}

// ConvertedToTableLookup reports whether the node executes as one or more
// table lookups in the backend.
func (n *Node) ConvertedToTableLookup() bool {
	return n.Operation == OperationGeneric && !notTableLookup[n.Name]
}

// IsMultivariate reports whether the node natively accepts several
// variable inputs, like a multivariate table lookup.
func (n *Node) IsMultivariate() bool {
	return n.Operation == OperationGeneric && n.Name == "multivariate"
}

// Label renders the node for graph listings, with operand placeholders
// substituted in positional order.
func (n *Node) Label(operands []string) string {
	switch n.Operation {
	case OperationInput:
		return n.Name
	case OperationConstant:
		return n.Constant.String()
	default:
		args := make([]string, 0, len(operands)+len(n.Attributes))
		args = append(args, operands...)
		for _, key := range sortedAttributeKeys(n.Attributes) {
			args = append(args, fmt.Sprintf("%s=%v", key, n.Attributes[key]))
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
	}
}

// hidden bookkeeping attributes stay out of labels
var hiddenAttributes = map[string]bool{
	"subgraph": true,
}

func sortedAttributeKeys(attributes map[string]any) []string {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		if hiddenAttributes[key] {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
