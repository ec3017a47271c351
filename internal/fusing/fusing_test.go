package fusing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/tensor"
	"lutra/internal/tracing"
	"lutra/internal/values"
)

func traceCircuit(t *testing.T, function tracing.Function, parameters ...tracing.Parameter) *graph.Graph {
	g, err := tracing.Trace(function, parameters)
	require.NoError(t, err)
	return g
}

func encrypted(name string, width int) tracing.Parameter {
	return tracing.Parameter{Name: name, Value: values.EncryptedScalar(values.UnsignedInteger(width))}
}

func nodeNames(g *graph.Graph) []string {
	names := make([]string, 0, g.Len())
	for _, id := range g.NodeIDs() {
		names = append(names, g.Node(id).Label(nil))
	}
	return names
}

func TestFloatBridgeFusesToSingleLookup(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x := args[0]
		return x.Astype(values.Float64()).Mul(0.5).Astype(values.SignedInteger(8)).Add(1)
	}, encrypted("x", 8))

	require.NoError(t, Fuse(g))

	// The float region collapses into one opaque node fed by x directly.
	var fused *graph.Node
	for _, id := range g.NodeIDs() {
		node := g.Node(id)
		assert.False(t, node.Output.IsFloat(), "float node survived fusing: %s", node.Label(nil))
		if node.Name == "subgraph" {
			fused = node
		}
	}
	require.NotNil(t, fused, "no fused node in %v", nodeNames(g))

	preds := g.OrderedPredecessors(fused.ID)
	require.Len(t, preds, 1)
	assert.Equal(t, graph.OperationInput, g.Node(preds[0]).Operation)
}

func TestFusedGraphEvaluatesLikeTheOriginal(t *testing.T) {
	build := func() *graph.Graph {
		return traceCircuit(t, func(args []*tracing.Tracer) any {
			x := args[0]
			return x.Astype(values.Float64()).Mul(0.5).Astype(values.SignedInteger(8)).Add(1)
		}, encrypted("x", 8))
	}

	original := build()
	fusedGraph := build()
	require.NoError(t, Fuse(fusedGraph))

	for _, sample := range []int64{0, 1, 6, 100} {
		arguments := map[int]*tensor.Tensor{0: tensor.IntScalar(sample)}

		expected, err := original.Evaluate(arguments)
		require.NoError(t, err)
		actual, err := fusedGraph.Evaluate(arguments)
		require.NoError(t, err)

		assert.Equal(t, expected[0].IntAt(0), actual[0].IntAt(0), "input %d", sample)
	}
}

func TestFusionIsIdempotent(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x := args[0]
		return x.Astype(values.Float64()).Apply("exp", nil).Astype(values.UnsignedInteger(4)).Add(x)
	}, encrypted("x", 3))

	require.NoError(t, Fuse(g))
	after := g.Format(nil)

	require.NoError(t, Fuse(g))
	assert.Equal(t, after, g.Format(nil))
}

func TestFusionPreservesCircuitSignature(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x, y := args[0], args[1]
		return []*tracing.Tracer{
			x.Astype(values.Float64()).Mul(0.25).Astype(values.UnsignedInteger(3)),
			y.Add(1),
		}
	}, encrypted("x", 4), encrypted("y", 4))

	inputsBefore := make([]values.Description, g.InputCount())
	for i := range inputsBefore {
		inputsBefore[i] = g.Node(g.Input(i)).Output
	}
	outputsBefore := make([]values.Description, g.OutputCount())
	for i := range outputsBefore {
		outputsBefore[i] = g.Node(g.Output(i)).Output
	}

	require.NoError(t, Fuse(g))

	require.Equal(t, len(inputsBefore), g.InputCount())
	require.Equal(t, len(outputsBefore), g.OutputCount())
	for i, before := range inputsBefore {
		assert.True(t, before.Equal(g.Node(g.Input(i)).Output))
	}
	for i, before := range outputsBefore {
		assert.True(t, before.Equal(g.Node(g.Output(i)).Output))
	}
}

func TestTLUWithMultipleVariableInputsFuses(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x := args[0]
		return x.Add(1).BitAnd(x.Add(2))
	}, encrypted("x", 3))

	require.NoError(t, Fuse(g))

	fusedID := g.Output(0)
	require.Equal(t, "subgraph", g.Node(fusedID).Name)

	preds := g.OrderedPredecessors(fusedID)
	require.Len(t, preds, 1)
	assert.Equal(t, graph.OperationInput, g.Node(preds[0]).Operation)

	results, err := g.Evaluate(map[int]*tensor.Tensor{0: tensor.IntScalar(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(6&7), results[0].IntAt(0))
}

func TestMultipleInputSubgraphIsFatal(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		return args[0].Add(1).BitAnd(args[1])
	}, encrypted("x", 3), encrypted("y", 3))

	err := Fuse(g)
	require.Error(t, err)

	diagnostic, ok := err.(errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorMultipleInputNodes, diagnostic.Code)
	assert.Contains(t, diagnostic.Detail, "within this subgraph")
}

func TestWhereWithMultipleVariableInputsIsSkipped(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x, y := args[0], args[1]
		return tracing.Where(x.Gt(3), x, y)
	}, encrypted("x", 3), encrypted("y", 3))

	require.NoError(t, Fuse(g))

	names := nodeNames(g)
	assert.Contains(t, names[len(names)-1], "where")
}

func TestNonFusableNodeIsFatal(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		return args[0].Astype(values.Float64()).Reshape(2, 2).Astype(values.UnsignedInteger(3))
	}, tracing.Parameter{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 4)})

	err := Fuse(g)
	require.Error(t, err)

	diagnostic, ok := err.(errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorNonFusableNode, diagnostic.Code)
	assert.Contains(t, diagnostic.Detail, "this node is not fusable")
}

func TestMissingAncestorSkipsFloatTerminal(t *testing.T) {
	// x and y never share an ancestor, so the float bridge cannot fuse.
	// That blocks fusion for this terminal but is not fatal.
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x, y := args[0], args[1]
		return x.Astype(values.Float64()).Add(y.Astype(values.Float64())).Astype(values.UnsignedInteger(4))
	}, encrypted("x", 3), encrypted("y", 3))

	before := g.Len()
	require.NoError(t, Fuse(g))
	assert.Equal(t, before, g.Len())
}

func TestFindSingleLCADiamond(t *testing.T) {
	// (x * 3) + (x // 2): x is the single common ancestor of the
	// multiplication and the addition.
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x := args[0]
		return x.Mul(3).Add(x.FloorDiv(2))
	}, encrypted("x", 3))

	sum := g.Output(0)
	var mul graph.NodeID
	for _, id := range g.NodeIDs() {
		if g.Node(id).Name == "multiply" {
			mul = id
		}
	}

	lca := FindSingleLCA(g, []graph.NodeID{mul, sum})
	require.NotEqual(t, graph.Invalid, lca)
	assert.Equal(t, graph.OperationInput, g.Node(lca).Operation)

	// The multiplication itself is not a single common ancestor: the
	// addition keeps an input arriving from outside its region.
	assert.False(t, isSingleCommonAncestor(g, mul, []graph.NodeID{mul, sum}))
}

func TestFindSingleLCANoAncestor(t *testing.T) {
	// The addition depends on an unrelated parameter, so no node
	// accounts for all of its inputs.
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		return args[0].Mul(3).Add(args[1])
	}, encrypted("x", 3), encrypted("y", 3))

	sum := g.Output(0)
	var mul graph.NodeID
	for _, id := range g.NodeIDs() {
		if g.Node(id).Name == "multiply" {
			mul = id
		}
	}

	assert.Equal(t, graph.Invalid, FindSingleLCA(g, []graph.NodeID{mul, sum}))
}

func TestMultivariateTerminalIsNeverFused(t *testing.T) {
	g := traceCircuit(t, func(args []*tracing.Tracer) any {
		x, y := args[0], args[1]
		return tracing.Multivariate(func(inputs []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Mul(inputs[0], inputs[1])
		}, x.Add(1), y.Add(1))
	}, encrypted("x", 2), encrypted("y", 2))

	require.NoError(t, Fuse(g))

	out := g.Node(g.Output(0))
	assert.True(t, out.IsMultivariate())
}
