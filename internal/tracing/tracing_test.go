package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/tensor"
	"lutra/internal/values"
)

func encryptedScalar(width int) Parameter {
	return Parameter{Name: "x", Value: values.EncryptedScalar(values.UnsignedInteger(width))}
}

func TestTraceArity(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return []*Tracer{args[0].Add(args[1]), args[0].Mul(2)}
	}, []Parameter{
		{Name: "x", Value: values.EncryptedScalar(values.UnsignedInteger(3))},
		{Name: "y", Value: values.EncryptedScalar(values.UnsignedInteger(3))},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, g.InputCount())
	assert.Equal(t, 2, g.OutputCount())
	assert.Equal(t, "x", g.Node(g.Input(0)).Name)
	assert.Equal(t, "y", g.Node(g.Input(1)).Name)
}

func TestTraceKeepsUnusedParameter(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Add(1)
	}, []Parameter{encryptedScalar(3), {Name: "unused", Value: values.EncryptedScalar(values.UnsignedInteger(2))}})
	require.NoError(t, err)
	assert.Equal(t, 2, g.InputCount())
}

func TestTraceIsStructurallySound(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		x := args[0]
		return x.Mul(x).Add(x.Lt(4))
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	assert.True(t, g.IsAcyclic())
	assert.NoError(t, g.CheckOperandPositions())
}

func TestSampledOutputDescriptions(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Add(2)
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	// Both operands sample as ones, so the result is typed as the
	// smallest integer holding 2 and stays encrypted.
	out := g.Node(g.Output(0)).Output
	assert.Equal(t, values.UnsignedInteger(2), out.Dtype)
	assert.True(t, out.IsEncrypted)

	// Operand descriptions are deep copies in declaration order.
	node := g.Node(g.Output(0))
	require.Len(t, node.Inputs, 2)
	assert.True(t, node.Inputs[0].IsEncrypted)
	assert.False(t, node.Inputs[1].IsEncrypted)
}

func TestLiteralReturnBecomesConstant(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return 42
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	out := g.Node(g.Output(0))
	assert.Equal(t, graph.OperationConstant, out.Operation)
	assert.Equal(t, int64(42), out.Constant.IntAt(0))
}

func TestBranchingIsRejected(t *testing.T) {
	_, err := Trace(func(args []*Tracer) any {
		if args[0].Gt(3).Bool() {
			return args[0]
		}
		return args[0].Neg()
	}, []Parameter{encryptedScalar(3)})

	require.Error(t, err)
	diagnostic, ok := err.(errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorBranchingNotAllowed, diagnostic.Code)
}

func TestUnsupportedOperationIsNamed(t *testing.T) {
	_, err := Trace(func(args []*Tracer) any {
		return args[0].Apply("arctn", nil)
	}, []Parameter{encryptedScalar(3)})

	require.Error(t, err)
	diagnostic := err.(errors.CompilerError)
	assert.Equal(t, errors.ErrorUnsupportedOperation, diagnostic.Code)
	assert.Contains(t, diagnostic.Message, "arctn")
}

func TestUnsupportedKwargIsNamed(t *testing.T) {
	_, err := Trace(func(args []*Tracer) any {
		return args[0].Sum(Kwargs{"initial": 3})
	}, []Parameter{{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 4)}})

	require.Error(t, err)
	diagnostic := err.(errors.CompilerError)
	assert.Equal(t, errors.ErrorUnsupportedKwarg, diagnostic.Code)
	assert.Contains(t, diagnostic.Message, "initial")
	assert.Contains(t, diagnostic.Message, "sum")
}

func TestAstype(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Astype(values.Float64()).Mul(0.5).Astype(values.SignedInteger(8))
	}, []Parameter{encryptedScalar(8)})
	require.NoError(t, err)

	out := g.Node(g.Output(0)).Output
	assert.Equal(t, values.SignedInteger(8), out.Dtype)
	assert.True(t, out.IsEncrypted)
}

func TestAssignVersioning(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		x := args[0]
		x.Assign(0, At(1))

		// Reads after the assignment resolve to the newest version.
		return x.Add(1)
	}, []Parameter{{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 4)}})
	require.NoError(t, err)

	sum := g.Node(g.Output(0))
	assert.Equal(t, "add", sum.Name)

	preds := g.OrderedPredecessors(sum.ID)
	assert.Equal(t, "assign_static", g.Node(preds[0]).Name)
}

func TestAssignedTracerAsOutput(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		x := args[0]
		x.Assign(7, At(0))
		return x
	}, []Parameter{{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 4)}})
	require.NoError(t, err)

	assert.Equal(t, "assign_static", g.Node(g.Output(0)).Name)
}

func TestStaticIndexing(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Index(At(1), Span(0, 2))
	}, []Parameter{{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 3, 4)}})
	require.NoError(t, err)

	out := g.Node(g.Output(0))
	assert.Equal(t, "index_static", out.Name)
	assert.Equal(t, []int{2}, out.Output.Shape)
	assert.Equal(t, values.UnsignedInteger(3), out.Output.Dtype)
}

func TestDynamicIndexing(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Index(Dyn(args[1]), All())
	}, []Parameter{
		{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 3, 4)},
		{Name: "i", Value: values.ClearScalar(values.UnsignedInteger(2))},
	})
	require.NoError(t, err)

	out := g.Node(g.Output(0))
	assert.Equal(t, "index_dynamic", out.Name)
	assert.Equal(t, []int{4}, out.Output.Shape)
}

func TestDynamicTableLookup(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return LookupTable(tensor.NewInt([]int{4}, []int64{1, 4, 9, 16}), args[0])
	}, []Parameter{encryptedScalar(2)})
	require.NoError(t, err)

	out := g.Node(g.Output(0))
	assert.Equal(t, "dynamic_tlu", out.Name)
	assert.True(t, out.Output.IsEncrypted)
	assert.True(t, out.Output.IsScalar())
}

func TestEncryptedIndexComponentIsRejected(t *testing.T) {
	_, err := Trace(func(args []*Tracer) any {
		return args[0].Index(Dyn(args[1]), All())
	}, []Parameter{
		{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 3, 4)},
		{Name: "i", Value: values.EncryptedScalar(values.UnsignedInteger(2))},
	})

	require.Error(t, err)
	diagnostic := err.(errors.CompilerError)
	assert.Equal(t, errors.ErrorInvalidIndexing, diagnostic.Code)
}

func TestEmptyIndexResultIsRejected(t *testing.T) {
	_, err := Trace(func(args []*Tracer) any {
		return args[0].Index(Span(0, 0))
	}, []Parameter{
		{Name: "x", Value: values.EncryptedTensor(values.UnsignedInteger(3), 4)},
	})

	require.Error(t, err)
	diagnostic := err.(errors.CompilerError)
	assert.Equal(t, errors.ErrorInvalidIndexing, diagnostic.Code)
	assert.Contains(t, diagnostic.Message, "empty result")
}

func TestTracedGraphEvaluates(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Mul(args[0]).Add(3)
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	results, err := g.Evaluate(map[int]*tensor.Tensor{0: tensor.IntScalar(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(28), results[0].IntAt(0))
}

func TestSquareTracesAsMultiEdge(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Mul(args[0])
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	out := g.Output(0)
	preds := g.OrderedPredecessors(out)
	require.Len(t, preds, 2)
	assert.Equal(t, preds[0], preds[1])
}

func TestWhereAndClip(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		x := args[0]
		return Where(x.Gt(3), x.Clip(0, 5), x)
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	assert.Equal(t, "where", g.Node(g.Output(0)).Name)
}

func TestProvenanceIsRecorded(t *testing.T) {
	g, err := Trace(func(args []*Tracer) any {
		return args[0].Add(1)
	}, []Parameter{encryptedScalar(3)})
	require.NoError(t, err)

	node := g.Node(g.Output(0))
	assert.Contains(t, node.Location, "tracing_test.go")
}
