package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutra/internal/tensor"
	"lutra/internal/values"
)

func addEvaluator(inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Add(inputs[0], inputs[1])
}

// buildAdditionGraph constructs x + 2 for an encrypted 3-bit scalar.
func buildAdditionGraph(t *testing.T) *Graph {
	g := New()

	x := g.AddNode(NewInput("x", values.EncryptedScalar(values.UnsignedInteger(3))))
	two := g.AddNode(NewConstant(tensor.IntScalar(2)))

	out := values.EncryptedScalar(values.UnsignedInteger(4))
	sum := g.AddNode(NewGeneric("add",
		[]values.Description{values.EncryptedScalar(values.UnsignedInteger(3)), values.ClearScalar(values.UnsignedInteger(2))},
		out, addEvaluator))

	require.NoError(t, g.AddEdge(x, sum, 0))
	require.NoError(t, g.AddEdge(two, sum, 1))

	g.SetInput(0, x)
	g.SetOutput(0, sum)
	return g
}

func TestAddEdgeRejectsDuplicates(t *testing.T) {
	g := buildAdditionGraph(t)
	x := g.Input(0)
	sum := g.Output(0)

	err := g.AddEdge(x, sum, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate edge")

	// Same endpoints at another operand position is a legal multi-edge.
	double := g.AddNode(NewGeneric("add",
		[]values.Description{values.EncryptedScalar(values.UnsignedInteger(3)), values.EncryptedScalar(values.UnsignedInteger(3))},
		values.EncryptedScalar(values.UnsignedInteger(4)), addEvaluator))
	require.NoError(t, g.AddEdge(x, double, 0))
	require.NoError(t, g.AddEdge(x, double, 1))
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := buildAdditionGraph(t)
	sum := g.Output(0)
	assert.Error(t, g.AddEdge(sum, sum, 2))
}

func TestOperandPositions(t *testing.T) {
	g := buildAdditionGraph(t)
	sum := g.Output(0)

	require.NoError(t, g.CheckOperandPositions())

	preds := g.OrderedPredecessors(sum)
	require.Len(t, preds, 2)
	assert.Equal(t, OperationInput, g.Node(preds[0]).Operation)
	assert.Equal(t, OperationConstant, g.Node(preds[1]).Operation)

	// A gap in operand positions is rejected.
	bad := New()
	a := bad.AddNode(NewInput("a", values.EncryptedScalar(values.UnsignedInteger(2))))
	b := bad.AddNode(NewGeneric("negative",
		[]values.Description{values.EncryptedScalar(values.UnsignedInteger(2))},
		values.EncryptedScalar(values.SignedInteger(3)), nil))
	require.NoError(t, bad.AddEdge(a, b, 1))
	assert.Error(t, bad.CheckOperandPositions())
}

func TestTopologicalOrder(t *testing.T) {
	g := buildAdditionGraph(t)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)

	position := map[NodeID]int{}
	for i, id := range order {
		position[id] = i
	}
	sum := g.Output(0)
	for _, pred := range g.Predecessors(sum) {
		assert.Less(t, position[pred], position[sum])
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := buildAdditionGraph(t)
	x := g.Input(0)
	sum := g.Output(0)

	ancestors := g.Ancestors(sum)
	assert.True(t, ancestors[x])
	assert.False(t, ancestors[sum])

	descendants := g.Descendants(x)
	assert.True(t, descendants[sum])
}

func TestPruneUselessNodes(t *testing.T) {
	g := buildAdditionGraph(t)

	// A dangling computation nothing returns.
	orphan := g.AddNode(NewGeneric("negative",
		[]values.Description{values.EncryptedScalar(values.UnsignedInteger(3))},
		values.EncryptedScalar(values.SignedInteger(4)), nil))
	require.NoError(t, g.AddEdge(g.Input(0), orphan, 0))

	require.Equal(t, 4, g.Len())
	g.PruneUselessNodes()
	assert.Equal(t, 3, g.Len())
	assert.Nil(t, g.Node(orphan))
}

func TestEvaluate(t *testing.T) {
	g := buildAdditionGraph(t)

	results, err := g.Evaluate(map[int]*tensor.Tensor{0: tensor.IntScalar(5)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(7), results[0].IntAt(0))

	_, err = g.Evaluate(map[int]*tensor.Tensor{})
	assert.Error(t, err)
}

func TestMaxBitWidth(t *testing.T) {
	g := buildAdditionGraph(t)
	assert.Equal(t, 4, g.MaxBitWidth())
}

func TestFormat(t *testing.T) {
	g := buildAdditionGraph(t)

	listing := g.Format(nil)
	assert.Contains(t, listing, "%0 = x")
	assert.Contains(t, listing, "# EncryptedScalar<uint3>")
	assert.Contains(t, listing, "add(%0, %1)")
	assert.Contains(t, listing, "return %2")

	highlighted := g.Format(map[NodeID][]string{g.Output(0): {"this node is problematic"}})
	assert.Contains(t, highlighted, "^")
	assert.Contains(t, highlighted, "this node is problematic")
}

func TestRemoveNodeDropsEdges(t *testing.T) {
	g := buildAdditionGraph(t)
	sum := g.Output(0)
	x := g.Input(0)

	g.RemoveNode(sum)
	assert.Empty(t, g.Successors(x))
	assert.Nil(t, g.Node(sum))
}
