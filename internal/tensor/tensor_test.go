package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestBroadcastingAdd(t *testing.T) {
	matrix := NewInt([]int{2, 3}, []int64{1, 2, 3, 4, 5, 6})
	row := NewInt([]int{3}, []int64{10, 20, 30})

	result, err := Add(matrix, row)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, result.Shape())
	assert.Equal(t, []int64{11, 22, 33, 14, 25, 36}, result.Ints())

	result, err = Add(matrix, IntScalar(100))
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 103, 104, 105, 106}, result.Ints())

	_, err = Add(matrix, NewInt([]int{2}, []int64{1, 2}))
	assert.Error(t, err)
}

func TestFloorDivAndModFollowThePythonConvention(t *testing.T) {
	x := NewInt([]int{4}, []int64{7, -7, 7, -7})
	y := NewInt([]int{4}, []int64{2, 2, -2, -2})

	quotient, err := FloorDiv(x, y)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, -4, -4, 3}, quotient.Ints())

	remainder, err := Mod(x, y)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, -1, -1}, remainder.Ints())
}

func TestAsType(t *testing.T) {
	floats := NewFloat([]int{3}, []float64{2.7, -2.7, 0.5})

	ints, err := AsType(floats, Int)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, -2, 0}, ints.Ints())

	back, err := AsType(ints, Float)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -2, 0}, back.Floats())

	_, err = AsType(NewFloat(nil, []float64{math.NaN()}), Int)
	assert.Error(t, err)
}

func TestRoundHalfToEven(t *testing.T) {
	rounded := Round(NewFloat([]int{4}, []float64{0.5, 1.5, 2.5, -0.5}), 0)
	assert.Equal(t, []float64{0, 2, 2, 0}, rounded.Floats())

	rounded = Round(NewFloat([]int{2}, []float64{0.25, 0.35}), 1)
	assert.InDelta(t, 0.2, rounded.FloatAt(0), 1e-9)
	assert.InDelta(t, 0.4, rounded.FloatAt(1), 1e-9)
}

func TestReductions(t *testing.T) {
	matrix := NewInt([]int{2, 3}, []int64{1, 2, 3, 4, 5, 6})

	total, err := Sum(matrix, nil, false)
	require.NoError(t, err)
	assert.True(t, total.IsScalar())
	assert.Equal(t, int64(21), total.IntAt(0))

	columns, err := Sum(matrix, intp(0), false)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, columns.Shape())
	assert.Equal(t, []int64{5, 7, 9}, columns.Ints())

	rows, err := Sum(matrix, intp(-1), true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, rows.Shape())
	assert.Equal(t, []int64{6, 15}, rows.Ints())

	lowest, err := Min(matrix, nil, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lowest.IntAt(0))

	highest, err := Max(matrix, intp(1), false)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 6}, highest.Ints())

	_, err = Sum(matrix, intp(2), false)
	assert.Error(t, err)
}

func TestMatmulAndDot(t *testing.T) {
	a := NewInt([]int{2, 3}, []int64{1, 2, 3, 4, 5, 6})
	b := NewInt([]int{3, 2}, []int64{7, 8, 9, 10, 11, 12})

	product, err := Matmul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, product.Shape())
	assert.Equal(t, []int64{58, 64, 139, 154}, product.Ints())

	u := NewInt([]int{3}, []int64{1, 2, 3})
	v := NewInt([]int{3}, []int64{4, 5, 6})
	scalar, err := Dot(u, v)
	require.NoError(t, err)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, int64(32), scalar.IntAt(0))
}

func TestStaticIndexing(t *testing.T) {
	matrix := NewInt([]int{3, 4}, []int64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})

	row, err := Index(matrix, IntElement(1))
	require.NoError(t, err)
	assert.Equal(t, []int{4}, row.Shape())
	assert.Equal(t, []int64{4, 5, 6, 7}, row.Ints())

	cell, err := Index(matrix, IntElement(-1), IntElement(-1))
	require.NoError(t, err)
	assert.True(t, cell.IsScalar())
	assert.Equal(t, int64(11), cell.IntAt(0))

	block, err := Index(matrix, SliceElement{Stop: intp(2)}, SliceElement{Start: intp(1), Stop: intp(3)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, block.Shape())
	assert.Equal(t, []int64{1, 2, 5, 6}, block.Ints())

	reversed, err := Index(matrix, IntElement(0), SliceElement{Step: intp(-1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1, 0}, reversed.Ints())

	_, err = Index(matrix, IntElement(3))
	assert.Error(t, err)

	_, err = Index(matrix, IntElement(0), IntElement(0), IntElement(0))
	assert.Error(t, err)
}

func TestTensorIndexing(t *testing.T) {
	vector := NewInt([]int{5}, []int64{10, 11, 12, 13, 14})
	picks := NewInt([]int{2, 2}, []int64{4, 0, 3, 3})

	gathered, err := Index(vector, TensorElement{T: picks})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, gathered.Shape())
	assert.Equal(t, []int64{14, 10, 13, 13}, gathered.Ints())

	_, err = Index(vector, TensorElement{T: NewFloat([]int{1}, []float64{0})})
	assert.Error(t, err)
}

func TestAssignLeavesTheSourceUntouched(t *testing.T) {
	matrix := NewInt([]int{2, 3}, []int64{1, 2, 3, 4, 5, 6})

	updated, err := Assign(matrix, []IndexElement{IntElement(0)}, IntScalar(0))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 4, 5, 6}, updated.Ints())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, matrix.Ints())

	updated, err = Assign(
		matrix,
		[]IndexElement{SliceElement{}, IntElement(1)},
		NewInt([]int{2}, []int64{20, 50}),
	)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 20, 3, 4, 50, 6}, updated.Ints())
}

func TestLookup(t *testing.T) {
	table := NewInt([]int{4}, []int64{3, 1, 4, 1})
	index := NewInt([]int{2}, []int64{2, 0})

	result, err := Lookup(table, index)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3}, result.Ints())

	_, err = Lookup(table, IntScalar(4))
	assert.Error(t, err)

	_, err = Lookup(NewInt([]int{2, 2}, []int64{1, 2, 3, 4}), IntScalar(0))
	assert.Error(t, err)
}

func TestWhereAndClip(t *testing.T) {
	cond := NewInt([]int{4}, []int64{1, 0, 1, 0})
	a := NewInt([]int{4}, []int64{10, 11, 12, 13})

	selected, err := Where(cond, a, IntScalar(-1))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, -1, 12, -1}, selected.Ints())

	clipped, err := Clip(NewInt([]int{5}, []int64{-3, 0, 2, 7, 9}), IntScalar(0), IntScalar(7))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 2, 7, 7}, clipped.Ints())
}

func TestShapeManipulation(t *testing.T) {
	vector := NewInt([]int{6}, []int64{1, 2, 3, 4, 5, 6})

	matrix, err := Reshape(vector, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, matrix.Shape())

	transposed, err := Transpose(matrix, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, transposed.Shape())
	assert.Equal(t, []int64{1, 4, 2, 5, 3, 6}, transposed.Ints())

	expanded, err := ExpandDims(vector, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6}, expanded.Shape())

	squeezed, err := Squeeze(expanded, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, squeezed.Shape())

	_, err = Reshape(vector, []int{4, 2})
	assert.Error(t, err)
}

func TestMinMaxInt(t *testing.T) {
	lo, hi := NewInt([]int{4}, []int64{3, -7, 0, 5}).MinMaxInt()
	assert.Equal(t, int64(-7), lo)
	assert.Equal(t, int64(5), hi)

	lo, hi = NewInt([]int{0}, nil).MinMaxInt()
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(0), hi)
}
