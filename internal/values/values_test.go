package values

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lutra/internal/tensor"
)

func TestIntegerRanges(t *testing.T) {
	assert.Equal(t, int64(0), UnsignedInteger(3).Min())
	assert.Equal(t, int64(7), UnsignedInteger(3).Max())
	assert.Equal(t, int64(-128), SignedInteger(8).Min())
	assert.Equal(t, int64(127), SignedInteger(8).Max())

	assert.True(t, SignedInteger(4).CanRepresent(-8))
	assert.False(t, SignedInteger(4).CanRepresent(8))
	assert.False(t, UnsignedInteger(4).CanRepresent(-1))
}

func TestIntegerThatCanRepresent(t *testing.T) {
	cases := []struct {
		values   []int64
		expected Integer
	}{
		{[]int64{0}, UnsignedInteger(1)},
		{[]int64{0, 7}, UnsignedInteger(3)},
		{[]int64{8}, UnsignedInteger(4)},
		{[]int64{-1}, SignedInteger(1)},
		{[]int64{-1, 7}, SignedInteger(4)},
		{[]int64{-255, 7}, SignedInteger(9)},
		{[]int64{0, 255}, UnsignedInteger(8)},
		{[]int64{-128, 127}, SignedInteger(8)},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, IntegerThatCanRepresent(c.values...), "values %v", c.values)
	}
}

func TestDtypeStrings(t *testing.T) {
	assert.Equal(t, "uint3", UnsignedInteger(3).String())
	assert.Equal(t, "int8", SignedInteger(8).String())
	assert.Equal(t, "float64", Float64().String())
}

func TestDescriptionOfTensor(t *testing.T) {
	described := Of(tensor.NewInt([]int{2, 2}, []int64{0, 3, 7, 1}))
	assert.Equal(t, UnsignedInteger(3), described.Dtype)
	assert.Equal(t, []int{2, 2}, described.Shape)
	assert.False(t, described.IsEncrypted)

	described = Of(tensor.NewInt([]int{2}, []int64{-3, 5}))
	assert.Equal(t, SignedInteger(4), described.Dtype)

	described = Of(tensor.FloatScalar(2.5))
	assert.Equal(t, Float64(), described.Dtype)
	assert.True(t, described.IsScalar())
}

func TestDescriptionString(t *testing.T) {
	scalar := Description{Dtype: UnsignedInteger(6), IsEncrypted: true}
	assert.Equal(t, "EncryptedScalar<uint6>", scalar.String())

	matrix := Description{Dtype: SignedInteger(4), Shape: []int{3, 2}}
	assert.Equal(t, "ClearTensor<int4, shape=(3, 2)>", matrix.String())
}

func TestDescriptionPredicates(t *testing.T) {
	d := Description{Dtype: UnsignedInteger(3), Shape: []int{4}, IsEncrypted: true}

	assert.True(t, d.IsInteger())
	assert.False(t, d.IsFloat())
	assert.False(t, d.IsClear())
	assert.False(t, d.IsScalar())
	assert.Equal(t, 1, d.Ndim())
	assert.Equal(t, 4, d.Size())
	assert.Equal(t, tensor.Int, d.TensorKind())

	f := Description{Dtype: Float64()}
	assert.True(t, f.IsFloat())
	assert.Equal(t, tensor.Float, f.TensorKind())
}

func TestDescriptionEquality(t *testing.T) {
	a := Description{Dtype: UnsignedInteger(3), Shape: []int{2, 2}, IsEncrypted: true}

	assert.True(t, a.Equal(a.Clone()))
	assert.False(t, a.Equal(Description{Dtype: UnsignedInteger(4), Shape: []int{2, 2}, IsEncrypted: true}))
	assert.False(t, a.Equal(Description{Dtype: UnsignedInteger(3), Shape: []int{2, 2}}))
	assert.False(t, a.Equal(Description{Dtype: UnsignedInteger(3), Shape: []int{4}, IsEncrypted: true}))

	clone := a.Clone()
	clone.Shape[0] = 9
	assert.Equal(t, 2, a.Shape[0])
}
