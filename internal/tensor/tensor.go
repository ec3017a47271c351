// Package tensor implements the dense arrays the tracer evaluates traced
// operations on. Tracing never sees user data; it only needs representative
// samples of the right shape and kind to compute output shapes and types,
// and the fusion pass needs the same machinery to evaluate extracted
// subgraphs cell by cell.
package tensor

import (
	"fmt"
	"math"
)

// Kind discriminates the two element kinds a tensor can hold.
type Kind int

const (
	Int Kind = iota
	Float
)

func (k Kind) String() string {
	if k == Int {
		return "int"
	}
	return "float"
}

// Tensor is a dense n-dimensional array of int64 or float64 elements.
// A tensor with an empty shape is a scalar with exactly one element.
type Tensor struct {
	kind   Kind
	shape  []int
	ints   []int64
	floats []float64
}

// NewInt creates an integer tensor from a flat data slice.
func NewInt(shape []int, data []int64) *Tensor {
	if len(data) != sizeOf(shape) {
		panic(fmt.Sprintf("tensor: shape %v needs %d elements, got %d", shape, sizeOf(shape), len(data)))
	}
	return &Tensor{kind: Int, shape: cloneShape(shape), ints: data}
}

// NewFloat creates a float tensor from a flat data slice.
func NewFloat(shape []int, data []float64) *Tensor {
	if len(data) != sizeOf(shape) {
		panic(fmt.Sprintf("tensor: shape %v needs %d elements, got %d", shape, sizeOf(shape), len(data)))
	}
	return &Tensor{kind: Float, shape: cloneShape(shape), floats: data}
}

// IntScalar creates a scalar integer tensor.
func IntScalar(v int64) *Tensor {
	return NewInt(nil, []int64{v})
}

// FloatScalar creates a scalar float tensor.
func FloatScalar(v float64) *Tensor {
	return NewFloat(nil, []float64{v})
}

// Ones creates a tensor of the given shape and kind filled with ones.
func Ones(shape []int, kind Kind) *Tensor {
	return Full(shape, kind, 1)
}

// Zeros creates a tensor of the given shape and kind filled with zeros.
func Zeros(shape []int, kind Kind) *Tensor {
	return Full(shape, kind, 0)
}

// Full creates a tensor of the given shape and kind filled with value.
func Full(shape []int, kind Kind, value int64) *Tensor {
	n := sizeOf(shape)
	if kind == Float {
		data := make([]float64, n)
		for i := range data {
			data[i] = float64(value)
		}
		return NewFloat(shape, data)
	}
	data := make([]int64, n)
	for i := range data {
		data[i] = value
	}
	return NewInt(shape, data)
}

// Kind returns the element kind.
func (t *Tensor) Kind() Kind {
	return t.kind
}

// Shape returns the tensor's shape. The returned slice must not be mutated.
func (t *Tensor) Shape() []int {
	return t.shape
}

// Size returns the number of elements.
func (t *Tensor) Size() int {
	return sizeOf(t.shape)
}

// Ndim returns the number of dimensions.
func (t *Tensor) Ndim() int {
	return len(t.shape)
}

// IsScalar reports whether the tensor holds a single unshaped element.
func (t *Tensor) IsScalar() bool {
	return len(t.shape) == 0
}

// IntAt returns the flat element at i as an int64, truncating floats.
func (t *Tensor) IntAt(i int) int64 {
	if t.kind == Int {
		return t.ints[i]
	}
	return int64(t.floats[i])
}

// FloatAt returns the flat element at i as a float64.
func (t *Tensor) FloatAt(i int) float64 {
	if t.kind == Float {
		return t.floats[i]
	}
	return float64(t.ints[i])
}

// Ints returns the backing int64 data. Valid only for integer tensors.
func (t *Tensor) Ints() []int64 {
	if t.kind != Int {
		panic("tensor: Ints called on a float tensor")
	}
	return t.ints
}

// Floats returns the backing float64 data. Valid only for float tensors.
func (t *Tensor) Floats() []float64 {
	if t.kind != Float {
		panic("tensor: Floats called on an int tensor")
	}
	return t.floats
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{kind: t.kind, shape: cloneShape(t.shape)}
	if t.kind == Int {
		c.ints = append([]int64(nil), t.ints...)
	} else {
		c.floats = append([]float64(nil), t.floats...)
	}
	return c
}

// MinMaxInt returns the bounds of an integer tensor. An empty tensor
// has no elements to bound and reports (0, 0).
func (t *Tensor) MinMaxInt() (int64, int64) {
	if t.kind != Int {
		panic("tensor: MinMaxInt called on a float tensor")
	}
	if len(t.ints) == 0 {
		return 0, 0
	}
	lo, hi := t.ints[0], t.ints[0]
	for _, v := range t.ints[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func (t *Tensor) String() string {
	if t.IsScalar() {
		if t.kind == Int {
			return fmt.Sprintf("%d", t.ints[0])
		}
		return formatFloat(t.floats[0])
	}
	if t.kind == Int {
		return fmt.Sprintf("%v", t.ints)
	}
	return fmt.Sprintf("%v", t.floats)
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}

func sizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cloneShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	return append([]int(nil), shape...)
}

// strides returns the row-major strides of a shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// unravel converts a flat index into multi-dimensional coordinates.
func unravel(flat int, shape []int) []int {
	idx := make([]int, len(shape))
	st := strides(shape)
	for i := range shape {
		idx[i] = flat / st[i]
		flat %= st[i]
	}
	return idx
}

// ravel converts multi-dimensional coordinates into a flat index.
func ravel(idx []int, shape []int) int {
	st := strides(shape)
	flat := 0
	for i, v := range idx {
		flat += v * st[i]
	}
	return flat
}
