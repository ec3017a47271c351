package tensor

import (
	"fmt"
)

// Reshape returns a view-copy of the tensor with a new shape of equal size.
func Reshape(t *Tensor, shape []int) (*Tensor, error) {
	if sizeOf(shape) != t.Size() {
		return nil, fmt.Errorf("tensor: cannot reshape %v into %v", t.shape, shape)
	}
	out := t.Clone()
	out.shape = cloneShape(shape)
	return out, nil
}

// Transpose permutes the axes; a nil permutation reverses them.
func Transpose(t *Tensor, axes []int) (*Tensor, error) {
	n := len(t.shape)
	if axes == nil {
		axes = make([]int, n)
		for i := range axes {
			axes[i] = n - 1 - i
		}
	}
	if len(axes) != n {
		return nil, fmt.Errorf("tensor: axes %v do not match shape %v", axes, t.shape)
	}

	seen := make([]bool, n)
	outShape := make([]int, n)
	for i, ax := range axes {
		if ax < 0 || ax >= n || seen[ax] {
			return nil, fmt.Errorf("tensor: invalid axes permutation %v", axes)
		}
		seen[ax] = true
		outShape[i] = t.shape[ax]
	}

	out := &Tensor{kind: t.kind, shape: outShape}
	if t.kind == Int {
		out.ints = make([]int64, t.Size())
	} else {
		out.floats = make([]float64, t.Size())
	}
	for i := 0; i < t.Size(); i++ {
		coord := unravel(i, outShape)
		src := make([]int, n)
		for j, ax := range axes {
			src[ax] = coord[j]
		}
		flat := ravel(src, t.shape)
		if t.kind == Int {
			out.ints[i] = t.ints[flat]
		} else {
			out.floats[i] = t.floats[flat]
		}
	}
	return out, nil
}

// BroadcastTo materializes the tensor at a broadcast-compatible shape.
func BroadcastTo(t *Tensor, shape []int) (*Tensor, error) {
	common, err := broadcastShapes(t.shape, shape)
	if err != nil || len(common) != len(shape) {
		return nil, fmt.Errorf("tensor: cannot broadcast %v to %v", t.shape, shape)
	}
	for i := range shape {
		if common[i] != shape[i] {
			return nil, fmt.Errorf("tensor: cannot broadcast %v to %v", t.shape, shape)
		}
	}

	out := &Tensor{kind: t.kind, shape: cloneShape(shape)}
	n := sizeOf(shape)
	if t.kind == Int {
		out.ints = make([]int64, n)
	} else {
		out.floats = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		coord := unravel(i, shape)
		flat := broadcastIndex(coord, t.shape)
		if t.kind == Int {
			out.ints[i] = t.ints[flat]
		} else {
			out.floats[i] = t.floats[flat]
		}
	}
	return out, nil
}

// ExpandDims inserts a new axis of size one at the given position.
func ExpandDims(t *Tensor, axis int) (*Tensor, error) {
	n := len(t.shape)
	if axis < 0 {
		axis += n + 1
	}
	if axis < 0 || axis > n {
		return nil, fmt.Errorf("tensor: expand_dims axis %d out of range for shape %v", axis, t.shape)
	}
	shape := make([]int, 0, n+1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.shape[axis:]...)
	return Reshape(t, shape)
}

// Squeeze removes axes of size one; with a non-nil axis only that one.
func Squeeze(t *Tensor, axis *int) (*Tensor, error) {
	if axis != nil {
		ax := *axis
		if ax < 0 {
			ax += len(t.shape)
		}
		if ax < 0 || ax >= len(t.shape) || t.shape[ax] != 1 {
			return nil, fmt.Errorf("tensor: cannot squeeze axis %d of shape %v", *axis, t.shape)
		}
		shape := append(append([]int{}, t.shape[:ax]...), t.shape[ax+1:]...)
		return Reshape(t, shape)
	}

	var shape []int
	for _, d := range t.shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	return Reshape(t, shape)
}

// Matmul multiplies two tensors of rank one or two.
func Matmul(a, b *Tensor) (*Tensor, error) {
	if a.Ndim() == 0 || b.Ndim() == 0 {
		return nil, fmt.Errorf("tensor: matmul is not defined for scalars")
	}
	if a.Ndim() > 2 || b.Ndim() > 2 {
		return nil, fmt.Errorf("tensor: matmul supports rank one and two, got %v and %v", a.shape, b.shape)
	}

	// Rank-1 operands are treated as a row or column vector and the
	// corresponding axis is dropped from the result.
	am, bm := a, b
	var err error
	squeezeLeft, squeezeRight := false, false
	if am.Ndim() == 1 {
		if am, err = Reshape(a, []int{1, a.shape[0]}); err != nil {
			return nil, err
		}
		squeezeLeft = true
	}
	if bm.Ndim() == 1 {
		if bm, err = Reshape(b, []int{b.shape[0], 1}); err != nil {
			return nil, err
		}
		squeezeRight = true
	}

	m, k := am.shape[0], am.shape[1]
	k2, n := bm.shape[0], bm.shape[1]
	if k != k2 {
		return nil, fmt.Errorf("tensor: matmul shapes %v and %v are not aligned", a.shape, b.shape)
	}

	isInt := am.kind == Int && bm.kind == Int
	out := &Tensor{shape: []int{m, n}}
	if isInt {
		out.kind = Int
		out.ints = make([]int64, m*n)
	} else {
		out.kind = Float
		out.floats = make([]float64, m*n)
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if isInt {
				var acc int64
				for l := 0; l < k; l++ {
					acc += am.ints[i*k+l] * bm.ints[l*n+j]
				}
				out.ints[i*n+j] = acc
			} else {
				var acc float64
				for l := 0; l < k; l++ {
					acc += am.FloatAt(i*k+l) * bm.FloatAt(l*n+j)
				}
				out.floats[i*n+j] = acc
			}
		}
	}

	shape := []int{m, n}
	if squeezeLeft {
		shape = shape[1:]
	}
	if squeezeRight {
		shape = shape[:len(shape)-1]
	}
	return Reshape(out, shape)
}

// Dot is matmul for tensors, scalar multiplication when either operand is
// a scalar.
func Dot(a, b *Tensor) (*Tensor, error) {
	if a.Ndim() == 0 || b.Ndim() == 0 {
		return Mul(a, b)
	}
	if a.Ndim() == 1 && b.Ndim() == 1 {
		prod, err := Mul(a, b)
		if err != nil {
			return nil, err
		}
		return Sum(prod, nil, false)
	}
	return Matmul(a, b)
}

// Lookup gathers table[index] elementwise: the result has the index's
// shape, and the table is addressed along its first axis.
func Lookup(table, index *Tensor) (*Tensor, error) {
	if table.kind != Int || index.kind != Int {
		return nil, fmt.Errorf("tensor: lookup requires integer table and index")
	}
	if table.Ndim() != 1 {
		return nil, fmt.Errorf("tensor: lookup table must have a single dimension, got shape %v", table.shape)
	}

	data := make([]int64, index.Size())
	for i, v := range index.ints {
		if v < 0 || int(v) >= table.shape[0] {
			return nil, fmt.Errorf("tensor: lookup index %d out of range for table of size %d", v, table.shape[0])
		}
		data[i] = table.ints[v]
	}
	return NewInt(index.shape, data), nil
}
