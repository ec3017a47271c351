package tensor

import (
	"fmt"
	"math"
)

// broadcastShapes computes the common shape of two operands under the
// usual elementwise broadcasting rules.
func broadcastShapes(a, b []int) ([]int, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 1; i <= n; i++ {
		da, db := 1, 1
		if i <= len(a) {
			da = a[len(a)-i]
		}
		if i <= len(b) {
			db = b[len(b)-i]
		}
		switch {
		case da == db:
			out[n-i] = da
		case da == 1:
			out[n-i] = db
		case db == 1:
			out[n-i] = da
		default:
			return nil, fmt.Errorf("tensor: shapes %v and %v are not broadcastable", a, b)
		}
	}
	return out, nil
}

// broadcastIndex maps a coordinate in the broadcast shape back to a flat
// index in the operand's own shape.
func broadcastIndex(coord []int, shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	idx := make([]int, len(shape))
	offset := len(coord) - len(shape)
	for i := range shape {
		v := coord[offset+i]
		if shape[i] == 1 {
			v = 0
		}
		idx[i] = v
	}
	return ravel(idx, shape)
}

type binaryInt func(x, y int64) int64
type binaryFloat func(x, y float64) float64

// elementwise applies a broadcast binary operation, producing an integer
// tensor when both operands are integers and a float tensor otherwise.
func elementwise(a, b *Tensor, fi binaryInt, ff binaryFloat) (*Tensor, error) {
	shape, err := broadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}

	n := sizeOf(shape)
	if a.kind == Int && b.kind == Int && fi != nil {
		data := make([]int64, n)
		for i := 0; i < n; i++ {
			coord := unravel(i, shape)
			data[i] = fi(a.ints[broadcastIndex(coord, a.shape)], b.ints[broadcastIndex(coord, b.shape)])
		}
		return NewInt(shape, data), nil
	}

	data := make([]float64, n)
	for i := 0; i < n; i++ {
		coord := unravel(i, shape)
		data[i] = ff(a.FloatAt(broadcastIndex(coord, a.shape)), b.FloatAt(broadcastIndex(coord, b.shape)))
	}
	return NewFloat(shape, data), nil
}

// compare applies a broadcast predicate, producing a 0/1 integer tensor.
func compare(a, b *Tensor, pred func(x, y float64) bool) (*Tensor, error) {
	shape, err := broadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}

	n := sizeOf(shape)
	data := make([]int64, n)
	for i := 0; i < n; i++ {
		coord := unravel(i, shape)
		if pred(a.FloatAt(broadcastIndex(coord, a.shape)), b.FloatAt(broadcastIndex(coord, b.shape))) {
			data[i] = 1
		}
	}
	return NewInt(shape, data), nil
}

// bitwise applies a broadcast integer-only operation.
func bitwise(name string, a, b *Tensor, fi binaryInt) (*Tensor, error) {
	if a.kind != Int || b.kind != Int {
		return nil, fmt.Errorf("tensor: %s requires integer operands", name)
	}
	return elementwise(a, b, fi, nil)
}

func Add(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

func Sub(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

func Mul(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// TrueDiv always produces a float tensor, like numpy's true division.
func TrueDiv(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b, nil,
		func(x, y float64) float64 { return x / y })
}

// FloorDiv floors towards negative infinity, like numpy's floor division.
func FloorDiv(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return floorDivInt(x, y) },
		func(x, y float64) float64 { return math.Floor(x / y) })
}

func floorDivInt(x, y int64) int64 {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

// Mod follows numpy's remainder: the result takes the sign of the divisor.
func Mod(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return x - floorDivInt(x, y)*y },
		func(x, y float64) float64 { return x - math.Floor(x/y)*y })
}

func Pow(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return powInt(x, y) },
		func(x, y float64) float64 { return math.Pow(x, y) })
}

func powInt(x, y int64) int64 {
	if y < 0 {
		return 0
	}
	result := int64(1)
	for ; y > 0; y-- {
		result *= x
	}
	return result
}

func Maximum(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return max(x, y) },
		math.Max)
}

func Minimum(a, b *Tensor) (*Tensor, error) {
	return elementwise(a, b,
		func(x, y int64) int64 { return min(x, y) },
		math.Min)
}

func Greater(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x > y })
}

func GreaterEqual(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x >= y })
}

func Less(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x < y })
}

func LessEqual(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x <= y })
}

func Equal(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x == y })
}

func NotEqual(a, b *Tensor) (*Tensor, error) {
	return compare(a, b, func(x, y float64) bool { return x != y })
}

func BitAnd(a, b *Tensor) (*Tensor, error) {
	return bitwise("bitwise_and", a, b, func(x, y int64) int64 { return x & y })
}

func BitOr(a, b *Tensor) (*Tensor, error) {
	return bitwise("bitwise_or", a, b, func(x, y int64) int64 { return x | y })
}

func BitXor(a, b *Tensor) (*Tensor, error) {
	return bitwise("bitwise_xor", a, b, func(x, y int64) int64 { return x ^ y })
}

func LShift(a, b *Tensor) (*Tensor, error) {
	return bitwise("left_shift", a, b, func(x, y int64) int64 { return x << uint64(y) })
}

func RShift(a, b *Tensor) (*Tensor, error) {
	return bitwise("right_shift", a, b, func(x, y int64) int64 { return x >> uint64(y) })
}

// Clip bounds every element between lo and hi, both broadcastable.
func Clip(t, lo, hi *Tensor) (*Tensor, error) {
	clipped, err := Minimum(t, hi)
	if err != nil {
		return nil, err
	}
	return Maximum(clipped, lo)
}

// Where selects from a or b depending on cond, all broadcastable.
func Where(cond, a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShapes(cond.shape, a.shape)
	if err != nil {
		return nil, err
	}
	shape, err = broadcastShapes(shape, b.shape)
	if err != nil {
		return nil, err
	}

	n := sizeOf(shape)
	if a.kind == Int && b.kind == Int {
		data := make([]int64, n)
		for i := 0; i < n; i++ {
			coord := unravel(i, shape)
			if cond.IntAt(broadcastIndex(coord, cond.shape)) != 0 {
				data[i] = a.ints[broadcastIndex(coord, a.shape)]
			} else {
				data[i] = b.ints[broadcastIndex(coord, b.shape)]
			}
		}
		return NewInt(shape, data), nil
	}

	data := make([]float64, n)
	for i := 0; i < n; i++ {
		coord := unravel(i, shape)
		if cond.IntAt(broadcastIndex(coord, cond.shape)) != 0 {
			data[i] = a.FloatAt(broadcastIndex(coord, a.shape))
		} else {
			data[i] = b.FloatAt(broadcastIndex(coord, b.shape))
		}
	}
	return NewFloat(shape, data), nil
}

func Neg(t *Tensor) *Tensor {
	return mapElem(t,
		func(x int64) int64 { return -x },
		func(x float64) float64 { return -x })
}

func Abs(t *Tensor) *Tensor {
	return mapElem(t,
		func(x int64) int64 {
			if x < 0 {
				return -x
			}
			return x
		},
		math.Abs)
}

func Sign(t *Tensor) *Tensor {
	return mapElem(t,
		func(x int64) int64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return 0
		},
		func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return 0
		})
}

func Square(t *Tensor) *Tensor {
	return mapElem(t,
		func(x int64) int64 { return x * x },
		func(x float64) float64 { return x * x })
}

// Invert is the bitwise complement, defined for integer tensors only.
func Invert(t *Tensor) (*Tensor, error) {
	if t.kind != Int {
		return nil, fmt.Errorf("tensor: invert requires an integer operand")
	}
	return mapElem(t, func(x int64) int64 { return ^x }, nil), nil
}

// MapFloat applies a float function elementwise, producing a float tensor.
func MapFloat(t *Tensor, f func(float64) float64) *Tensor {
	data := make([]float64, t.Size())
	for i := range data {
		data[i] = f(t.FloatAt(i))
	}
	return NewFloat(t.shape, data)
}

// Round rounds half to even at the given number of decimals, keeping the
// operand's kind like numpy's around.
func Round(t *Tensor, decimals int) *Tensor {
	if t.kind == Int && decimals >= 0 {
		return t.Clone()
	}
	scale := math.Pow(10, float64(decimals))
	return mapElem(t,
		func(x int64) int64 { return int64(math.RoundToEven(float64(x)*scale) / scale) },
		func(x float64) float64 { return math.RoundToEven(x*scale) / scale })
}

func mapElem(t *Tensor, fi func(int64) int64, ff func(float64) float64) *Tensor {
	if t.kind == Int && fi != nil {
		data := make([]int64, len(t.ints))
		for i, v := range t.ints {
			data[i] = fi(v)
		}
		return NewInt(t.shape, data)
	}
	data := make([]float64, t.Size())
	for i := range data {
		data[i] = ff(t.FloatAt(i))
	}
	return NewFloat(t.shape, data)
}

// AsType converts the tensor to the target kind; float to int truncates
// towards zero.
func AsType(t *Tensor, kind Kind) (*Tensor, error) {
	if t.kind == kind {
		return t.Clone(), nil
	}
	if kind == Float {
		data := make([]float64, t.Size())
		for i := range data {
			data[i] = float64(t.ints[i])
		}
		return NewFloat(t.shape, data), nil
	}
	data := make([]int64, t.Size())
	for i := range data {
		v := t.floats[i]
		if math.IsNaN(v) {
			return nil, fmt.Errorf("tensor: NaN cannot be converted to integer")
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("tensor: Inf cannot be converted to integer")
		}
		data[i] = int64(math.Trunc(v))
	}
	return NewInt(t.shape, data), nil
}

// Sum reduces over the given axis, or over all elements when axis is nil.
func Sum(t *Tensor, axis *int, keepdims bool) (*Tensor, error) {
	return reduce(t, axis, keepdims,
		func(acc, v int64) int64 { return acc + v },
		func(acc, v float64) float64 { return acc + v },
		0, 0)
}

// Min reduces to the minimum over the given axis, or over all elements.
func Min(t *Tensor, axis *int, keepdims bool) (*Tensor, error) {
	return reduce(t, axis, keepdims,
		func(acc, v int64) int64 { return min(acc, v) },
		math.Min,
		math.MaxInt64, math.Inf(1))
}

// Max reduces to the maximum over the given axis, or over all elements.
func Max(t *Tensor, axis *int, keepdims bool) (*Tensor, error) {
	return reduce(t, axis, keepdims,
		func(acc, v int64) int64 { return max(acc, v) },
		math.Max,
		math.MinInt64, math.Inf(-1))
}

func reduce(
	t *Tensor,
	axis *int,
	keepdims bool,
	fi binaryInt,
	ff binaryFloat,
	initInt int64,
	initFloat float64,
) (*Tensor, error) {
	if axis == nil {
		var shape []int
		if keepdims {
			shape = make([]int, len(t.shape))
			for i := range shape {
				shape[i] = 1
			}
		}
		if t.kind == Int {
			acc := initInt
			for _, v := range t.ints {
				acc = fi(acc, v)
			}
			return Full(shape, Int, acc), nil
		}
		acc := initFloat
		for _, v := range t.floats {
			acc = ff(acc, v)
		}
		out := Full(shape, Float, 0)
		for i := range out.floats {
			out.floats[i] = acc
		}
		return out, nil
	}

	ax := *axis
	if ax < 0 {
		ax += len(t.shape)
	}
	if ax < 0 || ax >= len(t.shape) {
		return nil, fmt.Errorf("tensor: axis %d out of range for shape %v", *axis, t.shape)
	}

	outShape := make([]int, 0, len(t.shape))
	for i, d := range t.shape {
		if i == ax {
			if keepdims {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, d)
	}

	reducedShape := append(append([]int{}, t.shape[:ax]...), t.shape[ax+1:]...)
	n := sizeOf(reducedShape)
	out := &Tensor{kind: t.kind, shape: outShape}
	if t.kind == Int {
		out.ints = make([]int64, n)
	} else {
		out.floats = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		coord := unravel(i, reducedShape)
		full := make([]int, len(t.shape))
		copy(full[:ax], coord[:ax])
		copy(full[ax+1:], coord[ax:])

		accInt := initInt
		accFloat := initFloat
		for j := 0; j < t.shape[ax]; j++ {
			full[ax] = j
			flat := ravel(full, t.shape)
			if t.kind == Int {
				accInt = fi(accInt, t.ints[flat])
			} else {
				accFloat = ff(accFloat, t.floats[flat])
			}
		}
		if t.kind == Int {
			out.ints[i] = accInt
		} else {
			out.floats[i] = accFloat
		}
	}
	return out, nil
}
