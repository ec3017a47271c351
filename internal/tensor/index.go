package tensor

import (
	"fmt"
)

// IndexElement is one component of a multi-dimensional index expression.
type IndexElement interface {
	isIndexElement()
	String() string
}

// IntElement selects a single position along an axis, dropping the axis.
type IntElement int64

func (IntElement) isIndexElement() {}

func (e IntElement) String() string {
	return fmt.Sprintf("%d", int64(e))
}

// SliceElement selects a range along an axis; nil bounds mean the axis
// default, like a Python slice.
type SliceElement struct {
	Start *int
	Stop  *int
	Step  *int
}

func (SliceElement) isIndexElement() {}

func (e SliceElement) String() string {
	format := func(v *int) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%d", *v)
	}
	if e.Step == nil {
		return fmt.Sprintf("%s:%s", format(e.Start), format(e.Stop))
	}
	return fmt.Sprintf("%s:%s:%s", format(e.Start), format(e.Stop), format(e.Step))
}

// TensorElement selects positions along an axis with an integer tensor.
// All tensor components of one index expression must share a shape and
// occupy adjacent axes.
type TensorElement struct {
	T *Tensor
}

func (TensorElement) isIndexElement() {}

func (e TensorElement) String() string {
	return e.T.String()
}

// resolvedAxis is the per-axis access plan computed from an index element.
type resolvedAxis struct {
	fixed   int   // used when positions and gather are nil
	list    []int // positions selected by a slice
	gather  *Tensor
	dropped bool
}

func resolveElements(shape []int, elements []IndexElement) ([]resolvedAxis, []int, int, error) {
	if len(elements) > len(shape) {
		return nil, nil, 0, fmt.Errorf("tensor: too many index elements (%d) for shape %v", len(elements), shape)
	}

	axes := make([]resolvedAxis, len(shape))
	var gatherShape []int
	firstGather := -1
	lastGather := -1

	for i := range shape {
		if i >= len(elements) {
			axes[i] = resolvedAxis{list: fullRange(shape[i])}
			continue
		}

		switch e := elements[i].(type) {
		case IntElement:
			v := int(e)
			if v < 0 {
				v += shape[i]
			}
			if v < 0 || v >= shape[i] {
				return nil, nil, 0, fmt.Errorf("tensor: index %d out of range for axis %d of shape %v", int(e), i, shape)
			}
			axes[i] = resolvedAxis{fixed: v, dropped: true}

		case SliceElement:
			list, err := slicePositions(e, shape[i])
			if err != nil {
				return nil, nil, 0, err
			}
			axes[i] = resolvedAxis{list: list}

		case TensorElement:
			if e.T.Kind() != Int {
				return nil, nil, 0, fmt.Errorf("tensor: index tensors must be integer typed")
			}
			if firstGather >= 0 {
				if lastGather != i-1 {
					return nil, nil, 0, fmt.Errorf("tensor: tensor index components must occupy adjacent axes")
				}
				if !sameShape(gatherShape, e.T.Shape()) {
					return nil, nil, 0, fmt.Errorf(
						"tensor: tensor index components must share a shape, got %v and %v",
						gatherShape, e.T.Shape(),
					)
				}
			} else {
				firstGather = i
				gatherShape = cloneShape(e.T.Shape())
			}
			lastGather = i
			axes[i] = resolvedAxis{gather: e.T}

		default:
			return nil, nil, 0, fmt.Errorf("tensor: unsupported index element %T", elements[i])
		}
	}

	return axes, gatherShape, firstGather, nil
}

// outputShape derives the indexed result's shape from the access plan.
func outputShape(axes []resolvedAxis, gatherShape []int, firstGather int) []int {
	var shape []int
	for i, ax := range axes {
		switch {
		case ax.dropped:
		case ax.gather != nil:
			if i == firstGather {
				shape = append(shape, gatherShape...)
			}
		default:
			shape = append(shape, len(ax.list))
		}
	}
	return shape
}

// sourceCoord maps an output coordinate back to a source coordinate.
func sourceCoord(
	axes []resolvedAxis,
	gatherShape []int,
	firstGather int,
	out []int,
	srcShape []int,
) ([]int, error) {
	src := make([]int, len(axes))
	cursor := 0
	var gatherCoord []int
	for i, ax := range axes {
		switch {
		case ax.dropped:
			src[i] = ax.fixed
		case ax.gather != nil:
			if i == firstGather {
				gatherCoord = out[cursor : cursor+len(gatherShape)]
				cursor += len(gatherShape)
			}
			v := int(ax.gather.ints[ravel(gatherCoord, gatherShape)])
			if v < 0 {
				v += srcShape[i]
			}
			if v < 0 || v >= srcShape[i] {
				return nil, fmt.Errorf("tensor: dynamic index %d out of range for axis %d of shape %v", v, i, srcShape)
			}
			src[i] = v
		default:
			src[i] = ax.list[out[cursor]]
			cursor++
		}
	}
	return src, nil
}

// Index applies a multi-dimensional index expression to a tensor.
func Index(t *Tensor, elements ...IndexElement) (*Tensor, error) {
	axes, gatherShape, firstGather, err := resolveElements(t.shape, elements)
	if err != nil {
		return nil, err
	}

	shape := outputShape(axes, gatherShape, firstGather)
	out := &Tensor{kind: t.kind, shape: shape}
	n := sizeOf(shape)
	if t.kind == Int {
		out.ints = make([]int64, n)
	} else {
		out.floats = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		src, err := sourceCoord(axes, gatherShape, firstGather, unravel(i, shape), t.shape)
		if err != nil {
			return nil, err
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

// Assign writes value, broadcast to the selected region, into a copy of
// the tensor and returns the copy.
func Assign(t *Tensor, elements []IndexElement, value *Tensor) (*Tensor, error) {
	axes, gatherShape, firstGather, err := resolveElements(t.shape, elements)
	if err != nil {
		return nil, err
	}

	region := outputShape(axes, gatherShape, firstGather)
	broadcast, err := BroadcastTo(value, region)
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	n := sizeOf(region)
	for i := 0; i < n; i++ {
		src, err := sourceCoord(axes, gatherShape, firstGather, unravel(i, region), t.shape)
		if err != nil {
			return nil, err
		}
		flat := ravel(src, t.shape)
		if out.kind == Int {
			out.ints[flat] = broadcast.IntAt(i)
		} else {
			out.floats[flat] = broadcast.FloatAt(i)
		}
	}
	return out, nil
}

func slicePositions(e SliceElement, size int) ([]int, error) {
	step := 1
	if e.Step != nil {
		step = *e.Step
	}
	if step == 0 {
		return nil, fmt.Errorf("tensor: slice step cannot be zero")
	}

	normalize := func(v int) int {
		if v < 0 {
			v += size
		}
		return v
	}

	lo, hi := boundsFor(step, size)
	var start, stop int
	if step > 0 {
		start, stop = 0, size
	} else {
		start, stop = size-1, -1
	}
	if e.Start != nil {
		start = clamp(normalize(*e.Start), lo, hi)
	}
	if e.Stop != nil {
		stop = clamp(normalize(*e.Stop), lo, hi)
	}

	var list []int
	if step > 0 {
		for v := start; v < stop; v += step {
			list = append(list, v)
		}
	} else {
		for v := start; v > stop; v += step {
			list = append(list, v)
		}
	}
	return list, nil
}

func boundsFor(step, size int) (int, int) {
	if step > 0 {
		return 0, size
	}
	return -1, size - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fullRange(size int) []int {
	list := make([]int, size)
	for i := range list {
		list[i] = i
	}
	return list
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
