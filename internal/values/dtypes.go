package values

import "fmt"

// DataType describes the numeric type of a value flowing through the graph.
// There are exactly two kinds: integers with an explicit bit width and
// signedness, and floats with an explicit bit width.
type DataType interface {
	BitWidth() int
	String() string
	isDataType()
}

// Integer is a signed or unsigned integer of a given bit width.
type Integer struct {
	Width    int
	IsSigned bool
}

func (Integer) isDataType() {}

// BitWidth returns the number of bits used by the type.
func (i Integer) BitWidth() int {
	return i.Width
}

// Min returns the minimum value representable by the type.
func (i Integer) Min() int64 {
	if !i.IsSigned {
		return 0
	}
	return -(int64(1) << (i.Width - 1))
}

// Max returns the maximum value representable by the type.
func (i Integer) Max() int64 {
	if i.IsSigned {
		return (int64(1) << (i.Width - 1)) - 1
	}
	return (int64(1) << i.Width) - 1
}

// CanRepresent reports whether value fits in the type.
func (i Integer) CanRepresent(value int64) bool {
	return value >= i.Min() && value <= i.Max()
}

func (i Integer) String() string {
	if i.IsSigned {
		return fmt.Sprintf("int%d", i.Width)
	}
	return fmt.Sprintf("uint%d", i.Width)
}

// Float is a floating point number of a given bit width.
type Float struct {
	Width int
}

func (Float) isDataType() {}

// BitWidth returns the number of bits used by the type.
func (f Float) BitWidth() int {
	return f.Width
}

func (f Float) String() string {
	return fmt.Sprintf("float%d", f.Width)
}

// Float64 is a shorthand constructor for the 64-bit float type.
func Float64() Float {
	return Float{Width: 64}
}

// SignedInteger is a shorthand constructor for a signed integer type.
func SignedInteger(width int) Integer {
	return Integer{Width: width, IsSigned: true}
}

// UnsignedInteger is a shorthand constructor for an unsigned integer type.
func UnsignedInteger(width int) Integer {
	return Integer{Width: width, IsSigned: false}
}

// IntegerThatCanRepresent returns the smallest integer type whose range
// covers every given value. The result is unsigned when no value is
// negative and signed otherwise.
func IntegerThatCanRepresent(vs ...int64) Integer {
	if len(vs) == 0 {
		return UnsignedInteger(1)
	}

	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	signed := lo < 0
	for width := 1; width < 64; width++ {
		candidate := Integer{Width: width, IsSigned: signed}
		if candidate.CanRepresent(lo) && candidate.CanRepresent(hi) {
			return candidate
		}
	}
	return Integer{Width: 64, IsSigned: signed}
}
