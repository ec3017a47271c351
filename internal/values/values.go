// Package values describes the numeric type, shape and encryption status
// of every quantity flowing through a computation graph.
package values

import (
	"fmt"
	"strings"

	"lutra/internal/tensor"
)

// Description is the value descriptor attached to graph nodes: what kind
// of number it is, what shape it has, and whether it is encrypted.
type Description struct {
	Dtype       DataType
	Shape       []int
	IsEncrypted bool
}

// Of describes a concrete tensor. Integer tensors get the smallest
// integer type that covers their actual values; float tensors are
// described as 64-bit floats.
func Of(t *tensor.Tensor) Description {
	var dtype DataType
	if t.Kind() == tensor.Int {
		lo, hi := t.MinMaxInt()
		dtype = IntegerThatCanRepresent(lo, hi)
	} else {
		dtype = Float{Width: 64}
	}
	return Description{Dtype: dtype, Shape: cloneShape(t.Shape())}
}

// IsScalar reports whether the description is for an unshaped value.
func (d Description) IsScalar() bool {
	return len(d.Shape) == 0
}

// IsClear reports whether the described value is not encrypted.
func (d Description) IsClear() bool {
	return !d.IsEncrypted
}

// Ndim returns the number of dimensions.
func (d Description) Ndim() int {
	return len(d.Shape)
}

// Size returns the number of elements.
func (d Description) Size() int {
	n := 1
	for _, dim := range d.Shape {
		n *= dim
	}
	return n
}

// IsInteger reports whether the described value is an integer.
func (d Description) IsInteger() bool {
	_, ok := d.Dtype.(Integer)
	return ok
}

// IsFloat reports whether the described value is a float.
func (d Description) IsFloat() bool {
	_, ok := d.Dtype.(Float)
	return ok
}

// TensorKind maps the description's data type to the tensor element kind
// used when sampling representative data.
func (d Description) TensorKind() tensor.Kind {
	if _, ok := d.Dtype.(Float); ok {
		return tensor.Float
	}
	return tensor.Int
}

// Clone returns a deep copy of the description. Operand descriptions are
// copied into nodes so later mutation cannot rewrite history.
func (d Description) Clone() Description {
	return Description{Dtype: d.Dtype, Shape: cloneShape(d.Shape), IsEncrypted: d.IsEncrypted}
}

func (d Description) String() string {
	visibility := "Clear"
	if d.IsEncrypted {
		visibility = "Encrypted"
	}
	if d.IsScalar() {
		return fmt.Sprintf("%sScalar<%s>", visibility, d.Dtype)
	}

	dims := make([]string, len(d.Shape))
	for i, dim := range d.Shape {
		dims[i] = fmt.Sprintf("%d", dim)
	}
	return fmt.Sprintf("%sTensor<%s, shape=(%s)>", visibility, d.Dtype, strings.Join(dims, ", "))
}

// Equal reports whether two descriptions are identical.
func (d Description) Equal(other Description) bool {
	if d.Dtype != other.Dtype || d.IsEncrypted != other.IsEncrypted {
		return false
	}
	if len(d.Shape) != len(other.Shape) {
		return false
	}
	for i := range d.Shape {
		if d.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// SameShape reports whether two descriptions share a shape.
func (d Description) SameShape(other Description) bool {
	if len(d.Shape) != len(other.Shape) {
		return false
	}
	for i := range d.Shape {
		if d.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

func cloneShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	return append([]int(nil), shape...)
}

// EncryptedScalar describes an encrypted scalar of the given dtype.
func EncryptedScalar(dtype DataType) Description {
	return Description{Dtype: dtype, IsEncrypted: true}
}

// ClearScalar describes a clear scalar of the given dtype.
func ClearScalar(dtype DataType) Description {
	return Description{Dtype: dtype}
}

// EncryptedTensor describes an encrypted tensor of the given dtype and shape.
func EncryptedTensor(dtype DataType, shape ...int) Description {
	return Description{Dtype: dtype, Shape: shape, IsEncrypted: true}
}

// ClearTensor describes a clear tensor of the given dtype and shape.
func ClearTensor(dtype DataType, shape ...int) Description {
	return Description{Dtype: dtype, Shape: shape}
}
