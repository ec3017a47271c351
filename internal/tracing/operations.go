package tracing

import (
	"fmt"
	"math"
	"sort"

	"lutra/internal/tensor"
)

// Kwargs carries the keyword arguments of a traced operation. Every key is
// validated against the operation's accepted set before the operation is
// recorded.
type Kwargs map[string]any

// operationSpec describes one entry of the closed set of traceable
// operations.
type operationSpec struct {
	// kwargs is the accepted keyword argument set, nil means none.
	kwargs []string

	// fusable is false for operations that change the shape of their
	// input, those can never be absorbed into a lookup table.
	fusable bool

	// evaluate runs the operation over concrete operand tensors.
	evaluate func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error)
}

func binary(f func(a, b *tensor.Tensor) (*tensor.Tensor, error)) operationSpec {
	return operationSpec{
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return f(inputs[0], inputs[1])
		},
	}
}

func unary(f func(t *tensor.Tensor) *tensor.Tensor) operationSpec {
	return operationSpec{
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return f(inputs[0]), nil
		},
	}
}

func floatUnary(f func(float64) float64) operationSpec {
	return unary(func(t *tensor.Tensor) *tensor.Tensor {
		return tensor.MapFloat(t, f)
	})
}

func reduction(f func(t *tensor.Tensor, axis *int, keepdims bool) (*tensor.Tensor, error)) operationSpec {
	return operationSpec{
		kwargs:  []string{"axis", "keepdims"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			axis, keepdims, err := reductionKwargs(kwargs)
			if err != nil {
				return nil, err
			}
			return f(inputs[0], axis, keepdims)
		},
	}
}

func reductionKwargs(kwargs Kwargs) (*int, bool, error) {
	var axis *int
	if raw, ok := kwargs["axis"]; ok {
		value, ok := raw.(int)
		if !ok {
			return nil, false, fmt.Errorf("axis must be an int, got %T", raw)
		}
		axis = &value
	}
	keepdims := false
	if raw, ok := kwargs["keepdims"]; ok {
		value, ok := raw.(bool)
		if !ok {
			return nil, false, fmt.Errorf("keepdims must be a bool, got %T", raw)
		}
		keepdims = value
	}
	return axis, keepdims, nil
}

// supportedOperations is the closed set of operations the tracer records.
// Anything else fails at trace time with an unsupported-operation error.
var supportedOperations = map[string]operationSpec{
	"add":           binary(tensor.Add),
	"subtract":      binary(tensor.Sub),
	"multiply":      binary(tensor.Mul),
	"true_divide":   binary(tensor.TrueDiv),
	"floor_divide":  binary(tensor.FloorDiv),
	"mod":           binary(tensor.Mod),
	"power":         binary(tensor.Pow),
	"maximum":       binary(tensor.Maximum),
	"minimum":       binary(tensor.Minimum),
	"greater":       binary(tensor.Greater),
	"greater_equal": binary(tensor.GreaterEqual),
	"less":          binary(tensor.Less),
	"less_equal":    binary(tensor.LessEqual),
	"equal":         binary(tensor.Equal),
	"not_equal":     binary(tensor.NotEqual),
	"bitwise_and":   binary(tensor.BitAnd),
	"bitwise_or":    binary(tensor.BitOr),
	"bitwise_xor":   binary(tensor.BitXor),
	"left_shift":    binary(tensor.LShift),
	"right_shift":   binary(tensor.RShift),

	"negative": unary(tensor.Neg),
	"absolute": unary(tensor.Abs),
	"sign":     unary(tensor.Sign),
	"square":   unary(tensor.Square),
	"invert": {
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return tensor.Invert(inputs[0])
		},
	},

	"exp":    floatUnary(math.Exp),
	"expm1":  floatUnary(math.Expm1),
	"log":    floatUnary(math.Log),
	"log2":   floatUnary(math.Log2),
	"log10":  floatUnary(math.Log10),
	"log1p":  floatUnary(math.Log1p),
	"sin":    floatUnary(math.Sin),
	"cos":    floatUnary(math.Cos),
	"tan":    floatUnary(math.Tan),
	"arcsin": floatUnary(math.Asin),
	"arccos": floatUnary(math.Acos),
	"arctan": floatUnary(math.Atan),
	"sinh":   floatUnary(math.Sinh),
	"cosh":   floatUnary(math.Cosh),
	"tanh":   floatUnary(math.Tanh),
	"sqrt":   floatUnary(math.Sqrt),
	"cbrt":   floatUnary(math.Cbrt),
	"floor":  floatUnary(math.Floor),
	"ceil":   floatUnary(math.Ceil),
	"trunc":  floatUnary(math.Trunc),

	"round": {
		kwargs:  []string{"decimals"},
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			decimals := 0
			if raw, ok := kwargs["decimals"]; ok {
				value, ok := raw.(int)
				if !ok {
					return nil, fmt.Errorf("decimals must be an int, got %T", raw)
				}
				decimals = value
			}
			return tensor.Round(inputs[0], decimals), nil
		},
	},

	"clip": {
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return tensor.Clip(inputs[0], inputs[1], inputs[2])
		},
	},
	"where": {
		fusable: true,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return tensor.Where(inputs[0], inputs[1], inputs[2])
		},
	},

	"sum": reduction(tensor.Sum),
	"min": reduction(tensor.Min),
	"max": reduction(tensor.Max),

	"matmul": {
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return tensor.Matmul(inputs[0], inputs[1])
		},
	},
	"dot": {
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, _ Kwargs) (*tensor.Tensor, error) {
			return tensor.Dot(inputs[0], inputs[1])
		},
	},

	"reshape": {
		kwargs:  []string{"newshape"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			shape, err := shapeKwarg(kwargs, "newshape")
			if err != nil {
				return nil, err
			}
			return tensor.Reshape(inputs[0], shape)
		},
	},
	"transpose": {
		kwargs:  []string{"axes"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			var axes []int
			if raw, ok := kwargs["axes"]; ok {
				axes, ok = raw.([]int)
				if !ok {
					return nil, fmt.Errorf("axes must be a list of ints, got %T", raw)
				}
			}
			return tensor.Transpose(inputs[0], axes)
		},
	},
	"broadcast_to": {
		kwargs:  []string{"shape"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			shape, err := shapeKwarg(kwargs, "shape")
			if err != nil {
				return nil, err
			}
			return tensor.BroadcastTo(inputs[0], shape)
		},
	},
	"expand_dims": {
		kwargs:  []string{"axis"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			raw, ok := kwargs["axis"]
			if !ok {
				return nil, fmt.Errorf("expand_dims requires axis")
			}
			axis, ok := raw.(int)
			if !ok {
				return nil, fmt.Errorf("axis must be an int, got %T", raw)
			}
			return tensor.ExpandDims(inputs[0], axis)
		},
	},
	"squeeze": {
		kwargs:  []string{"axis"},
		fusable: false,
		evaluate: func(inputs []*tensor.Tensor, kwargs Kwargs) (*tensor.Tensor, error) {
			var axis *int
			if raw, ok := kwargs["axis"]; ok {
				value, ok := raw.(int)
				if !ok {
					return nil, fmt.Errorf("axis must be an int, got %T", raw)
				}
				axis = &value
			}
			return tensor.Squeeze(inputs[0], axis)
		},
	},
}

func shapeKwarg(kwargs Kwargs, name string) ([]int, error) {
	raw, ok := kwargs[name]
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	shape, ok := raw.([]int)
	if !ok {
		return nil, fmt.Errorf("%s must be a list of ints, got %T", name, raw)
	}
	return shape, nil
}

// supportedOperationNames returns the traceable operation names, sorted.
func supportedOperationNames() []string {
	names := make([]string, 0, len(supportedOperations))
	for name := range supportedOperations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
