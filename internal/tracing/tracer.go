package tracing

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/tensor"
	"lutra/internal/values"
)

// Tracer is a symbolic value. Operations on it do not compute anything,
// they record nodes into the graph under construction and return new
// Tracers wrapping those nodes. Operation methods report violations by
// panicking with a CompilerError, which Trace recovers into an error.
type Tracer struct {
	session *session
	id      graph.NodeID
	output  values.Description
}

// Output returns the value description the tracer stands for.
func (t *Tracer) Output() values.Description {
	return t.resolve().output
}

// resolve follows the assignment version table to the tracer's newest
// version. Every read goes through here, so code that assigned into a
// tensor keeps observing the updated value.
func (t *Tracer) resolve() *Tracer {
	current := t
	for {
		next, ok := current.session.versions[current.id]
		if !ok {
			return current
		}
		current = next
	}
}

// Bool panics: a traced value has no concrete truth value, so using one
// as a branch condition can never work.
func (t *Tracer) Bool() bool {
	panic(errors.BranchingNotAllowed())
}

// sanitize turns a literal operand into a constant-backed tracer.
// Tracers pass through after version resolution.
func (t *Tracer) sanitize(operand any) *Tracer {
	return t.session.sanitize(operand)
}

func (s *session) sanitize(operand any) *Tracer {
	switch v := operand.(type) {
	case *Tracer:
		return v.resolve()
	case *tensor.Tensor:
		return s.constant(v)
	case int:
		return s.constant(tensor.IntScalar(int64(v)))
	case int64:
		return s.constant(tensor.IntScalar(v))
	case float64:
		return s.constant(tensor.FloatScalar(v))
	case []int64:
		return s.constant(tensor.NewInt([]int{len(v)}, v))
	case []float64:
		return s.constant(tensor.NewFloat([]int{len(v)}, v))
	default:
		panic(errors.NewError(errors.ErrorUnsupportedOperation,
			fmt.Sprintf("%T cannot be used as an operand", operand)).
			WithHelp("operands can be tracers, tensors, ints or floats").
			Build())
	}
}

func (s *session) constant(value *tensor.Tensor) *Tracer {
	node := graph.NewConstant(value)
	node.Location = callerLocation()
	node.Tag = s.tag
	id := s.graph.AddNode(node)
	return &Tracer{session: s, id: id, output: node.Output}
}

// apply records one operation over the given operands. Operand
// descriptions are deep copied into the node and the output description
// is computed by evaluating the operation on sampled data of matching
// shape and dtype.
func (s *session) apply(operation string, operands []*Tracer, kwargs Kwargs) *Tracer {
	spec, ok := supportedOperations[operation]
	if !ok {
		panic(errors.UnsupportedOperation(operation, supportedOperationNames()))
	}
	for key := range kwargs {
		if !contains(spec.kwargs, key) {
			panic(errors.UnsupportedKwarg(operation, key, spec.kwargs))
		}
	}

	inputs := make([]values.Description, len(operands))
	samples := make([]*tensor.Tensor, len(operands))
	encrypted := false
	for i, operand := range operands {
		inputs[i] = operand.output.Clone()
		samples[i] = sample(operand.output)
		encrypted = encrypted || operand.output.IsEncrypted
	}

	result, err := spec.evaluate(samples, kwargs)
	if err != nil {
		panic(errors.NewError(errors.ErrorUnsupportedOperation,
			fmt.Sprintf("operation '%s' cannot be applied: %v", operation, err)).
			WithLocation(callerLocation()).
			Build())
	}

	output := values.Of(result)
	output.IsEncrypted = encrypted

	evaluate := spec.evaluate
	node := graph.NewGeneric(operation, inputs, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return evaluate(concrete, kwargs)
		})
	node.Fusable = spec.fusable
	node.Location = callerLocation()
	node.Tag = s.tag
	if len(kwargs) > 0 {
		node.Attributes = map[string]any{}
		for key, value := range kwargs {
			node.Attributes[key] = value
		}
	}

	return s.record(node, operands)
}

// record moves the node into the arena and wires its operand edges.
func (s *session) record(node *graph.Node, operands []*Tracer) *Tracer {
	id := s.graph.AddNode(node)
	for i, operand := range operands {
		if err := s.graph.AddEdge(operand.id, id, i); err != nil {
			panic(errors.NewError(errors.ErrorUnsupportedOperation, err.Error()).Build())
		}
	}
	s.logger.Debugf("recorded %s as node %d", node.Label(nil), int(id))
	return &Tracer{session: s, id: id, output: node.Output}
}

// sample builds representative concrete data for a description: an array
// of ones with the description's shape and element kind.
func sample(description values.Description) *tensor.Tensor {
	return tensor.Ones(description.Shape, description.TensorKind())
}

func contains(list []string, item string) bool {
	for _, candidate := range list {
		if candidate == item {
			return true
		}
	}
	return false
}

// callerLocation returns the first call site outside this package,
// as file:line.
func callerLocation() string {
	for skip := 2; skip < 16; skip++ {
		pc, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && strings.Contains(fn.Name(), "lutra/internal/tracing") {
			continue
		}
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return "unknown"
}

// Binary arithmetic

func (t *Tracer) Add(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("add", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Sub(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("subtract", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) RSub(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("subtract", []*Tracer{u.sanitize(other), u}, nil)
}

func (t *Tracer) Mul(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("multiply", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Div(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("true_divide", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) RDiv(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("true_divide", []*Tracer{u.sanitize(other), u}, nil)
}

func (t *Tracer) FloorDiv(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("floor_divide", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Mod(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("mod", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Pow(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("power", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) MatMul(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("matmul", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Dot(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("dot", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Maximum(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("maximum", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Minimum(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("minimum", []*Tracer{u, u.sanitize(other)}, nil)
}

// Comparisons

func (t *Tracer) Gt(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("greater", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Ge(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("greater_equal", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Lt(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("less", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Le(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("less_equal", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Eq(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("equal", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) Ne(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("not_equal", []*Tracer{u, u.sanitize(other)}, nil)
}

// Bitwise

func (t *Tracer) BitAnd(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("bitwise_and", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) BitOr(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("bitwise_or", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) BitXor(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("bitwise_xor", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) LShift(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("left_shift", []*Tracer{u, u.sanitize(other)}, nil)
}

func (t *Tracer) RShift(other any) *Tracer {
	u := t.resolve()
	return u.session.apply("right_shift", []*Tracer{u, u.sanitize(other)}, nil)
}

// Unary

func (t *Tracer) Neg() *Tracer {
	u := t.resolve()
	return u.session.apply("negative", []*Tracer{u}, nil)
}

// Pos is the identity, recorded for parity with the unary plus operator.
func (t *Tracer) Pos() *Tracer {
	return t.resolve()
}

func (t *Tracer) Abs() *Tracer {
	u := t.resolve()
	return u.session.apply("absolute", []*Tracer{u}, nil)
}

func (t *Tracer) Invert() *Tracer {
	u := t.resolve()
	return u.session.apply("invert", []*Tracer{u}, nil)
}

func (t *Tracer) Square() *Tracer {
	u := t.resolve()
	return u.session.apply("square", []*Tracer{u}, nil)
}

// Shaping

func (t *Tracer) Reshape(shape ...int) *Tracer {
	u := t.resolve()
	return u.session.apply("reshape", []*Tracer{u}, Kwargs{"newshape": shape})
}

func (t *Tracer) Flatten() *Tracer {
	u := t.resolve()
	return u.session.apply("reshape", []*Tracer{u}, Kwargs{"newshape": []int{u.output.Size()}})
}

func (t *Tracer) Transpose(axes ...int) *Tracer {
	u := t.resolve()
	kwargs := Kwargs{}
	if len(axes) > 0 {
		kwargs["axes"] = axes
	}
	return u.session.apply("transpose", []*Tracer{u}, kwargs)
}

func (t *Tracer) BroadcastTo(shape ...int) *Tracer {
	u := t.resolve()
	return u.session.apply("broadcast_to", []*Tracer{u}, Kwargs{"shape": shape})
}

func (t *Tracer) ExpandDims(axis int) *Tracer {
	u := t.resolve()
	return u.session.apply("expand_dims", []*Tracer{u}, Kwargs{"axis": axis})
}

func (t *Tracer) Squeeze(kwargs Kwargs) *Tracer {
	u := t.resolve()
	return u.session.apply("squeeze", []*Tracer{u}, kwargs)
}

// Reductions, kwargs accept axis and keepdims.

func (t *Tracer) Sum(kwargs Kwargs) *Tracer {
	u := t.resolve()
	return u.session.apply("sum", []*Tracer{u}, kwargs)
}

func (t *Tracer) Min(kwargs Kwargs) *Tracer {
	u := t.resolve()
	return u.session.apply("min", []*Tracer{u}, kwargs)
}

func (t *Tracer) Max(kwargs Kwargs) *Tracer {
	u := t.resolve()
	return u.session.apply("max", []*Tracer{u}, kwargs)
}

// Misc

func (t *Tracer) Clip(lo, hi any) *Tracer {
	u := t.resolve()
	return u.session.apply("clip", []*Tracer{u, u.sanitize(lo), u.sanitize(hi)}, nil)
}

func (t *Tracer) Round(decimals int) *Tracer {
	u := t.resolve()
	return u.session.apply("round", []*Tracer{u}, Kwargs{"decimals": decimals})
}

// Where selects elementwise from a or b depending on the condition.
func Where(condition *Tracer, a, b any) *Tracer {
	u := condition.resolve()
	return u.session.apply("where", []*Tracer{u, u.sanitize(a), u.sanitize(b)}, nil)
}

// Apply records a named operation on the tracer. This is how float
// functions like exp, sin or sqrt are traced.
func (t *Tracer) Apply(operation string, kwargs Kwargs) *Tracer {
	u := t.resolve()
	return u.session.apply(operation, []*Tracer{u}, kwargs)
}

// Astype casts the tracer to another dtype. Unlike other operations the
// output dtype is taken from the argument, not derived from sampling.
func (t *Tracer) Astype(dtype values.DataType) *Tracer {
	u := t.resolve()

	kind := tensor.Int
	if _, ok := dtype.(values.Float); ok {
		kind = tensor.Float
	}

	output := values.Description{
		Dtype:       dtype,
		Shape:       u.output.Clone().Shape,
		IsEncrypted: u.output.IsEncrypted,
	}

	node := graph.NewGeneric("astype",
		[]values.Description{u.output.Clone()}, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.AsType(concrete[0], kind)
		})
	node.Location = callerLocation()
	node.Tag = u.session.tag
	node.Attributes = map[string]any{"dtype": dtype}

	return u.session.record(node, []*Tracer{u})
}

// Multivariate records a lookup over several variable inputs evaluated by
// the given function. Such nodes natively accept multiple inputs and are
// never fused into a wider region.
func Multivariate(evaluate graph.Evaluator, operands ...*Tracer) *Tracer {
	if len(operands) == 0 {
		panic(errors.NewError(errors.ErrorUnsupportedOperation,
			"multivariate requires at least one operand").Build())
	}

	resolved := make([]*Tracer, len(operands))
	inputs := make([]values.Description, len(operands))
	samples := make([]*tensor.Tensor, len(operands))
	encrypted := false
	for i, operand := range operands {
		resolved[i] = operand.resolve()
		inputs[i] = resolved[i].output.Clone()
		samples[i] = sample(resolved[i].output)
		encrypted = encrypted || resolved[i].output.IsEncrypted
	}

	result, err := evaluate(samples)
	if err != nil {
		panic(errors.NewError(errors.ErrorUnsupportedOperation,
			fmt.Sprintf("multivariate function cannot be applied: %v", err)).
			WithLocation(callerLocation()).
			Build())
	}

	output := values.Of(result)
	output.IsEncrypted = encrypted

	s := resolved[0].session
	node := graph.NewGeneric("multivariate", inputs, output, evaluate)
	node.Location = callerLocation()
	node.Tag = s.tag
	return s.record(node, resolved)
}
