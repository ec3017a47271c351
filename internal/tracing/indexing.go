package tracing

import (
	"fmt"
	"strings"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/tensor"
	"lutra/internal/values"
)

// Element is one component of an index expression: a static integer, a
// static slice, or a tracer over clear integer data resolved at run time.
type Element interface {
	isElement()
}

// IntElement is a static integer index component.
type IntElement int64

func (IntElement) isElement() {}

// SliceElement is a static slice index component with optional bounds.
type SliceElement struct {
	Start, Stop, Step *int
}

func (SliceElement) isElement() {}

// TracerElement is a dynamic index component resolved at evaluation time.
type TracerElement struct {
	Tracer *Tracer
}

func (TracerElement) isElement() {}

// At is shorthand for a static integer component.
func At(i int) Element { return IntElement(i) }

// Span is shorthand for a static start:stop slice component.
func Span(start, stop int) Element {
	return SliceElement{Start: &start, Stop: &stop}
}

// All is shorthand for the full-axis slice component.
func All() Element { return SliceElement{} }

// Dyn is shorthand for a dynamic component.
func Dyn(t *Tracer) Element { return TracerElement{Tracer: t} }

// Index records an indexing operation on the tracer. All-static
// components compile to index_static; clear tracer components compile to
// index_dynamic; a clear table indexed by an encrypted value compiles to
// a direct table lookup.
func (t *Tracer) Index(elements ...Element) *Tracer {
	u := t.resolve()
	s := u.session

	if lookupIndex, ok := asTableLookup(u, elements); ok {
		return s.dynamicTLU(u, lookupIndex)
	}

	static, dynamic := splitElements(s, elements)

	for _, d := range dynamic {
		if d.output.IsEncrypted {
			panic(errors.InvalidIndexing(
				"an encrypted value cannot be an index component").
				At(callerLocation()))
		}
	}

	if len(dynamic) == 0 {
		return s.indexStatic(u, static)
	}
	return s.indexDynamic(u, static, dynamic)
}

// Assign records an indexed assignment and returns the new version of the
// tracer. The session's version table redirects later reads of the old
// tracer to the result.
func (t *Tracer) Assign(value any, elements ...Element) *Tracer {
	u := t.resolve()
	s := u.session
	sanitized := s.sanitize(value)

	static, dynamic := splitElements(s, elements)
	for _, d := range dynamic {
		if d.output.IsEncrypted {
			panic(errors.InvalidIndexing(
				"an encrypted value cannot be an index component").
				At(callerLocation()))
		}
	}

	var result *Tracer
	if len(dynamic) == 0 {
		result = s.assignStatic(u, sanitized, static)
	} else {
		result = s.assignDynamic(u, sanitized, static, dynamic)
	}

	s.versions[u.id] = result
	return result
}

// LookupTable embeds a clear table of values into the circuit of the
// encrypted index and returns table[index]. The table is any literal the
// tracer accepts as a constant, typically a one-dimensional integer
// tensor or an []int64.
func LookupTable(table any, index *Tracer) *Tracer {
	resolved := index.resolve()
	return resolved.session.sanitize(table).Index(Dyn(resolved))
}

// asTableLookup reports whether the index expression is a clear table
// keyed by an encrypted value.
func asTableLookup(target *Tracer, elements []Element) (*Tracer, bool) {
	if len(elements) != 1 || target.output.IsEncrypted || target.output.IsScalar() {
		return nil, false
	}
	dynamic, ok := elements[0].(TracerElement)
	if !ok {
		return nil, false
	}
	index := dynamic.Tracer.resolve()
	if !index.output.IsEncrypted {
		return nil, false
	}
	return index, true
}

func (s *session) dynamicTLU(table, index *Tracer) *Tracer {
	if !index.output.IsInteger() || !table.output.IsInteger() {
		panic(errors.InvalidIndexing(
			"table lookups require an integer table and an integer index").
			At(callerLocation()))
	}

	output := values.Description{
		Dtype:       table.output.Dtype,
		Shape:       index.output.Clone().Shape,
		IsEncrypted: true,
	}

	node := graph.NewGeneric("dynamic_tlu",
		[]values.Description{table.output.Clone(), index.output.Clone()},
		output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Lookup(concrete[0], concrete[1])
		})
	node.Location = callerLocation()
	node.Tag = s.tag
	return s.record(node, []*Tracer{table, index})
}

// patternElement positions dynamic components within the mixed static and
// dynamic index pattern.
type patternElement struct {
	static  tensor.IndexElement // nil for dynamic components
	dynamic int                 // operand offset of the dynamic component
}

func splitElements(s *session, elements []Element) ([]patternElement, []*Tracer) {
	pattern := make([]patternElement, len(elements))
	var dynamic []*Tracer

	for i, element := range elements {
		switch e := element.(type) {
		case IntElement:
			pattern[i] = patternElement{static: tensor.IntElement(e)}
		case SliceElement:
			pattern[i] = patternElement{static: tensor.SliceElement{Start: e.Start, Stop: e.Stop, Step: e.Step}}
		case TracerElement:
			resolved := e.Tracer.resolve()
			if !resolved.output.IsInteger() {
				panic(errors.InvalidIndexing(
					"index components must be integers").
					At(callerLocation()))
			}
			pattern[i] = patternElement{static: nil, dynamic: len(dynamic)}
			dynamic = append(dynamic, resolved)
		default:
			panic(errors.InvalidIndexing(
				fmt.Sprintf("%T cannot be an index component", element)).
				At(callerLocation()))
		}
	}

	return pattern, dynamic
}

// resolvePattern interleaves static components with concrete dynamic
// values. Dynamic operand tensors start at the given offset.
func resolvePattern(pattern []patternElement, concrete []*tensor.Tensor, offset int) []tensor.IndexElement {
	resolved := make([]tensor.IndexElement, len(pattern))
	for i, p := range pattern {
		if p.static != nil {
			resolved[i] = p.static
		} else {
			resolved[i] = tensor.TensorElement{T: concrete[offset+p.dynamic]}
		}
	}
	return resolved
}

func formatPattern(pattern []patternElement, operands []string, offset int) string {
	parts := make([]string, len(pattern))
	for i, p := range pattern {
		if p.static != nil {
			parts[i] = fmt.Sprint(p.static)
		} else if offset+p.dynamic < len(operands) {
			parts[i] = operands[offset+p.dynamic]
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (s *session) indexStatic(target *Tracer, pattern []patternElement) *Tracer {
	elements := resolvePattern(pattern, nil, 0)

	sampled, err := tensor.Index(sample(target.output), elements...)
	if err != nil {
		panic(errors.InvalidIndexing(err.Error()).At(callerLocation()))
	}
	if sampled.Size() == 0 {
		panic(errors.InvalidIndexing(
			"an index expression cannot select an empty result").
			At(callerLocation()))
	}

	output := values.Of(sampled)
	output.Dtype = target.output.Dtype
	output.IsEncrypted = target.output.IsEncrypted

	node := graph.NewGeneric("index_static",
		[]values.Description{target.output.Clone()}, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Index(concrete[0], elements...)
		})
	node.Fusable = false
	node.Location = callerLocation()
	node.Tag = s.tag
	node.Attributes = map[string]any{"index": formatPattern(pattern, nil, 0)}
	return s.record(node, []*Tracer{target})
}

func (s *session) indexDynamic(target *Tracer, pattern []patternElement, dynamic []*Tracer) *Tracer {
	operands := append([]*Tracer{target}, dynamic...)

	inputs := make([]values.Description, len(operands))
	samples := make([]*tensor.Tensor, len(operands))
	for i, operand := range operands {
		inputs[i] = operand.output.Clone()
		samples[i] = zeroSample(operand.output)
	}

	sampled, err := tensor.Index(samples[0], resolvePattern(pattern, samples, 1)...)
	if err != nil {
		panic(errors.InvalidIndexing(err.Error()).At(callerLocation()))
	}
	if sampled.Size() == 0 {
		panic(errors.InvalidIndexing(
			"an index expression cannot select an empty result").
			At(callerLocation()))
	}

	output := values.Of(sampled)
	output.Dtype = target.output.Dtype
	output.IsEncrypted = target.output.IsEncrypted

	node := graph.NewGeneric("index_dynamic", inputs, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Index(concrete[0], resolvePattern(pattern, concrete, 1)...)
		})
	node.Fusable = false
	node.Location = callerLocation()
	node.Tag = s.tag
	return s.record(node, operands)
}

func (s *session) assignStatic(target, value *Tracer, pattern []patternElement) *Tracer {
	elements := resolvePattern(pattern, nil, 0)

	if _, err := tensor.Assign(sample(target.output), elements, sample(value.output)); err != nil {
		panic(errors.InvalidIndexing(err.Error()).At(callerLocation()))
	}

	output := target.output.Clone()
	output.IsEncrypted = target.output.IsEncrypted || value.output.IsEncrypted

	node := graph.NewGeneric("assign_static",
		[]values.Description{target.output.Clone(), value.output.Clone()}, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Assign(concrete[0], elements, concrete[1])
		})
	node.Fusable = false
	node.Location = callerLocation()
	node.Tag = s.tag
	node.Attributes = map[string]any{"index": formatPattern(pattern, nil, 0)}
	return s.record(node, []*Tracer{target, value})
}

func (s *session) assignDynamic(target, value *Tracer, pattern []patternElement, dynamic []*Tracer) *Tracer {
	operands := append([]*Tracer{target, value}, dynamic...)

	inputs := make([]values.Description, len(operands))
	samples := make([]*tensor.Tensor, len(operands))
	for i, operand := range operands {
		inputs[i] = operand.output.Clone()
		samples[i] = zeroSample(operand.output)
	}

	if _, err := tensor.Assign(samples[0], resolvePattern(pattern, samples, 2), samples[1]); err != nil {
		panic(errors.InvalidIndexing(err.Error()).At(callerLocation()))
	}

	output := target.output.Clone()
	output.IsEncrypted = target.output.IsEncrypted || value.output.IsEncrypted

	node := graph.NewGeneric("assign_dynamic", inputs, output,
		func(concrete []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Assign(concrete[0], resolvePattern(pattern, concrete, 2), concrete[1])
		})
	node.Fusable = false
	node.Location = callerLocation()
	node.Tag = s.tag
	return s.record(node, operands)
}

// zeroSample builds in-range representative data for dynamic index
// components, zeros instead of ones so sampling a one-element axis
// stays within bounds.
func zeroSample(description values.Description) *tensor.Tensor {
	return tensor.Zeros(description.Shape, description.TensorKind())
}
