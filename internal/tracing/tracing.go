// Package tracing turns ordinary Go functions over symbolic values into
// computation graphs. The traced function is invoked exactly once; every
// operation applied to its Tracer arguments records a node instead of
// computing a result.
package tracing

import (
	"fmt"

	"github.com/tliron/commonlog"

	"lutra/internal/errors"
	"lutra/internal/graph"
	"lutra/internal/values"
)

var log = commonlog.GetLogger("lutra.tracing")

// Parameter declares one argument of a traced function.
type Parameter struct {
	Name  string
	Value values.Description
}

// Function is a traceable callable. It receives one Tracer per declared
// parameter, in signature order, and returns a *Tracer, a []*Tracer, or
// literal values which are embedded as constants.
type Function func(args []*Tracer) any

// session owns the graph under construction and the assignment version
// table. Tracing is single threaded; a session is never shared between
// goroutines.
type session struct {
	graph    *graph.Graph
	versions map[graph.NodeID]*Tracer
	logger   commonlog.Logger
	tag      string
}

// Trace invokes the function once over symbolic arguments and returns the
// resulting computation graph. Unsupported operations, branching on
// traced values and invalid index expressions surface as CompilerErrors.
func Trace(function Function, parameters []Parameter) (g *graph.Graph, err error) {
	s := &session{
		graph:    graph.New(),
		versions: map[graph.NodeID]*Tracer{},
		logger:   log,
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			if diagnostic, ok := recovered.(errors.CompilerError); ok {
				g = nil
				err = diagnostic
				return
			}
			panic(recovered)
		}
	}()

	args := make([]*Tracer, len(parameters))
	for position, parameter := range parameters {
		node := graph.NewInput(parameter.Name, parameter.Value)
		id := s.graph.AddNode(node)
		s.graph.SetInput(position, id)
		args[position] = &Tracer{session: s, id: id, output: node.Output}
	}

	returned := function(args)

	outputs, err := s.collectOutputs(returned)
	if err != nil {
		return nil, err
	}
	for position, output := range outputs {
		s.graph.SetOutput(position, output.id)
	}

	s.graph.PruneUselessNodes()

	if !s.graph.IsAcyclic() {
		return nil, errors.NewError(errors.ErrorUnsupportedReturn,
			"the traced computation contains a cycle").Build()
	}
	if err := s.graph.CheckOperandPositions(); err != nil {
		return nil, errors.NewError(errors.ErrorUnsupportedReturn, err.Error()).Build()
	}

	log.Debugf("traced %d parameters into %d nodes", len(parameters), s.graph.Len())
	return s.graph, nil
}

// collectOutputs sanitizes the traced function's return value into
// positional output tracers. Reassigned tracers resolve to their newest
// version.
func (s *session) collectOutputs(returned any) ([]*Tracer, error) {
	switch v := returned.(type) {
	case nil:
		return nil, errors.UnsupportedReturn("traced function returned nothing")
	case *Tracer:
		return []*Tracer{v.resolve()}, nil
	case []*Tracer:
		if len(v) == 0 {
			return nil, errors.UnsupportedReturn("traced function returned an empty tuple")
		}
		outputs := make([]*Tracer, len(v))
		for i, out := range v {
			if out == nil {
				return nil, errors.UnsupportedReturn(
					fmt.Sprintf("traced function returned nil at position %d", i))
			}
			outputs[i] = out.resolve()
		}
		return outputs, nil
	case []any:
		outputs := make([]*Tracer, len(v))
		for i, out := range v {
			outputs[i] = s.sanitize(out)
		}
		return outputs, nil
	default:
		// Literal returns become constants.
		return []*Tracer{s.sanitize(returned)}, nil
	}
}
