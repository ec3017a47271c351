package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"lutra/internal/errors"
	"lutra/internal/fusing"
	"lutra/internal/strategy"
	"lutra/internal/tracing"
	"lutra/internal/values"
)

type circuit struct {
	description string
	parameters  []tracing.Parameter
	function    tracing.Function
}

var circuits = map[string]circuit{
	"square-sum": {
		description: "x**2 + y**2 over two encrypted 4-bit integers",
		parameters: []tracing.Parameter{
			{Name: "x", Value: encrypted(values.UnsignedInteger(4))},
			{Name: "y", Value: encrypted(values.UnsignedInteger(4))},
		},
		function: func(args []*tracing.Tracer) any {
			return args[0].Square().Add(args[1].Square())
		},
	},
	"scaled-exp": {
		description: "round(10 * exp(x / 4)) through a float bridge",
		parameters: []tracing.Parameter{
			{Name: "x", Value: encrypted(values.UnsignedInteger(3))},
		},
		function: func(args []*tracing.Tracer) any {
			scaled := args[0].Astype(values.Float64()).Mul(0.25)
			return scaled.Apply("exp", nil).Mul(10.0).Round(0).Astype(values.UnsignedInteger(6))
		},
	},
	"packed-and": {
		description: "(x + 1) & (x + 2), a two-input table lookup",
		parameters: []tracing.Parameter{
			{Name: "x", Value: encrypted(values.UnsignedInteger(3))},
		},
		function: func(args []*tracing.Tracer) any {
			return args[0].Add(1).BitAnd(args[0].Add(2))
		},
	},
	"compare": {
		description: "x < y over mismatched bit widths",
		parameters: []tracing.Parameter{
			{Name: "x", Value: encrypted(values.UnsignedInteger(3))},
			{Name: "y", Value: encrypted(values.UnsignedInteger(8))},
		},
		function: func(args []*tracing.Tracer) any {
			return args[0].Lt(args[1])
		},
	},
}

func encrypted(dtype values.DataType) values.Description {
	return values.Description{Dtype: dtype, IsEncrypted: true}
}

func main() {
	names := make([]string, 0, len(circuits))
	for name := range circuits {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(os.Args) > 1 {
		name := os.Args[1]
		if _, known := circuits[name]; !known {
			fmt.Fprintf(os.Stderr, "unknown circuit '%s', available: %v\n", name, names)
			os.Exit(1)
		}
		names = []string{name}
	}

	startTime := time.Now()

	for _, name := range names {
		if err := show(name, circuits[name]); err != nil {
			if compilerError, ok := err.(errors.CompilerError); ok {
				fmt.Print(compilerError.Format())
			} else {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
			os.Exit(1)
		}
	}

	color.Green("Traced and fused %d circuit(s) in %s", len(names), formatDuration(time.Since(startTime)))
}

func show(name string, c circuit) error {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s  %s\n\n", bold(name), c.description)

	g, err := tracing.Trace(c.function, c.parameters)
	if err != nil {
		return err
	}

	fmt.Println("traced:")
	fmt.Println(g.String())

	if err := fusing.Fuse(g); err != nil {
		return err
	}

	fmt.Println("fused:")
	fmt.Println(g.String())

	if name == "compare" {
		showComparisonStrategy(c.parameters[0].Value, c.parameters[1].Value)
	}

	fmt.Println()
	return nil
}

func showComparisonStrategy(x, y values.Description) {
	preference := []strategy.Comparison{
		strategy.ComparisonOneTLUPromoted,
		strategy.ComparisonThreeTLUCasted,
	}

	selected := strategy.SelectComparison(preference, x, y)
	xRequired, yRequired := selected.Promotions(x, y)
	fmt.Printf("strategy: %s (%s -> %d bits, %s -> %d bits)\n", selected, x, xRequired, y, yRequired)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
