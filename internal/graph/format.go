package graph

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Format renders the graph as an ordered listing, one node per line.
// Nodes present in highlighted get their messages printed underneath,
// underlined in red. Used for debugging output and fusion diagnostics.
func (g *Graph) Format(highlighted map[NodeID][]string) string {
	order, err := g.TopologicalOrder()
	if err != nil {
		// A cyclic graph is already invalid, render what we can.
		order = g.NodeIDs()
	}

	identifiers := map[NodeID]string{}
	lines := make([]string, len(order))
	longest := 0

	for i, id := range order {
		identifiers[id] = fmt.Sprintf("%%%d", i)

		operands := make([]string, 0, len(g.preds[id]))
		for _, pred := range g.OrderedPredecessors(id) {
			operands = append(operands, identifiers[pred])
		}

		lines[i] = fmt.Sprintf("%s = %s", identifiers[id], g.nodes[id].Label(operands))
		if len(lines[i]) > longest {
			longest = len(lines[i])
		}
	}

	red := color.New(color.FgRed, color.Bold).SprintFunc()

	var result strings.Builder
	for i, id := range order {
		result.WriteString(fmt.Sprintf("%-*s  # %s\n", longest, lines[i], g.nodes[id].Output))

		if messages, ok := highlighted[id]; ok && len(messages) > 0 {
			marker := strings.Repeat("^", len(lines[i]))
			for _, message := range messages {
				result.WriteString(fmt.Sprintf("%s %s\n", red(marker), red(message)))
				marker = strings.Repeat(" ", len(lines[i]))
			}
		}
	}

	returns := make([]string, 0, len(g.outputs))
	for _, id := range g.OutputNodes() {
		returns = append(returns, identifiers[id])
	}
	if len(returns) > 0 {
		result.WriteString(fmt.Sprintf("return %s\n", strings.Join(returns, ", ")))
	}

	return result.String()
}

func (g *Graph) String() string {
	return g.Format(nil)
}
