package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// RenderResults formats a result list for the console: per-action
// status line, truncated output, and a success tally.
func RenderResults(results []contracts.ExecutionResult) string {
	if len(results) == 0 {
		return "Nothing was executed."
	}

	var b strings.Builder
	succeeded := 0
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, r.Status, r.Action.Description)
		if d := r.CompletedAt.Sub(r.StartedAt); d > 0 {
			fmt.Fprintf(&b, " (%s)", d.Round(time.Millisecond))
		}
		b.WriteString("\n")
		if r.Output != "" {
			b.WriteString(indent(r.Output))
		}
		if r.Error != "" {
			b.WriteString(indent("error: " + r.Error))
		}
		if r.Succeeded() {
			succeeded++
		}
	}
	fmt.Fprintf(&b, "%d/%d actions succeeded", succeeded, len(results))
	return b.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "      " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
