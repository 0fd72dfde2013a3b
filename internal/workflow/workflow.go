// Package workflow implements the five execution patterns exposed by
// the CLI: sequential chaining, classification routing, parallel
// fan-out, orchestrated decomposition, and evaluator-driven refinement.
//
// Workflows share the engine's worker pool and aggregation rules and
// differ only in how they produce tasks and consume results. Each
// takes an explicit config struct, returns final answer text, and
// reports failures through typed errors that the CLI maps to exit
// codes.
package workflow

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ExecError reports a failure that prevented a workflow from producing
// a final answer: a generation call failed outside the worker pool, a
// round ended with nothing to aggregate, a classifier missed, or a
// chain gate rejected a step.
type ExecError struct {
	Step string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// TargetNotMetError is the refinement loop's soft failure: the
// iteration cap was reached below the target score. The answer
// produced alongside it is still usable.
type TargetNotMetError struct {
	Score      float64
	Target     float64
	Iterations int
}

func (e *TargetNotMetError) Error() string {
	return fmt.Sprintf("target not met: score %.2f < %.2f after %d iterations", e.Score, e.Target, e.Iterations)
}

// statusLine prints a colored progress line to w when verbose.
func statusLine(w io.Writer, verbose bool, stage, format string, args ...interface{}) {
	if !verbose || w == nil {
		return
	}
	c := color.New(color.FgCyan)
	fmt.Fprintf(w, "%s %s\n", c.Sprintf("[%s]", stage), fmt.Sprintf(format, args...))
}
