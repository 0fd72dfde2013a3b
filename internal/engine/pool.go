package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/semaphore"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

// maxDefaultWorkers caps the derived concurrency default.
const maxDefaultWorkers = 32

// DefaultMaxWorkers derives the concurrency cap from available
// parallelism: NumCPU+4, at most 32.
func DefaultMaxWorkers() int {
	n := runtime.NumCPU() + 4
	if n > maxDefaultWorkers {
		n = maxDefaultWorkers
	}
	return n
}

// PoolConfig configures a worker pool.
type PoolConfig struct {
	// Client executes generation calls. Required.
	Client llm.Client
	// MaxWorkers caps in-flight generation calls. Values below 1 use
	// DefaultMaxWorkers.
	MaxWorkers int
	// TaskTimeout bounds each task's generation call; exceeding it
	// drops the task. Zero means no per-task timeout.
	TaskTimeout time.Duration
	// MaxInputTokens drops successful results whose token count
	// exceeds it, bounding downstream prompt size. Zero disables.
	MaxInputTokens int
	// Log receives one worker record per terminal outcome. May be nil.
	Log *worklog.Logger
	// Verbose prints a completion line per task to Stderr.
	Verbose bool
	// Stderr is the verbose sink. Defaults to os.Stderr.
	Stderr io.Writer
}

// Pool executes task batches concurrently under the configured bounds.
// Every Run is an independent batch; the pool holds no cross-batch
// state and is safe to reuse across rounds.
type Pool struct {
	cfg PoolConfig
}

// NewPool creates a pool, filling config defaults.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = DefaultMaxWorkers()
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Pool{cfg: cfg}
}

// Run executes all tasks and returns their outcomes in input order,
// regardless of completion order. It returns only when every task is
// terminal. A task's failure never cancels its siblings; zero
// successes is the caller's judgment call, not the pool's.
func (p *Pool) Run(ctx context.Context, tasks []Task) RoundResult {
	results := make(RoundResult, len(tasks))
	sem := semaphore.NewWeighted(int64(p.cfg.MaxWorkers))

	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = TaskResult{Task: task, Outcome: Failure(fmt.Errorf("acquire worker slot: %w", err))}
				p.record(task, results[i].Outcome)
				return
			}
			defer sem.Release(1)

			out := p.runTask(ctx, task)
			results[i] = TaskResult{Task: task, Outcome: out}
			p.record(task, out)
		}(i, tasks[i])
	}
	wg.Wait()

	return results
}

// runTask executes one generation call under the per-task timeout and
// applies the token budget. Worker calls never stream.
func (p *Pool) runTask(ctx context.Context, task Task) Outcome {
	taskCtx := ctx
	cancel := context.CancelFunc(func() {})
	if p.cfg.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout)
	}
	defer cancel()

	resp, err := p.cfg.Client.Generate(taskCtx, llm.Request{
		Prompt: task.Prompt,
		System: task.System,
		Model:  task.Model,
	})

	// The deadline owns the outcome: a result arriving after the
	// per-task timeout is discarded even if the call succeeded.
	if taskCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return Dropped(DropTimeout)
	}
	if err != nil {
		return Failure(err)
	}

	count := TokenCount(resp.Text, resp.OutputTokens)
	if p.cfg.MaxInputTokens > 0 && count > p.cfg.MaxInputTokens {
		return Dropped(DropTokenBudget)
	}
	return Success(resp.Text, count)
}

// record logs the terminal outcome and, when verbose, prints a
// completion line.
func (p *Pool) record(task Task, out Outcome) {
	p.cfg.Log.Log(worklog.Record{
		Step:   worklog.StepWorker,
		TaskID: worklog.TaskID(task.ID),
		Status: out.StatusLabel(),
		Detail: out.detail(),
	})

	if !p.cfg.Verbose {
		return
	}
	c := color.New(color.FgGreen)
	switch out.Status {
	case StatusFailure:
		c = color.New(color.FgRed)
	case StatusDropped:
		c = color.New(color.FgYellow)
	}
	fmt.Fprintf(p.cfg.Stderr, "%s task %d: %s\n", c.Sprint("•"), task.ID, out.detail())
}
