// Package engine implements the task orchestration core shared by the
// parallel, orchestrate, and optimize workflows.
//
// The engine provides:
//   - Task, Outcome, RoundResult: the unit of work, its terminal
//     result (success, failure, or dropped), and the ordered pairing
//     for one batch
//   - Pool: bounded concurrent execution of a task batch against the
//     generation backend, with per-task timeout and a token budget
//   - Aggregate: deterministic reduction of a round to one output
//     (concat, json provenance, majority vote, max-tokens)
//
// Determinism is the load-bearing guarantee: results come back in
// input task order no matter how scheduling interleaves completions,
// so aggregation output depends only on the task list and outcomes.
//
// Example usage:
//
//	pool := engine.NewPool(engine.PoolConfig{Client: client, MaxWorkers: 8})
//	round := pool.Run(ctx, engine.NewTasks(prompts, system, model))
//	answer, err := engine.Aggregate(round, engine.PolicyMajority, true)
package engine
