/*
Package taskpool runs chains of dependent functions on a fixed pool of
workers, each optionally pinned to an accelerator device.

Its core components include:
  - Pool: Fixed set of workers fed from an unbounded ready queue; Submit returns immediately with a Future.
  - Future: Handle to one submitted task; passing it as an argument to another submission creates a dependency edge.
  - Wait / Gather: Blocking collection of results, summarizing finished versus failed tasks.
  - FireAndForget: Detaches futures whose results nobody will collect; failures are logged instead of returned.
  - Feeder: Periodic submission loop with an explicit stop signal.
  - Store: Checkpoint bucket for gob-encoded artifacts, with in-memory and directory-backed implementations.

Basic usage:

	pool, err := taskpool.New(taskpool.Config{Workers: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	x := pool.Submit(load, "input.csv")
	y := pool.Submit(transform, x) // runs after x, receives x's value
	result, err := y.Result(ctx)

Each submission is an independent unit of work with a fresh ID: submitting
the same function twice runs it twice. If a dependency fails, dependent
tasks never run and fail with a *DependencyError wrapping the root cause.
*/
package taskpool
