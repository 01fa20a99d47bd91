/*
Package ratlab runs interactive evaluation sessions: lines of text go in, an
evaluator turns each one into an output or an error, and every pair is kept
in an ordered transcript.

# Concept

A session owns one evaluator and one transcript. Submissions are handled one
at a time in arrival order, so the transcript always alternates an input entry
with the output or error it produced. Evaluation failures never escape as Go
errors; they become error entries and the session keeps going.

Sessions are kept by a manager that persists each transcript to a store
(memory, file, Redis or SQLite) and restores it later by replaying the stored
inputs into a fresh evaluator.

# Usage

	lab := ratlab.New() // calculator engine, in-memory store
	defer lab.Close()

	ctx := context.Background()
	tr, err := lab.Submit(ctx, "demo", "x = [1 2; 3 4]")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tr[len(tr)-1].Value)

Use WithEvaluator to plug another engine (see pkg/evaluator/js) and WithStore
to persist sessions. The same manager can be served over HTTP
(pkg/adapters/http) or to MCP agents (pkg/adapters/mcp).
*/
package ratlab
