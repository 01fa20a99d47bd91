/*
Package session implements the Ratlab session core and its multi-session manager.

A Session owns a transcript and an evaluator. Submit appends the raw input,
evaluates it, and appends exactly one Output or Error entry. Evaluator failures
and panics are recorded as Error entries; the session always remains usable.
Concurrent submissions are queued in arrival order and never interleave.

The Manager keeps many independent sessions, persists each record through a
ports.TranscriptStore and, on restart, replays stored inputs into a fresh
evaluator so its state matches the restored transcript. Access to one session
ID is serialized with a ref-counted local lock and an optional distributed lock.
*/
package session
