/*
Package ports defines the driven ports (interfaces) for the Ratlab session shell.

These interfaces decouple the session core from external implementations,
allowing it to work with any evaluation engine and various storage backends.

# Key Interfaces

  - Evaluator: Executes one line of text and returns a display string or a failure.
  - EvaluatorFactory: Builds a fresh Evaluator for a new or restored session.
  - TranscriptStore: Persists and loads session records.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
