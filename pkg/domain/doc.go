/*
Package domain contains the core domain models for the Ratlab session shell.

It defines the records a session produces and the small vocabulary shared by the
core, the stores and the rendering surfaces. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - TranscriptEntry: One line of session history, tagged Input, Output or Error.
  - Transcript: The ordered, append-only history of a session.
  - Record: The persisted form of a session (ID, engine, transcript, timestamps).
  - EvaluationError: The display-ready failure an evaluator may return.
  - LifecycleHooks: Callbacks fired around each submission for observability.
*/
package domain
