/*
Package runner implements the interactive loop that drives a session from a terminal or pipe.

It is the bridge between a Submitter (a session, usually bound through the
session Manager) and the outside world. Lines are read through pluggable
handlers, meta commands are intercepted, everything else is submitted and the
resulting entries are rendered.

# Key Components

  - Runner: the read-submit-print loop with exit, EOF and signal handling.
  - IOHandler: decouples how lines arrive and entries leave (text, NDJSON).
  - TextHandler: a standard implementation for interactive CLI usage.
  - JSONHandler: NDJSON for scripted or headless usage.
  - Interceptor: pre-submission middleware, e.g. MetaCommands for :help and :history.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithSignalHandling(true),
	)

	if err := r.Run(ctx, manager.Bind("scratch")); err != nil {
		log.Fatal(err)
	}
*/
package runner
