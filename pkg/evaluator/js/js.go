// Package js provides a JavaScript evaluator backed by the goja runtime.
//
// One runtime lives for the whole session, so declarations made in one
// submission are visible to the next. print() and console.log() output is
// captured and shown before the value of the final expression.
package js

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/dop251/goja"
)

// Name is the engine name recorded on sessions using this evaluator.
const Name = "js"

// ErrClosed is returned by Evaluate after Close.
var ErrClosed = errors.New("javascript runtime is closed")

// Config bounds a single submission.
type Config struct {
	// Timeout interrupts a submission that runs too long. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxOutputChars truncates longer results. Zero disables it.
	MaxOutputChars int `mapstructure:"max_output_chars"`
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxOutputChars: 10000,
	}
}

// Evaluator runs JavaScript in a persistent goja runtime.
type Evaluator struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	config Config
	out    strings.Builder
	closed bool
}

// New creates an evaluator with a fresh runtime.
func New(config Config) (*Evaluator, error) {
	e := &Evaluator{vm: goja.New(), config: config}
	if err := e.setupEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to setup javascript environment: %w", err)
	}
	return e, nil
}

// Factory returns an EvaluatorFactory producing isolated runtimes.
func Factory(config Config) ports.EvaluatorFactory {
	return func(ctx context.Context) (ports.Evaluator, error) {
		return New(config)
	}
}

func (e *Evaluator) setupEnvironment() error {
	printFn := func(call goja.FunctionCall) goja.Value {
		args := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.String()
		}
		e.out.WriteString(strings.Join(args, " "))
		e.out.WriteString("\n")
		return goja.Undefined()
	}
	if err := e.vm.Set("print", printFn); err != nil {
		return fmt.Errorf("failed to set print: %w", err)
	}

	console := e.vm.NewObject()
	if err := console.Set("log", printFn); err != nil {
		return fmt.Errorf("failed to set console.log: %w", err)
	}
	if err := e.vm.Set("console", console); err != nil {
		return fmt.Errorf("failed to set console: %w", err)
	}
	return nil
}

// Evaluate runs one submission. Thrown exceptions and timeouts are returned
// as errors, prefixed by anything printed before the failure. The runtime
// stays usable afterwards.
func (e *Evaluator) Evaluate(ctx context.Context, text string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", ErrClosed
	}
	e.out.Reset()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var timeout <-chan time.Time
		if e.config.Timeout > 0 {
			timer := time.NewTimer(e.config.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-timeout:
			e.vm.Interrupt(domain.NewEvaluationError("TimeoutError", "execution exceeded %s", e.config.Timeout))
		case <-ctx.Done():
			e.vm.Interrupt(domain.NewEvaluationError("TimeoutError", "execution cancelled"))
		case <-done:
		}
	}()

	val, err := e.vm.RunString(text)
	close(done)
	wg.Wait()
	// An interrupt that fired late must not poison the next submission.
	e.vm.ClearInterrupt()

	if err != nil {
		if printed := strings.TrimSuffix(e.out.String(), "\n"); printed != "" {
			return "", &printedError{printed: e.truncate(printed), err: e.translate(err)}
		}
		return "", e.translate(err)
	}
	return e.truncate(e.buildOutput(val)), nil
}

// printedError keeps what a failing submission printed before it failed.
type printedError struct {
	printed string
	err     error
}

func (e *printedError) Error() string { return e.printed + "\n" + e.err.Error() }
func (e *printedError) Unwrap() error { return e.err }

func (e *Evaluator) translate(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if evalErr, ok := interrupted.Value().(*domain.EvaluationError); ok {
			return evalErr
		}
		return domain.NewEvaluationError("InterruptedError", "%v", interrupted.Value())
	}

	var exception *goja.Exception
	if errors.As(err, &exception) && exception.Value() != nil {
		return &domain.EvaluationError{Message: exception.Value().String()}
	}
	return &domain.EvaluationError{Message: err.Error()}
}

func (e *Evaluator) buildOutput(val goja.Value) string {
	printed := strings.TrimSuffix(e.out.String(), "\n")
	result := formatValue(val)

	switch {
	case printed == "":
		return result
	case result == "":
		return printed
	}
	return printed + "\n" + result
}

// formatValue renders strings quoted and arrays and objects as JSON.
func formatValue(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return ""
	}
	if goja.IsNull(val) {
		return "null"
	}

	switch v := val.Export().(type) {
	case string:
		b, _ := json.Marshal(v)
		return string(b)
	case []any, map[string]any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return val.String()
}

func (e *Evaluator) truncate(s string) string {
	limit := e.config.MaxOutputChars
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := 0
	for i := 0; i < limit; i++ {
		_, size := utf8.DecodeRuneInString(s[cut:])
		cut += size
	}
	return s[:cut] + fmt.Sprintf("... (truncated, %d chars total)", utf8.RuneCountInString(s))
}

// Close stops the runtime. Later submissions fail with ErrClosed.
func (e *Evaluator) Close() error {
	e.vm.Interrupt(ErrClosed)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ ports.Evaluator = (*Evaluator)(nil)
