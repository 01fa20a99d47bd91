package calc

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/ratlab/pkg/ports"
)

// Name is the engine name recorded on sessions using the calculator.
const Name = "calc"

// answerVar holds the value of the last expression statement.
const answerVar = "ans"

// Calculator is a stateful matrix calculator. Variables assigned in one
// submission are visible to the next.
type Calculator struct {
	mu   sync.Mutex
	vars map[string]Value
}

// New creates a calculator with no variables defined.
func New() *Calculator {
	return &Calculator{vars: make(map[string]Value)}
}

// Factory returns an EvaluatorFactory producing fresh calculators.
func Factory() ports.EvaluatorFactory {
	return func(ctx context.Context) (ports.Evaluator, error) {
		return New(), nil
	}
}

// Evaluate runs one statement. Errors are *domain.EvaluationError values and
// leave the variables untouched.
func (c *Calculator) Evaluate(ctx context.Context, text string) (string, error) {
	toks, err := lex(text)
	if err != nil {
		return "", err
	}
	if len(toks) == 1 { // only EOF: blank line or comment
		return "", nil
	}

	st, err := parse(toks)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := st.x.eval(c.vars)
	if err != nil {
		return "", err
	}

	target := st.target
	if target == "" {
		target = answerVar
	}
	c.vars[target] = v

	if st.silent {
		return "", nil
	}
	return v.String(), nil
}

// Lookup returns the value bound to name.
func (c *Calculator) Lookup(name string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vars[name]
	return v, ok
}

// Variables returns the defined names in order.
func (c *Calculator) Variables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ports.Evaluator = (*Calculator)(nil)
