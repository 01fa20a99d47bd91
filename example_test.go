package ratlab_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/ratlab"
)

// ExampleNew shows that state carries over between submissions and that a
// failure is recorded as an entry instead of a returned error.
func ExampleNew() {
	lab := ratlab.New()
	defer lab.Close()

	ctx := context.Background()
	for _, line := range []string{"x = 5", "x * 2", "y + 1"} {
		tr, err := lab.Submit(ctx, "example", line)
		if err != nil {
			fmt.Println("rejected:", err)
			return
		}
		last := tr[len(tr)-1]
		fmt.Printf("%s -> %s: %s\n", line, last.Kind, last.Value)
	}

	// Output:
	// x = 5 -> output: 5
	// x * 2 -> output: 10
	// y + 1 -> error: NameError: y is not defined
}

// ExampleLab_Run drives a session from a reader, the way the CLI does with a pipe.
func ExampleLab_Run() {
	lab := ratlab.New()
	defer lab.Close()

	input := strings.NewReader("a = 2\na * 21\n")
	if err := lab.Run(context.Background(), "piped", input, os.Stdout); err != nil {
		fmt.Println("error:", err)
	}

	// Output:
	// 2
	// 42
}
