package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/boxlisp/boxlisp/internal/driver"
	"github.com/mna/mainer"
)

// Run tokenizes, parses, closure-converts, code-generates and executes
// every top-level form in each given file, in order, sharing one driver
// (and so one prototype table and one thread) across all of them.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, args...)
}

func RunFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	d := driver.New(stdio.Stdout, stdio.Stderr)

	var failed bool
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
			continue
		}
		if err := d.RunSource(filename, src); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("run: one or more files failed")
	}
	return nil
}
