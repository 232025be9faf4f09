package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/boxlisp/boxlisp/lang/parser"
	"github.com/boxlisp/boxlisp/lang/scanner"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, args...)
}

func ParseFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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

		forms, perr := parser.ParseProgram(filename, src)
		for _, form := range forms {
			fmt.Fprintln(stdio.Stdout, form.String())
		}
		if perr != nil {
			scanner.PrintError(stdio.Stderr, perr)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("parse: one or more files failed")
	}
	return nil
}
