package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/boxlisp/boxlisp/lang/scanner"
	"github.com/boxlisp/boxlisp/lang/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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

		file := token.NewFile(filename, len(src))
		var errs scanner.ErrorList
		var s scanner.Scanner
		s.Init(file, src, errs.Add)

		for {
			pos, tok, lit := s.Scan()
			p := file.Position(pos)
			if lit != "" {
				fmt.Fprintf(stdio.Stdout, "%s: %s %s\n", p, tok, lit)
			} else {
				fmt.Fprintf(stdio.Stdout, "%s: %s\n", p, tok)
			}
			if tok == token.EOF {
				break
			}
		}
		if len(errs) > 0 {
			errs.Sort()
			scanner.PrintError(stdio.Stderr, errs.Err())
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("tokenize: one or more files failed")
	}
	return nil
}
