// Package driver implements the REPL/batch driving loop described by the
// compiler pipeline: tokenize, parse (which also lowers cond to nested
// ifs), closure-convert, code-generate and execute, one top-level form at
// a time. It owns the two process-wide tables the pipeline shares - the
// prototype table and the buffered-function list - and the single
// machine.Thread every form runs on.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/closure"
	"github.com/boxlisp/boxlisp/lang/codegen"
	"github.com/boxlisp/boxlisp/lang/machine"
	"github.com/boxlisp/boxlisp/lang/parser"
	"github.com/boxlisp/boxlisp/lang/scanner"
	"github.com/dolthub/swiss"
)

var (
	stdoutFallback io.Writer = os.Stdout
	stderrFallback io.Writer = os.Stderr
)

// Driver holds the state that outlives any single top-level form: the
// compiled-code program (itself the prototype table), the buffered-function
// list recording every top-level function name seen so far (used only to
// warn about a redefinition, which still replaces the earlier definition -
// codegen's lazy global lookups mean nothing else
// needs a function compiled before the forms that reference it), and the
// thread every compiled form runs on.
type Driver struct {
	Program *codegen.Program
	Thread  *machine.Thread

	buffered *swiss.Map[string, int]
}

// New returns a driver with an empty program and a fresh thread. stdout and
// stderr may be nil, in which case the thread defaults to os.Stdout and
// os.Stderr.
func New(stdout, stderr io.Writer) *Driver {
	return &Driver{
		Program:  codegen.NewProgram(),
		Thread:   &machine.Thread{Stdout: stdout, Stderr: stderr},
		buffered: swiss.NewMap[string, int](8),
	}
}

// RunSource parses src in its entirety (named filename for diagnostics) and
// runs every top-level form in order, stopping at the first one that
// aborts at runtime: a primitive invoking the `error` contract terminates
// the current source the same way it would terminate the process in a
// batch run. A syntactic error only abandons the one malformed form; the
// parser has already resynchronized past it by the time RunSource sees the
// returned form list.
func (d *Driver) RunSource(filename string, src []byte) error {
	forms, err := parser.ParseProgram(filename, src)
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok {
			for _, e := range list {
				fmt.Fprintln(d.stderr(), e)
			}
		} else {
			fmt.Fprintln(d.stderr(), err)
		}
	}

	for _, form := range forms {
		if rerr := d.RunForm(form); rerr != nil {
			return rerr
		}
	}
	return nil
}

// RunForm compiles and, for non-function forms, immediately executes one
// top-level form. A function define is buffered into the program's
// prototype table and compiled but not called; a variable define or bare
// expression is wrapped in the anonymous thunk contract, compiled, called,
// and - if the result is an Int64 - printed, exactly as the driver
// contract specifies.
func (d *Driver) RunForm(form ast.Expr) error {
	if fn, ok := ast.IsFunction(form); ok {
		return d.runFunction(fn)
	}
	return d.runExprOrVarDef(form)
}

func (d *Driver) runFunction(fn *ast.Function) error {
	name := fn.Proto.Name
	if _, seen := d.buffered.Get(name); seen {
		fmt.Fprintf(d.stderr(), "redefinition of %s\n", name)
	}
	d.buffered.Put(name, int(fn.Pos()))

	result := closure.Convert(fn, d.Program.KnownGlobals())
	d.Program.Compile(result)
	return nil
}

func (d *Driver) runExprOrVarDef(form ast.Expr) error {
	thunk := &ast.Function{
		At:    form.Pos(),
		Proto: &ast.Prototype{Name: codegen.AnonExprName},
		Body:  []ast.Expr{form},
	}
	result := closure.Convert(thunk, d.Program.KnownGlobals())
	d.Program.Compile(result)

	code, ok := d.Program.Lookup(codegen.AnonExprName)
	if !ok {
		return fmt.Errorf("driver: anonymous thunk failed to compile")
	}

	v, err := machine.Call(d.Thread, code, nil)
	if err != nil {
		return err
	}

	if varDef, ok := form.(*ast.VarDef); ok {
		d.Program.SetGlobal(varDef.Name, v)
		return nil
	}

	if v != nil && v.Kind == machine.Int64Kind {
		fmt.Fprintln(d.stdout(), v.Int)
	}
	return nil
}

func (d *Driver) stdout() io.Writer {
	if d.Thread.Stdout != nil {
		return d.Thread.Stdout
	}
	return stdoutFallback
}

func (d *Driver) stderr() io.Writer {
	if d.Thread.Stderr != nil {
		return d.Thread.Stderr
	}
	return stderrFallback
}
