// Package codegen consumes the AST closure conversion has already
// rewritten and turns it into runnable code. There is no machine-code
// emission: generation targets Go itself, compiling every expression once
// into a small closure (an evalFunc) that the runtime ABI in package
// machine drives. Compiling a function is therefore building a tree of
// these closures once; calling it is just invoking the top one. That is
// the native-code-emission step's Go-shaped equivalent: by the time a
// program runs, no further AST inspection happens on the hot path.
package codegen

import (
	"fmt"

	"github.com/boxlisp/boxlisp/lang/closure"
	"github.com/boxlisp/boxlisp/lang/machine"
	"github.com/boxlisp/boxlisp/lang/token"
)

// Prototype is the arity record the call site needs to decide whether a
// symbol-hinted call can be dispatched directly.
type Prototype struct {
	Name  string
	Arity int
}

// Program is the driver's compiled-code table: every function compiled so
// far, keyed by its (possibly flat) name, plus the subset of those that
// are known globals (root-level top-level functions, reachable by name
// from any later top-level form) and the four built-ins the generator
// links in externally (abs, square, average and error).
type Program struct {
	Globals    map[string]*machine.Value
	Prototypes map[string]*Prototype

	funcs           map[string]machine.NativeFunc
	variableGlobals map[string]bool
}

// NewProgram returns an empty program with abs, square, average and error
// already linked in, so KnownGlobals reports them to closure conversion.
func NewProgram() *Program {
	prog := &Program{
		Globals:    map[string]*machine.Value{},
		Prototypes: map[string]*Prototype{},
		funcs:      map[string]machine.NativeFunc{},
	}
	prog.linkBuiltin("abs", 1, builtinAbs)
	prog.linkBuiltin("square", 1, builtinSquare)
	prog.linkBuiltin("average", 2, builtinAverage)
	prog.linkBuiltin("error", 0, builtinError)
	return prog
}

func (prog *Program) linkBuiltin(name string, arity int, fn machine.NativeFunc) {
	prog.funcs[name] = fn
	prog.Prototypes[name] = &Prototype{Name: name, Arity: arity}
	prog.Globals[name] = machine.NewFunctionRef(fn, arity)
}

// KnownGlobals returns the set of names closure.Convert must treat as
// known globals: never boxed, never enclosed. This includes every
// top-level function plus every top-level variable define the driver has
// already registered with SetGlobal - a top-level (define x ...) binds a
// name just as globally reachable as a top-level function does, it simply
// carries no call arity.
func (prog *Program) KnownGlobals() map[string]bool {
	out := make(map[string]bool, len(prog.Prototypes)+len(prog.variableGlobals))
	for name := range prog.Prototypes {
		out[name] = true
	}
	for name := range prog.variableGlobals {
		out[name] = true
	}
	return out
}

// SetGlobal registers a top-level variable define's value under name, so
// later top-level forms can reference it by name. The driver calls this
// once it has evaluated the anonymous thunk wrapping a (define x expr)
// form; codegen itself never calls it.
func (prog *Program) SetGlobal(name string, v *machine.Value) {
	if prog.variableGlobals == nil {
		prog.variableGlobals = map[string]bool{}
	}
	prog.variableGlobals[name] = true
	prog.Globals[name] = v
}

// Compile compiles every function produced by a single closure.Convert
// call - the root function plus every function lifted out of it - and, if
// root is not itself the anonymous top-level expression thunk, registers
// it as a known global so later top-level forms can call it by name.
func (prog *Program) Compile(result *closure.Result) {
	for _, fn := range result.Functions {
		info := result.Scopes[fn.Proto.Name]
		prog.funcs[fn.Proto.Name] = compileFunction(fn, info, prog)
	}

	root := result.Functions[0]
	if root.Proto.Name == AnonExprName {
		return
	}
	arity := len(root.Proto.Formals)
	prog.Prototypes[root.Proto.Name] = &Prototype{Name: root.Proto.Name, Arity: arity}
	prog.Globals[root.Proto.Name] = machine.NewFunctionRef(prog.funcs[root.Proto.Name], arity)
}

// AnonExprName is the reserved name the driver gives the zero-arity thunk
// wrapping a top-level non-function expression, per the code generator's
// contract.
const AnonExprName = "__anon_expr"

// Lookup returns the compiled code for name, root or lifted.
func (prog *Program) Lookup(name string) (machine.NativeFunc, bool) {
	fn, ok := prog.funcs[name]
	return fn, ok
}

func builtinAbs(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
	if len(args) != 1 || args[0] == nil || args[0].Kind != machine.Int64Kind {
		return nil, th.Error("abs: argument is not an integer")
	}
	x := args[0]
	if x.Int < 0 {
		return machine.NewInt64(-x.Int), nil
	}
	return x, nil
}

func builtinSquare(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
	if len(args) != 1 {
		return nil, th.Error(fmt.Sprintf("square: expected 1 argument, got %d", len(args)))
	}
	return machine.BinaryInt64(th, token.MUL, args[0], args[0])
}

// builtinError implements the `error()` runtime primitive: it never
// returns a value, only an abort. It takes no arguments and always reports
// the same fixed diagnostic; the call site is not named.
func builtinError(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
	return nil, th.Error("error: aborted")
}

func builtinAverage(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
	if len(args) != 2 {
		return nil, th.Error(fmt.Sprintf("average: expected 2 arguments, got %d", len(args)))
	}
	sum, err := machine.BinaryInt64(th, token.ADD, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return machine.BinaryInt64(th, token.DIV, sum, machine.NewInt64(2))
}
