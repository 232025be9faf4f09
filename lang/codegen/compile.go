package codegen

import (
	"fmt"

	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/closure"
	"github.com/boxlisp/boxlisp/lang/machine"
	"github.com/boxlisp/boxlisp/lang/token"
)

// env is the runtime storage for one activation's locally named bindings:
// formals and VarDef targets of the current function. An escaping binding's
// slot holds its box (the unbox/setbox around each use is already explicit
// in the closure-converted AST); enclosed names have no slot and are
// reached through GetField on _obj. It is the Go-closure stand-in for a
// stack frame's local slots.
type env map[string]*machine.Value

// evalFunc is one compiled expression: given a thread and the current
// function's locals, it produces a value or propagates a runtime abort.
type evalFunc func(th *machine.Thread, e env) (*machine.Value, error)

// compileFunction compiles fn's body into the native function the rest of
// the runtime calls through machine.Call. info is fn's own scope record
// from the same closure.Result fn came from.
func compileFunction(fn *ast.Function, info *closure.Info, prog *Program) machine.NativeFunc {
	body := make([]evalFunc, len(fn.Body))
	for i, e := range fn.Body {
		body[i] = compileExpr(e, info, prog)
	}
	formals := fn.Proto.Formals
	escaping := info.Escaping
	name := fn.Proto.Name

	return func(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
		if len(args) != len(formals) {
			return nil, th.Error(fmt.Sprintf("%s: expected %d arguments, got %d", name, len(formals), len(args)))
		}

		fr := th.PushFrame(len(formals))
		defer th.PopFrame()

		e := make(env, len(formals))
		for i, formal := range formals {
			v := args[i]
			if escaping[formal] {
				v = machine.Box(v)
			}
			e[formal] = v
			fr.Set(i, v)
		}

		result := machine.NilValue
		for _, bf := range body {
			v, err := bf(th, e)
			if err != nil {
				return nil, err
			}
			result = v
		}
		return result, nil
	}
}

func compileExpr(expr ast.Expr, info *closure.Info, prog *Program) evalFunc {
	switch n := expr.(type) {
	case *ast.Int:
		v := machine.NewInt64(n.Value)
		return func(*machine.Thread, env) (*machine.Value, error) { return v, nil }

	case *ast.Nil:
		return func(*machine.Thread, env) (*machine.Value, error) { return machine.NilValue, nil }

	case *ast.Var:
		return compileVar(n, info, prog)

	case *ast.VarDef:
		return compileVarDef(n, info, prog)

	case *ast.VarSet:
		return compileVarSet(n, info, prog)

	case *ast.GetField:
		obj := compileExpr(n.Object, info, prog)
		index := n.Index
		return func(th *machine.Thread, e env) (*machine.Value, error) {
			o, err := obj(th, e)
			if err != nil {
				return nil, err
			}
			return machine.GetField(th, o, index)
		}

	case *ast.Unary:
		return compileUnary(n, info, prog)

	case *ast.Binary:
		return compileBinary(n, info, prog)

	case *ast.If:
		return compileIf(n, info, prog)

	case *ast.Begin:
		return compileBegin(n.Exprs, info, prog)

	case *ast.Call:
		return compileCall(n, info, prog)

	case *ast.Closure:
		return compileClosureLiteral(n, info, prog)

	default:
		panic(fmt.Sprintf("codegen: unexpected expression %T reached code generation", expr))
	}
}

// compileVar resolves a bare variable reference to one of: the special
// "nil" constant, a local slot (formal or local VarDef target of the
// current function), or a known global looked up lazily so forward and
// mutually recursive top-level definitions resolve correctly regardless
// of the order they were compiled in. The function's own name is resolved
// as a global unless a formal or VarDef of the same name has filled its slot.
func compileVar(n *ast.Var, info *closure.Info, prog *Program) evalFunc {
	name := n.Name
	if name == "nil" {
		return func(*machine.Thread, env) (*machine.Value, error) { return machine.NilValue, nil }
	}
	self := name == info.Name
	if info.Defined[name] && !self {
		return func(th *machine.Thread, e env) (*machine.Value, error) { return e[name], nil }
	}
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		if v, ok := e[name]; ok && self {
			return v, nil
		}
		v, ok := prog.Globals[name]
		if !ok {
			return nil, th.Error(fmt.Sprintf("undefined: %s", name))
		}
		return v, nil
	}
}

func compileVarDef(n *ast.VarDef, info *closure.Info, prog *Program) evalFunc {
	init := compileExpr(n.Init, info, prog)
	name := n.Name
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		v, err := init(th, e)
		if err != nil {
			return nil, err
		}
		e[name] = v
		return v, nil
	}
}

// compileVarSet only ever sees a bare VarSet for a purely local binding:
// the closure-conversion pass rewrites every escaping or enclosed
// assignment into a Binary(setbox, ...) node before code generation runs.
func compileVarSet(n *ast.VarSet, info *closure.Info, prog *Program) evalFunc {
	val := compileExpr(n.Value, info, prog)
	name := n.Name
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		v, err := val(th, e)
		if err != nil {
			return nil, err
		}
		e[name] = v
		return v, nil
	}
}

func compileUnary(n *ast.Unary, info *closure.Info, prog *Program) evalFunc {
	operand := compileExpr(n.Operand, info, prog)
	switch n.Op {
	case token.NOT:
		return func(th *machine.Thread, e env) (*machine.Value, error) {
			v, err := operand(th, e)
			if err != nil {
				return nil, err
			}
			return machine.BinaryInt64(th, token.NOT, v, nil)
		}
	case token.BOX:
		return func(th *machine.Thread, e env) (*machine.Value, error) {
			v, err := operand(th, e)
			if err != nil {
				return nil, err
			}
			return machine.Box(v), nil
		}
	case token.UNBOX:
		return func(th *machine.Thread, e env) (*machine.Value, error) {
			v, err := operand(th, e)
			if err != nil {
				return nil, err
			}
			return machine.Unbox(th, v)
		}
	default:
		panic(fmt.Sprintf("codegen: unexpected unary operator %s", n.Op))
	}
}

func compileBinary(n *ast.Binary, info *closure.Info, prog *Program) evalFunc {
	left := compileExpr(n.Left, info, prog)
	right := compileExpr(n.Right, info, prog)
	op := n.Op

	if op == token.SETBOX {
		return func(th *machine.Thread, e env) (*machine.Value, error) {
			b, err := left(th, e)
			if err != nil {
				return nil, err
			}
			v, err := right(th, e)
			if err != nil {
				return nil, err
			}
			return machine.SetBox(th, b, v)
		}
	}

	return func(th *machine.Thread, e env) (*machine.Value, error) {
		l, err := left(th, e)
		if err != nil {
			return nil, err
		}
		r, err := right(th, e)
		if err != nil {
			return nil, err
		}
		return machine.BinaryInt64(th, op, l, r)
	}
}

func compileIf(n *ast.If, info *closure.Info, prog *Program) evalFunc {
	pred := compileExpr(n.Pred, info, prog)
	then := compileExpr(n.Then, info, prog)
	els := compileExpr(n.Else, info, prog)
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		p, err := pred(th, e)
		if err != nil {
			return nil, err
		}
		if machine.AsBool(p) {
			return then(th, e)
		}
		return els(th, e)
	}
}

func compileBegin(exprs []ast.Expr, info *closure.Info, prog *Program) evalFunc {
	fns := make([]evalFunc, len(exprs))
	for i, e := range exprs {
		fns[i] = compileExpr(e, info, prog)
	}
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		result := machine.NilValue
		for _, f := range fns {
			v, err := f(th, e)
			if err != nil {
				return nil, err
			}
			result = v
		}
		return result, nil
	}
}

// compileClosureLiteral builds the evalFunc for a Closure AST node: it
// evaluates every capture expression (already rewritten by Phase D to read
// from the correct place in the current scope) and wraps the target
// function's already-compiled code with them. The code pointer is looked
// up lazily, exactly like a global Var reference, so a closure literal may
// be compiled before the function it targets.
func compileClosureLiteral(n *ast.Closure, info *closure.Info, prog *Program) evalFunc {
	captures := make([]evalFunc, len(n.Captures))
	for i, c := range n.Captures {
		captures[i] = compileExpr(c, info, prog)
	}
	flat := n.FlatName
	return func(th *machine.Thread, e env) (*machine.Value, error) {
		members := make([]*machine.Value, len(captures))
		for i, cf := range captures {
			v, err := cf(th, e)
			if err != nil {
				return nil, err
			}
			members[i] = v
		}
		code, ok := prog.Lookup(flat)
		if !ok {
			return nil, th.Error(fmt.Sprintf("unknown function referenced: %s", flat))
		}
		return machine.NewClosure(code, members), nil
	}
}

// compileCall implements the call contract: a direct call when
// symbol-hint names a known global of the right arity, else the dynamic
// get_callable/typeof dance that distinguishes a bare function reference
// from a closure needing its record prepended as an implicit first
// argument.
func compileCall(n *ast.Call, info *closure.Info, prog *Program) evalFunc {
	calleeFn := compileExpr(n.Callee, info, prog)
	argFns := make([]evalFunc, len(n.Args))
	for i, a := range n.Args {
		argFns[i] = compileExpr(a, info, prog)
	}
	hint := n.SymbolHint
	arity := len(n.Args)

	return func(th *machine.Thread, e env) (*machine.Value, error) {
		args := make([]*machine.Value, len(argFns))
		for i, af := range argFns {
			v, err := af(th, e)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}

		if hint != "" {
			if proto, ok := prog.Prototypes[hint]; ok && proto.Arity == arity {
				code, _ := prog.Lookup(hint)
				return machine.Call(th, code, args)
			}
		}

		callee, err := calleeFn(th, e)
		if err != nil {
			return nil, err
		}
		code, ok := machine.GetCallable(callee)
		if !ok {
			return nil, th.Error(fmt.Sprintf("not callable: %v", callee))
		}
		if machine.TypeOf(callee) == machine.ClosureKind {
			full := make([]*machine.Value, 0, len(args)+1)
			full = append(full, callee)
			full = append(full, args...)
			return machine.Call(th, code, full)
		}
		return machine.Call(th, code, args)
	}
}
