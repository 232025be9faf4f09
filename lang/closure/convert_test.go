package closure_test

import (
	"testing"

	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/closure"
	"github.com/boxlisp/boxlisp/lang/parser"
	"github.com/boxlisp/boxlisp/lang/token"
	"github.com/stretchr/testify/require"
)

var builtins = map[string]bool{"abs": true, "square": true, "average": true}

func parseOneFunction(t *testing.T, src string) *ast.Function {
	t.Helper()
	forms, err := parser.ParseProgram("t.scm", []byte(src))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	fn, ok := ast.IsFunction(forms[0])
	require.True(t, ok)
	return fn
}

// containsNestedFunction reports whether e or any sub-expression of e is
// itself a *ast.Function, walking through every recursive field by hand.
func containsNestedFunction(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Function:
		return true
	case *ast.VarDef:
		return containsNestedFunction(n.Init)
	case *ast.VarSet:
		return containsNestedFunction(n.Value)
	case *ast.GetField:
		return containsNestedFunction(n.Object)
	case *ast.Unary:
		return containsNestedFunction(n.Operand)
	case *ast.Binary:
		return containsNestedFunction(n.Left) || containsNestedFunction(n.Right)
	case *ast.If:
		return containsNestedFunction(n.Pred) || containsNestedFunction(n.Then) || containsNestedFunction(n.Else)
	case *ast.Begin:
		for _, s := range n.Exprs {
			if containsNestedFunction(s) {
				return true
			}
		}
	case *ast.Call:
		if containsNestedFunction(n.Callee) {
			return true
		}
		for _, a := range n.Args {
			if containsNestedFunction(a) {
				return true
			}
		}
	case *ast.Closure:
		for _, c := range n.Captures {
			if containsNestedFunction(c) {
				return true
			}
		}
	}
	return false
}

func TestFlatnessProperty(t *testing.T) {
	fn := parseOneFunction(t, `(define (make-adder n) (define (add k) (+ n k)) add)`)
	res := closure.Convert(fn, builtins)

	require.Len(t, res.Functions, 2, "make-adder plus the lifted add")
	for _, f := range res.Functions {
		for _, e := range f.Body {
			require.False(t, containsNestedFunction(e), "function %s must have no nested Function after conversion", f.Proto.Name)
		}
	}
}

func TestMakeAdderCapturesN(t *testing.T) {
	fn := parseOneFunction(t, `(define (make-adder n) (define (add k) (+ n k)) add)`)
	res := closure.Convert(fn, builtins)

	root := res.Scopes["make-adder"]
	require.True(t, root.Escaping["n"], "n must be boxed: add captures it")

	var addName string
	for name := range res.Scopes {
		if name != "make-adder" {
			addName = name
		}
	}
	add := res.Scopes[addName]
	require.Equal(t, []string{"n"}, add.Enclosed)

	// closure layout: the VarDef(add, Closure(flat, [...])) in make-adder's
	// body must supply exactly one capture field, for "n".
	require.True(t, root.Defined["add"])
	var rootFn *ast.Function
	for _, f := range res.Functions {
		if f.Proto.Name == "make-adder" {
			rootFn = f
		}
	}
	require.NotNil(t, rootFn)

	var clo *ast.Closure
	for _, e := range rootFn.Body {
		if def, ok := e.(*ast.VarDef); ok && def.Name == "add" {
			clo, ok = def.Init.(*ast.Closure)
			require.True(t, ok)
		}
	}
	require.NotNil(t, clo)
	require.Len(t, clo.Captures, 1)

	// n is escaping in make-adder, not enclosed, so the capture field reads
	// the raw (boxed) local storage directly, not through _obj.
	v, ok := clo.Captures[0].(*ast.Var)
	require.True(t, ok)
	require.Equal(t, "n", v.Name)
}

func TestEscapeImpliesBox(t *testing.T) {
	fn := parseOneFunction(t, `(define (counter) (define n 0) (define (tick) (set! n (+ n 1)) n) tick)`)
	res := closure.Convert(fn, builtins)

	var counterFn, tickFn *ast.Function
	for _, f := range res.Functions {
		switch f.Proto.Name {
		case "counter":
			counterFn = f
		default:
			tickFn = f
		}
	}
	require.NotNil(t, counterFn)
	require.NotNil(t, tickFn)

	require.True(t, res.Scopes["counter"].Escaping["n"])

	// n's definition in counter must now be boxed.
	var def *ast.VarDef
	for _, e := range counterFn.Body {
		if d, ok := e.(*ast.VarDef); ok && d.Name == "n" {
			def = d
		}
	}
	require.NotNil(t, def)
	box, ok := def.Init.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, token.BOX, box.Op)

	// inside tick, every read/write of n goes through unbox/setbox against
	// the captured field, never a bare Var("n").
	var sawBareVar bool
	var sawSetbox, sawUnbox bool
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Var:
			if n.Name == "n" {
				sawBareVar = true
			}
		case *ast.VarSet:
			walk(n.Value)
		case *ast.Unary:
			if n.Op == token.UNBOX {
				if gf, ok := n.Operand.(*ast.GetField); ok {
					_ = gf
					sawUnbox = true
				}
			}
			walk(n.Operand)
		case *ast.Binary:
			if n.Op == token.SETBOX {
				sawSetbox = true
			}
			walk(n.Left)
			walk(n.Right)
		case *ast.If:
			walk(n.Pred)
			walk(n.Then)
			walk(n.Else)
		case *ast.Begin:
			for _, s := range n.Exprs {
				walk(s)
			}
		case *ast.Call:
			walk(n.Callee)
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, e := range tickFn.Body {
		walk(e)
	}
	require.False(t, sawBareVar, "every reference to the escaping binding n must be boxed")
	require.True(t, sawSetbox)
	require.True(t, sawUnbox)
}

func TestSelfNameExclusion(t *testing.T) {
	fn := parseOneFunction(t, `(define (fact n) (if (= n 0) 1 (* n (fact (- n 1)))))`)
	res := closure.Convert(fn, builtins)
	info := res.Scopes["fact"]
	for _, n := range info.Enclosed {
		require.NotEqual(t, "fact", n)
	}
	require.False(t, info.Escaping["fact"])
}

func TestGlobalExclusion(t *testing.T) {
	fn := parseOneFunction(t, `(define (use-square x) (square x))`)
	res := closure.Convert(fn, builtins)
	info := res.Scopes["use-square"]
	for _, n := range info.Enclosed {
		require.NotEqual(t, "square", n)
	}
	require.False(t, info.Escaping["square"])
}

func TestWithdrawNoCaptureNoBoxing(t *testing.T) {
	fn := parseOneFunction(t, `(define (withdraw balance amount) (if (> balance amount) (begin (set! balance (- balance amount)) balance) -1))`)
	res := closure.Convert(fn, builtins)
	require.Len(t, res.Functions, 1, "withdraw defines no nested function")
	info := res.Scopes["withdraw"]
	require.Empty(t, info.Enclosed)
	require.False(t, info.Escaping["balance"], "balance is reassigned but never captured by a nested function, so it is never boxed")
}

func TestTransitiveCaptureAcrossTwoLevels(t *testing.T) {
	src := `(define (outer x) (define (mid) (define (inner) x) inner) mid)`
	fn := parseOneFunction(t, src)
	res := closure.Convert(fn, builtins)

	require.Len(t, res.Functions, 3)
	require.True(t, res.Scopes["outer"].Escaping["x"], "x must be boxed in outer since inner (two levels down) reads it")

	var midName, innerName string
	for name, info := range res.Scopes {
		if name == "outer" {
			continue
		}
		if len(info.Enclosed) == 1 && info.Enclosed[0] == "x" {
			if midName == "" {
				midName = name
			} else {
				innerName = name
			}
		}
	}
	// both mid and inner must carry x through their own Enclosed list, mid
	// purely to thread it down to inner.
	require.NotEmpty(t, midName)
	require.NotEmpty(t, innerName)
}
