package parser_test

import (
	"testing"

	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/parser"
	"github.com/boxlisp/boxlisp/lang/token"
	"github.com/stretchr/testify/require"
)

func TestParseFunctionDefine(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("(define (square x) (* x x))"))
	require.NoError(t, err)
	require.Len(t, forms, 1)

	fn, ok := ast.IsFunction(forms[0])
	require.True(t, ok)
	require.Equal(t, "square", fn.Proto.Name)
	require.Equal(t, []string{"x"}, fn.Proto.Formals)
	require.Len(t, fn.Body, 1)

	bin, ok := fn.Body[0].(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, token.MUL, bin.Op)
}

func TestParseVarDefine(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("(define x 5)"))
	require.NoError(t, err)
	require.Len(t, forms, 1)

	def, ok := forms[0].(*ast.VarDef)
	require.True(t, ok)
	require.Equal(t, "x", def.Name)
	require.Equal(t, int64(5), def.Init.(*ast.Int).Value)
}

func TestParseEmptyParensIsNilVar(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("()"))
	require.NoError(t, err)
	require.Len(t, forms, 1)

	v, ok := forms[0].(*ast.Var)
	require.True(t, ok)
	require.Equal(t, "nil", v.Name)
}

func TestParseUnarySub(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("(- x)"))
	require.NoError(t, err)
	bin := forms[0].(*ast.Binary)
	require.Equal(t, token.SUB, bin.Op)
	require.Equal(t, int64(0), bin.Left.(*ast.Int).Value)
	require.Equal(t, "x", bin.Right.(*ast.Var).Name)
}

func TestParseCondLowersToNestedIf(t *testing.T) {
	src := `(cond ((= x 0) 1) ((> x 0) (- x)))`
	forms, err := parser.ParseProgram("t.scm", []byte(src))
	require.NoError(t, err)

	outer, ok := forms[0].(*ast.If)
	require.True(t, ok)
	require.Equal(t, token.EQL, outer.Pred.(*ast.Binary).Op)
	require.Equal(t, int64(1), outer.Then.(*ast.Int).Value)

	inner, ok := outer.Else.(*ast.If)
	require.True(t, ok)
	require.Equal(t, token.GT, inner.Pred.(*ast.Binary).Op)

	_, isNil := inner.Else.(*ast.Nil)
	require.True(t, isNil, "no matching cond arm must fall through to Nil")
}

func TestParseCallSymbolHint(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("(square 4)"))
	require.NoError(t, err)
	call := forms[0].(*ast.Call)
	require.Equal(t, "square", call.SymbolHint)
	require.Len(t, call.Args, 1)
}

func TestParseCallNonSymbolCalleeHasNoHint(t *testing.T) {
	forms, err := parser.ParseProgram("t.scm", []byte("((make-adder 10) 5)"))
	require.NoError(t, err)
	call := forms[0].(*ast.Call)
	require.Equal(t, "", call.SymbolHint)
	inner := call.Callee.(*ast.Call)
	require.Equal(t, "make-adder", inner.SymbolHint)
}

func TestParseErrorRecovers(t *testing.T) {
	// "@" is illegal, the next form should still parse.
	forms, err := parser.ParseProgram("t.scm", []byte("@ (define x 1)"))
	require.Error(t, err)
	require.Len(t, forms, 1)
	require.Equal(t, "x", forms[0].(*ast.VarDef).Name)
}

func TestParseNestedDefineFlattenableLater(t *testing.T) {
	src := `(define (make-adder n) (define (add k) (+ n k)) add)`
	forms, err := parser.ParseProgram("t.scm", []byte(src))
	require.NoError(t, err)
	fn := forms[0].(*ast.Function)
	require.Len(t, fn.Body, 2)
	_, ok := fn.Body[0].(*ast.Function)
	require.True(t, ok, "nested define parses as a Function sub-expression, pre-closure-conversion")
}
