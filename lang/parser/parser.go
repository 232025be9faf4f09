// Package parser implements the recursive-descent parser that turns a token
// stream into the surface expression tree (see package ast). It also lowers
// the surface-only sugar forms as it parses - cond into nested ifs, and
// lambda into a Function with a generated name: that lowering is part of
// the parser's contract, not the closure-conversion pass's.
//
// The parser is intentionally small. Every error is recovered the same way:
// a panic carrying errPanicMode unwinds to the top-level parse loop, which
// records the diagnostic, advances past the offending token, and moves on to
// the next top-level form.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/scanner"
	"github.com/boxlisp/boxlisp/lang/token"
)

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// ParseProgram parses the whole of src (named filename for diagnostics) into
// a sequence of top-level forms. A form that failed to parse is omitted from
// the result; its diagnostic is recorded in the returned error, which is
// always a scanner.ErrorList (nil if parsing produced no diagnostics).
func ParseProgram(filename string, src []byte) ([]ast.Expr, error) {
	var p parser
	p.init(filename, src)

	var forms []ast.Expr
	for p.tok != token.EOF {
		if e := p.parseTopLevel(); e != nil {
			forms = append(forms, e)
		}
	}
	p.errors.Sort()
	return forms, p.errors.Err()
}

var errPanicMode = errors.New("parser panic mode")

type parser struct {
	file    *token.File
	scanner scanner.Scanner
	errors  ErrorList

	tok token.Token
	pos token.Pos
	lit string
}

func (p *parser) init(filename string, src []byte) {
	p.file = token.NewFile(filename, len(src))
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.pos, p.tok, p.lit = p.scanner.Scan()
}

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

func (p *parser) errorf(pos token.Pos, format string, args ...any) {
	p.error(pos, fmt.Sprintf(format, args...))
}

// expect consumes the current token if it matches tok, else records a
// diagnostic and panics into panic mode.
func (p *parser) expect(tok token.Token) token.Pos {
	if p.tok != tok {
		p.errorf(p.pos, "expected %s, found %s", tok.GoString(), p.tok.GoString())
		panic(errPanicMode)
	}
	pos := p.pos
	p.advance()
	return pos
}

func (p *parser) expectSymbol() (token.Pos, string) {
	if p.tok != token.SYMBOL {
		p.errorf(p.pos, "expected symbol, found %s", p.tok.GoString())
		panic(errPanicMode)
	}
	pos, lit := p.pos, p.lit
	p.advance()
	return pos, lit
}

// parseTopLevel parses one top-level form, recovering from a parse error by
// skipping one token and reporting the form as unparseable (nil).
func (p *parser) parseTopLevel() (e ast.Expr) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			if p.tok != token.EOF {
				p.advance()
			}
			e = nil
		}
	}()
	return p.parseExpr()
}

// parseExpr parses a single expression: an atom (int, symbol, nil) or a
// parenthesized form.
func (p *parser) parseExpr() ast.Expr {
	switch p.tok {
	case token.INT:
		pos, lit := p.pos, p.lit
		p.advance()
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			p.errorf(pos, "invalid integer literal: %s", lit)
			panic(errPanicMode)
		}
		return &ast.Int{At: pos, Value: n}

	case token.SYMBOL:
		pos, lit := p.pos, p.lit
		p.advance()
		return &ast.Var{At: pos, Name: lit}

	case token.NIL:
		pos := p.pos
		p.advance()
		return &ast.Var{At: pos, Name: "nil"}

	case token.LPAREN:
		return p.parseParenForm()

	default:
		p.errorf(p.pos, "unexpected %s", p.tok.GoString())
		panic(errPanicMode)
	}
}

func (p *parser) parseParenForm() ast.Expr {
	lparen := p.expect(token.LPAREN)

	if p.tok == token.RPAREN {
		// an empty form () denotes the nil runtime value, expressed as a
		// reference to the predeclared "nil" binding.
		p.advance()
		return &ast.Var{At: lparen, Name: "nil"}
	}

	switch p.tok {
	case token.DEFINE:
		return p.parseDefine(lparen)
	case token.SET:
		return p.parseSet(lparen)
	case token.LAMBDA:
		return p.parseLambda(lparen)
	case token.IF:
		return p.parseIf(lparen)
	case token.COND:
		return p.parseCond(lparen)
	case token.BEGIN:
		return p.parseBegin(lparen)
	case token.NOT, token.BOX, token.UNBOX:
		return p.parseUnaryPrim(lparen, p.tok)
	case token.AND, token.OR, token.SETBOX:
		return p.parseBinaryPrim(lparen, p.tok)
	case token.ADD, token.SUB, token.MUL, token.DIV, token.GT, token.LT, token.EQL:
		return p.parseArith(lparen, p.tok)
	default:
		return p.parseCall(lparen)
	}
}

func (p *parser) parseDefine(lparen token.Pos) ast.Expr {
	p.advance() // define
	if p.tok == token.LPAREN {
		// (define (f formals...) body...)
		p.advance()
		_, name := p.expectSymbol()
		var formals []string
		for p.tok != token.RPAREN {
			_, f := p.expectSymbol()
			formals = append(formals, f)
		}
		p.expect(token.RPAREN)

		var body []ast.Expr
		for p.tok != token.RPAREN {
			body = append(body, p.parseExpr())
		}
		p.expect(token.RPAREN)
		if len(body) == 0 {
			p.errorf(lparen, "function %s has an empty body", name)
			panic(errPanicMode)
		}
		return &ast.Function{At: lparen, Proto: &ast.Prototype{Name: name, Formals: formals}, Body: body}
	}

	// (define x expr)
	_, name := p.expectSymbol()
	init := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.VarDef{At: lparen, Name: name, Init: init}
}

func (p *parser) parseSet(lparen token.Pos) ast.Expr {
	p.advance() // set!
	_, name := p.expectSymbol()
	val := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.VarSet{At: lparen, Name: name, Value: val}
}

var lambdaCounter int

func (p *parser) parseLambda(lparen token.Pos) ast.Expr {
	p.advance() // lambda
	p.expect(token.LPAREN)
	var formals []string
	for p.tok != token.RPAREN {
		_, f := p.expectSymbol()
		formals = append(formals, f)
	}
	p.expect(token.RPAREN)

	var body []ast.Expr
	for p.tok != token.RPAREN {
		body = append(body, p.parseExpr())
	}
	p.expect(token.RPAREN)
	if len(body) == 0 {
		p.errorf(lparen, "lambda has an empty body")
		panic(errPanicMode)
	}

	lambdaCounter++
	name := fmt.Sprintf("lambda#%d", lambdaCounter)
	return &ast.Function{At: lparen, Proto: &ast.Prototype{Name: name, Formals: formals}, Body: body}
}

func (p *parser) parseIf(lparen token.Pos) ast.Expr {
	p.advance() // if
	pred := p.parseExpr()
	then := p.parseExpr()
	els := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.If{At: lparen, Pred: pred, Then: then, Else: els}
}

// parseCond lowers (cond (p1 e1) (p2 e2) ... (pk ek)) into the right-folded
// chain If(p1, e1, If(p2, e2, ..., If(pk, ek, Nil))) as it parses, per the
// parser's sugar-lowering contract. No ast.Cond node is ever returned.
func (p *parser) parseCond(lparen token.Pos) ast.Expr {
	p.advance() // cond

	var preds, results []ast.Expr
	for p.tok != token.RPAREN {
		clauseStart := p.expect(token.LPAREN)
		preds = append(preds, p.parseExpr())
		results = append(results, p.parseExpr())
		p.expect(token.RPAREN)
		_ = clauseStart
	}
	p.expect(token.RPAREN)

	var result ast.Expr = &ast.Nil{At: lparen}
	for i := len(preds) - 1; i >= 0; i-- {
		result = &ast.If{At: lparen, Pred: preds[i], Then: results[i], Else: result}
	}
	return result
}

func (p *parser) parseBegin(lparen token.Pos) ast.Expr {
	p.advance() // begin
	var exprs []ast.Expr
	for p.tok != token.RPAREN {
		exprs = append(exprs, p.parseExpr())
	}
	p.expect(token.RPAREN)
	if len(exprs) == 0 {
		p.errorf(lparen, "begin requires at least one expression")
		panic(errPanicMode)
	}
	return &ast.Begin{At: lparen, Exprs: exprs}
}

func (p *parser) parseUnaryPrim(lparen token.Pos, op token.Token) ast.Expr {
	p.advance()
	operand := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.Unary{At: lparen, Op: op, Operand: operand}
}

func (p *parser) parseBinaryPrim(lparen token.Pos, op token.Token) ast.Expr {
	p.advance()
	lhs := p.parseExpr()
	rhs := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.Binary{At: lparen, Op: op, Left: lhs, Right: rhs}
}

// parseArith parses an arithmetic/comparison operator form. A unary "-" form,
// (- x), is special-cased into Binary(sub, Int(0), x).
func (p *parser) parseArith(lparen token.Pos, op token.Token) ast.Expr {
	p.advance()
	first := p.parseExpr()
	if p.tok == token.RPAREN {
		p.advance()
		if op != token.SUB {
			p.errorf(lparen, "%s requires two operands", op.GoString())
			panic(errPanicMode)
		}
		return &ast.Binary{At: lparen, Op: token.SUB, Left: &ast.Int{At: lparen, Value: 0}, Right: first}
	}
	second := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.Binary{At: lparen, Op: op, Left: first, Right: second}
}

func (p *parser) parseCall(lparen token.Pos) ast.Expr {
	callee := p.parseExpr()
	hint := ""
	if v, ok := callee.(*ast.Var); ok {
		hint = v.Name
	}

	var args []ast.Expr
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr())
	}
	p.expect(token.RPAREN)
	return &ast.Call{At: lparen, Callee: callee, Args: args, SymbolHint: hint}
}

// String renders a slice of top-level forms back to source-ish text, used in
// diagnostics and tests.
func String(forms []ast.Expr) string {
	var sb strings.Builder
	for i, f := range forms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.String())
	}
	return sb.String()
}
