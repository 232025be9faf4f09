package ast

import (
	"fmt"
	"strings"

	"github.com/boxlisp/boxlisp/lang/token"
)

type (
	// Int is an integer literal.
	Int struct {
		At    token.Pos
		Value int64
	}

	// Nil is the sentinel constant that ends the If chain a cond form is
	// lowered to (see parser.parseCond). An empty parenthesized form "()"
	// and the reserved word "nil" parse to Var("nil") instead.
	Nil struct {
		At token.Pos
	}

	// Var is a reference to a binding by name.
	Var struct {
		At   token.Pos
		Name string
	}

	// VarDef introduces a new local binding, e.g. (define x (+ 1 2)).
	VarDef struct {
		At   token.Pos
		Name string
		Init Expr
	}

	// VarSet assigns an existing binding, e.g. (set! x (+ x 1)).
	VarSet struct {
		At    token.Pos
		Name  string
		Value Expr
	}

	// GetField reads field Index of the heap record Object evaluates to.
	// Index 0 is reserved for a closure's code pointer and is never produced
	// by the closure-conversion pass; only indices >= 1 (captured boxes) are.
	GetField struct {
		At     token.Pos
		Index  int
		Object Expr
	}

	// Unary is a unary primitive application: not, box or unbox.
	Unary struct {
		At      token.Pos
		Op      token.Token
		Operand Expr
	}

	// Binary is a binary primitive application: + - * / > < = and or setbox.
	Binary struct {
		At    token.Pos
		Op    token.Token
		Left  Expr
		Right Expr
	}

	// If is a three-arm conditional.
	If struct {
		At   token.Pos
		Pred Expr
		Then Expr
		Else Expr
	}

	// Begin sequences one or more expressions; its value is that of the last.
	Begin struct {
		At    token.Pos
		Exprs []Expr
	}

	// Cond represents the surface "cond" form: parallel lists of predicates
	// and results. The parser lowers every Cond to a chain of Ifs as it
	// parses (see parser.parseCond), so a Cond node never survives past
	// parsing; it is declared here to document the surface grammar and to let
	// tests exercise the lowering in isolation.
	Cond struct {
		At      token.Pos
		Preds   []Expr
		Results []Expr
	}

	// Call is a function application. SymbolHint is the literal text of the
	// callee position's first token when it was a bare symbol, and empty
	// otherwise; the code generator uses it to recognize calls to known
	// global functions that can be dispatched directly.
	Call struct {
		At         token.Pos
		Callee     Expr
		Args       []Expr
		SymbolHint string
	}

	// Closure constructs a closure record for FlatName, a top-level function
	// produced by the closure-conversion pass. It is introduced by Phase A in
	// place of a nested Function, and its Captures list is filled in by
	// Phase D once FlatName's enclosed-variable layout is known.
	Closure struct {
		At       token.Pos
		FlatName string
		Captures []Expr
	}

	// Function is a function definition: top-level before closure
	// conversion, or a name produced by flattening a nested definition after
	// it. It owns its Prototype and Body exclusively.
	Function struct {
		At    token.Pos
		Proto *Prototype
		Body  []Expr
	}
)

func (n *Int) Pos() token.Pos { return n.At }
func (n *Int) Walk(v Visitor) {}
func (n *Int) expr()          {}
func (n *Int) String() string { return fmt.Sprintf("%d", n.Value) }

func (n *Nil) Pos() token.Pos { return n.At }
func (n *Nil) Walk(v Visitor) {}
func (n *Nil) expr()          {}
func (n *Nil) String() string { return "nil" }

func (n *Var) Pos() token.Pos { return n.At }
func (n *Var) Walk(v Visitor) {}
func (n *Var) expr()          {}
func (n *Var) String() string { return n.Name }

func (n *VarDef) Pos() token.Pos { return n.At }
func (n *VarDef) Walk(v Visitor) { Walk(v, n.Init) }
func (n *VarDef) expr()          {}
func (n *VarDef) String() string { return fmt.Sprintf("(define %s %s)", n.Name, n.Init) }

func (n *VarSet) Pos() token.Pos { return n.At }
func (n *VarSet) Walk(v Visitor) { Walk(v, n.Value) }
func (n *VarSet) expr()          {}
func (n *VarSet) String() string { return fmt.Sprintf("(set! %s %s)", n.Name, n.Value) }

func (n *GetField) Pos() token.Pos { return n.At }
func (n *GetField) Walk(v Visitor) { Walk(v, n.Object) }
func (n *GetField) expr()          {}
func (n *GetField) String() string { return fmt.Sprintf("(getfield %d %s)", n.Index, n.Object) }

func (n *Unary) Pos() token.Pos { return n.At }
func (n *Unary) Walk(v Visitor) { Walk(v, n.Operand) }
func (n *Unary) expr()          {}
func (n *Unary) String() string { return fmt.Sprintf("(%s %s)", n.Op, n.Operand) }

func (n *Binary) Pos() token.Pos { return n.At }
func (n *Binary) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }
func (n *Binary) expr()          {}
func (n *Binary) String() string { return fmt.Sprintf("(%s %s %s)", n.Op, n.Left, n.Right) }

func (n *If) Pos() token.Pos { return n.At }
func (n *If) Walk(v Visitor) { Walk(v, n.Pred); Walk(v, n.Then); Walk(v, n.Else) }
func (n *If) expr()          {}
func (n *If) String() string { return fmt.Sprintf("(if %s %s %s)", n.Pred, n.Then, n.Else) }

func (n *Begin) Pos() token.Pos { return n.At }
func (n *Begin) Walk(v Visitor) {
	for _, e := range n.Exprs {
		Walk(v, e)
	}
}
func (n *Begin) expr() {}
func (n *Begin) String() string {
	parts := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(begin %s)", strings.Join(parts, " "))
}

func (n *Cond) Pos() token.Pos { return n.At }
func (n *Cond) Walk(v Visitor) {
	for i := range n.Preds {
		Walk(v, n.Preds[i])
		Walk(v, n.Results[i])
	}
}
func (n *Cond) expr() {}
func (n *Cond) String() string {
	parts := make([]string, len(n.Preds))
	for i := range n.Preds {
		parts[i] = fmt.Sprintf("(%s %s)", n.Preds[i], n.Results[i])
	}
	return fmt.Sprintf("(cond %s)", strings.Join(parts, " "))
}

func (n *Call) Pos() token.Pos { return n.At }
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *Call) expr() {}
func (n *Call) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", n.Callee, strings.Join(parts, " "))
}

func (n *Closure) Pos() token.Pos { return n.At }
func (n *Closure) Walk(v Visitor) {
	for _, c := range n.Captures {
		Walk(v, c)
	}
}
func (n *Closure) expr() {}
func (n *Closure) String() string {
	parts := make([]string, len(n.Captures))
	for i, c := range n.Captures {
		parts[i] = c.String()
	}
	return fmt.Sprintf("(closure %s %s)", n.FlatName, strings.Join(parts, " "))
}

func (n *Function) Pos() token.Pos { return n.At }
func (n *Function) Walk(v Visitor) {
	for _, e := range n.Body {
		Walk(v, e)
	}
}
func (n *Function) expr() {}
func (n *Function) String() string {
	parts := make([]string, len(n.Body))
	for i, e := range n.Body {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(define (%s %s) %s)", n.Proto.Name, strings.Join(n.Proto.Formals, " "), strings.Join(parts, " "))
}
