// Package ast defines the expression tree produced by the parser and
// rewritten in place by the closure-conversion pass.
//
// Unlike a statement-oriented language, every construct here is an
// expression: there is no separate Stmt hierarchy. A top-level form parses to
// either a *Function or any other Expr (see Prototype for why Function is
// special).
package ast

import (
	"fmt"

	"github.com/boxlisp/boxlisp/lang/token"
)

// Node is implemented by every participant in the expression tree.
type Node interface {
	// Walk visits the node's immediate children, in evaluation order.
	Walk(v Visitor)
}

// Expr is an expression node. It is a closed sum type: the only
// implementations are the ones declared in this package.
type Expr interface {
	Node
	fmt.Stringer

	// Pos returns the position of the token that introduced this expression,
	// for use in diagnostics.
	Pos() token.Pos

	expr()
}

// Prototype is the signature of a function: its name and ordered formal
// parameter names. Function nodes own their prototype exclusively.
type Prototype struct {
	Name    string
	Formals []string
}

// IsFunction reports whether e is a *Function and returns it.
func IsFunction(e Expr) (*Function, bool) {
	fn, ok := e.(*Function)
	return fn, ok
}
