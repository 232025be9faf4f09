// Package closure implements closure conversion: the pass that takes a
// top-level function whose body may define other functions nested inside
// it, and rewrites it (and every function nested inside it, recursively)
// into a flat list of top-level functions with no nesting left, every free
// variable reference turned into an indexed load through an implicit
// closure-record argument, and every binding captured by some nested
// function boxed at its point of definition.
//
// The pass runs in four phases, in order, over the forest rooted at one
// top-level function:
//
//	A. collect and flatten nested Function nodes to their own top-level slot
//	B. compute each function's Defined/Used/InnerFunctions name sets
//	C. post-order solve which names escape and which are enclosed
//	D. rewrite every variable reference, assignment, and closure literal
//
// Phases are kept as separate passes over the same per-function state
// rather than folded into one traversal, because C genuinely needs every
// child already solved before its parent can be, and D needs every
// function's Enclosed list (including functions it is not itself related
// to by nesting) fully known before it can emit a single GetField.
package closure

import (
	"github.com/boxlisp/boxlisp/lang/ast"
	"github.com/boxlisp/boxlisp/lang/token"
)

// Info is the scope record computed for one function, exported so the code
// generator (and tests) can classify a name without re-running any part of
// the analysis.
type Info struct {
	Name     string
	Defined  map[string]bool
	Escaping map[string]bool
	Enclosed []string

	enclosedIndex map[string]int
}

// Classify reports how name resolves inside this function.
func (info *Info) Classify(name string) (Scope, int) {
	if info.Escaping[name] {
		return BoxedLocal, 0
	}
	if i, ok := info.enclosedIndex[name]; ok {
		return Captured, i
	}
	if info.Defined[name] {
		return Local, 0
	}
	return Undefined, 0
}

// Result is the output of Convert: every top-level function the pass
// produced (the root first, then each lifted inner function in the order
// Phase A discovered it) plus the scope record for each, keyed by the
// function's final (possibly flat) name.
type Result struct {
	Functions []*ast.Function
	Scopes    map[string]*Info
}

// funcState is the mutable working record for one function across all four
// phases. It is discarded once Convert returns.
type funcState struct {
	name  string
	at    token.Pos
	proto *ast.Prototype
	body  []ast.Expr

	parent   *funcState
	children []*funcState

	defined map[string]bool

	usedOrder []string
	usedSet   map[string]bool

	escaping map[string]bool

	enclosedOrder []string
	enclosedIndex map[string]int
}

func (fs *funcState) addUsed(name string) {
	if fs.usedSet[name] {
		return
	}
	fs.usedSet[name] = true
	fs.usedOrder = append(fs.usedOrder, name)
}

// converter holds the state shared across the whole forest rooted at one
// top-level function: the global table (so known globals are never boxed
// or enclosed) and the lookup from a flat name back to its funcState (so
// Phase D can look up a callee's Enclosed list while rewriting a Closure
// node from inside a different function's scope).
type converter struct {
	globals map[string]bool
	byName  map[string]*funcState
}

// Convert runs closure conversion on root, a single already-named top-level
// function (its own top-level name is taken as-is; only functions *nested*
// inside it are ever assigned a generated flat name). knownGlobals names
// every other top-level function already defined plus the built-ins the
// code generator links in externally; Convert reads it but never writes it.
func Convert(root *ast.Function, knownGlobals map[string]bool) *Result {
	c := &converter{
		globals: knownGlobals,
		byName:  map[string]*funcState{},
	}

	rootState := &funcState{name: root.Proto.Name, at: root.At, proto: root.Proto, body: root.Body}
	c.byName[rootState.name] = rootState

	all := c.phaseA(rootState)
	for _, fs := range all {
		c.phaseB(fs)
	}
	c.phaseC(rootState)
	for _, fs := range all {
		fs.enclosedIndex = make(map[string]int, len(fs.enclosedOrder))
		for i, n := range fs.enclosedOrder {
			fs.enclosedIndex[n] = i
		}
	}
	for _, fs := range all {
		c.phaseD(fs)
	}

	result := &Result{Scopes: map[string]*Info{}}
	for _, fs := range all {
		result.Functions = append(result.Functions, &ast.Function{At: fs.at, Proto: fs.proto, Body: fs.body})
		result.Scopes[fs.name] = &Info{
			Name:          fs.name,
			Defined:       fs.defined,
			Escaping:      fs.escaping,
			Enclosed:      fs.enclosedOrder,
			enclosedIndex: fs.enclosedIndex,
		}
	}
	return result
}

// phaseA breadth-first flattens root and every function nested inside it
// (transitively), returning the full forest in discovery order: root
// first, then each lifted function in the order it was found.
func (c *converter) phaseA(root *funcState) []*funcState {
	queue := []*funcState{root}
	var all []*funcState
	for len(queue) > 0 {
		fs := queue[0]
		queue = queue[1:]
		c.flattenBody(fs, &queue)
		all = append(all, fs)
	}
	return all
}

func (c *converter) flattenBody(fs *funcState, queue *[]*funcState) {
	for i, e := range fs.body {
		fs.body[i] = c.flattenExpr(fs, e, queue)
	}
}

func (c *converter) flattenExpr(fs *funcState, e ast.Expr, queue *[]*funcState) ast.Expr {
	switch n := e.(type) {
	case *ast.Function:
		return c.liftFunction(fs, n, queue)
	case *ast.VarDef:
		n.Init = c.flattenExpr(fs, n.Init, queue)
		return n
	case *ast.VarSet:
		n.Value = c.flattenExpr(fs, n.Value, queue)
		return n
	case *ast.GetField:
		n.Object = c.flattenExpr(fs, n.Object, queue)
		return n
	case *ast.Unary:
		n.Operand = c.flattenExpr(fs, n.Operand, queue)
		return n
	case *ast.Binary:
		n.Left = c.flattenExpr(fs, n.Left, queue)
		n.Right = c.flattenExpr(fs, n.Right, queue)
		return n
	case *ast.If:
		n.Pred = c.flattenExpr(fs, n.Pred, queue)
		n.Then = c.flattenExpr(fs, n.Then, queue)
		n.Else = c.flattenExpr(fs, n.Else, queue)
		return n
	case *ast.Begin:
		for i := range n.Exprs {
			n.Exprs[i] = c.flattenExpr(fs, n.Exprs[i], queue)
		}
		return n
	case *ast.Call:
		n.Callee = c.flattenExpr(fs, n.Callee, queue)
		for i := range n.Args {
			n.Args[i] = c.flattenExpr(fs, n.Args[i], queue)
		}
		return n
	default:
		// Int, Nil, Var carry no sub-expressions; Closure and Cond never
		// appear here (Cond is lowered away by the parser; Closure is only
		// ever introduced by this same pass, below).
		return e
	}
}

// liftFunction replaces a nested Function in situ with a VarDef binding its
// original name to a Closure construction, and enqueues the lifted
// function for its own Phase A pass.
func (c *converter) liftFunction(parent *funcState, fn *ast.Function, queue *[]*funcState) ast.Expr {
	flat := nextFlatName(fn.Proto.Name)

	formals := make([]string, 0, len(fn.Proto.Formals)+1)
	formals = append(formals, "_obj")
	formals = append(formals, fn.Proto.Formals...)

	child := &funcState{
		name:   flat,
		at:     fn.At,
		proto:  &ast.Prototype{Name: flat, Formals: formals},
		body:   fn.Body,
		parent: parent,
	}
	parent.children = append(parent.children, child)
	c.byName[flat] = child
	*queue = append(*queue, child)

	return &ast.VarDef{At: fn.At, Name: fn.Proto.Name, Init: &ast.Closure{At: fn.At, FlatName: flat}}
}

// phaseB computes fs.defined and fs.usedOrder/usedSet from the
// already-flattened body.
func (c *converter) phaseB(fs *funcState) {
	fs.defined = map[string]bool{fs.name: true}
	for _, f := range fs.proto.Formals {
		fs.defined[f] = true
	}
	for _, e := range fs.body {
		if def, ok := e.(*ast.VarDef); ok {
			fs.defined[def.Name] = true
		}
	}

	fs.usedSet = map[string]bool{}
	for _, e := range fs.body {
		collectUsed(e, fs.addUsed)
	}
}

// collectUsed walks e, reporting every variable name referenced (not
// defined) in textual order, including both sides of a VarSet.
func collectUsed(e ast.Expr, report func(string)) {
	switch n := e.(type) {
	case *ast.Var:
		report(n.Name)
	case *ast.VarDef:
		collectUsed(n.Init, report)
	case *ast.VarSet:
		report(n.Name)
		collectUsed(n.Value, report)
	case *ast.GetField:
		collectUsed(n.Object, report)
	case *ast.Unary:
		collectUsed(n.Operand, report)
	case *ast.Binary:
		collectUsed(n.Left, report)
		collectUsed(n.Right, report)
	case *ast.If:
		collectUsed(n.Pred, report)
		collectUsed(n.Then, report)
		collectUsed(n.Else, report)
	case *ast.Begin:
		for _, s := range n.Exprs {
			collectUsed(s, report)
		}
	case *ast.Cond:
		for i := range n.Preds {
			collectUsed(n.Preds[i], report)
			collectUsed(n.Results[i], report)
		}
	case *ast.Call:
		collectUsed(n.Callee, report)
		for _, a := range n.Args {
			collectUsed(a, report)
		}
	case *ast.Closure:
		for _, cap := range n.Captures {
			collectUsed(cap, report)
		}
	}
}

// phaseC walks the nesting forest leaves-first: every child's Enclosed
// list is fully known before its parent's Escaping and Enclosed are
// computed.
func (c *converter) phaseC(fs *funcState) {
	fs.escaping = map[string]bool{}

	for _, child := range fs.children {
		c.phaseC(child)
		for _, name := range child.enclosedOrder {
			fs.addUsed(name)
			if fs.defined[name] {
				fs.escaping[name] = true
			}
		}
	}

	for _, name := range fs.usedOrder {
		if fs.defined[name] || c.globals[name] {
			continue
		}
		fs.enclosedOrder = append(fs.enclosedOrder, name)
	}
}

// phaseD rewrites fs.body in place per the pass's rewrite rules, using the
// already-solved Escaping/Enclosed sets of fs and (for Closure nodes) of
// whichever function the closure targets.
func (c *converter) phaseD(fs *funcState) {
	for i, e := range fs.body {
		fs.body[i] = c.rewriteExpr(fs, e)
	}
}

func (c *converter) rewriteExpr(fs *funcState, e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Var:
		return c.rewriteVar(fs, n)
	case *ast.VarSet:
		n.Value = c.rewriteExpr(fs, n.Value)
		return c.rewriteVarSet(fs, n)
	case *ast.VarDef:
		n.Init = c.rewriteExpr(fs, n.Init)
		return c.rewriteVarDef(fs, n)
	case *ast.GetField:
		n.Object = c.rewriteExpr(fs, n.Object)
		return n
	case *ast.Unary:
		n.Operand = c.rewriteExpr(fs, n.Operand)
		return n
	case *ast.Binary:
		n.Left = c.rewriteExpr(fs, n.Left)
		n.Right = c.rewriteExpr(fs, n.Right)
		return n
	case *ast.If:
		n.Pred = c.rewriteExpr(fs, n.Pred)
		n.Then = c.rewriteExpr(fs, n.Then)
		n.Else = c.rewriteExpr(fs, n.Else)
		return n
	case *ast.Begin:
		for i := range n.Exprs {
			n.Exprs[i] = c.rewriteExpr(fs, n.Exprs[i])
		}
		return n
	case *ast.Call:
		n.Callee = c.rewriteExpr(fs, n.Callee)
		for i := range n.Args {
			n.Args[i] = c.rewriteExpr(fs, n.Args[i])
		}
		return n
	case *ast.Closure:
		return c.rewriteClosure(fs, n)
	default:
		return e
	}
}

func (c *converter) rewriteVar(fs *funcState, n *ast.Var) ast.Expr {
	if fs.escaping[n.Name] {
		return &ast.Unary{At: n.At, Op: token.UNBOX, Operand: n}
	}
	if i, ok := fs.enclosedIndex[n.Name]; ok {
		return &ast.Unary{At: n.At, Op: token.UNBOX, Operand: enclosedField(n.At, i)}
	}
	return n
}

func (c *converter) rewriteVarSet(fs *funcState, n *ast.VarSet) ast.Expr {
	if fs.escaping[n.Name] {
		return &ast.Binary{At: n.At, Op: token.SETBOX, Left: &ast.Var{At: n.At, Name: n.Name}, Right: n.Value}
	}
	if i, ok := fs.enclosedIndex[n.Name]; ok {
		return &ast.Binary{At: n.At, Op: token.SETBOX, Left: enclosedField(n.At, i), Right: n.Value}
	}
	return n
}

func (c *converter) rewriteVarDef(fs *funcState, n *ast.VarDef) ast.Expr {
	if fs.escaping[n.Name] {
		n.Init = &ast.Unary{At: n.At, Op: token.BOX, Operand: n.Init}
	}
	return n
}

// rewriteClosure fills in n.Captures: one field expression per entry of the
// target function's Enclosed list, each computed in the current function's
// scope. A capture that is itself enclosed here is re-threaded through
// this function's own _obj; otherwise it is read directly, which is always
// correct because a name that is escaping in the current scope is stored,
// unboxed, as a plain box pointer (see rewriteVarDef) - exactly what a
// closure capture needs.
func (c *converter) rewriteClosure(fs *funcState, n *ast.Closure) ast.Expr {
	target := c.byName[n.FlatName]
	fields := make([]ast.Expr, len(target.enclosedOrder))
	for j, name := range target.enclosedOrder {
		if i, ok := fs.enclosedIndex[name]; ok {
			fields[j] = enclosedField(n.At, i)
		} else {
			fields[j] = &ast.Var{At: n.At, Name: name}
		}
	}
	n.Captures = fields
	return n
}

func enclosedField(at token.Pos, enclosedIndex int) *ast.GetField {
	return &ast.GetField{At: at, Index: enclosedIndex + 1, Object: &ast.Var{At: at, Name: "_obj"}}
}
