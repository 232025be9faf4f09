// Package machine implements the runtime the code generator targets: a
// small set of tagged heap values and the primitive operations the
// generated code calls to allocate, inspect, and combine them.
//
// Unlike a dynamically typed language runtime built on a Value interface
// with many concrete implementations, this runtime has exactly one Go type
// for every value a program can produce. A Value is a tagged record; its
// Kind says which of its fields are meaningful. That mirrors the heap
// layout the generated code actually relies on: kind, field count, then
// inline fields.
package machine

import "fmt"

// Kind discriminates the shape of a Value. It corresponds directly to the
// runtime's record kinds.
type Kind uint8

const (
	Int64Kind Kind = iota
	BoxKind
	FunctionRefKind
	ClosureKind
)

var kindNames = [...]string{
	Int64Kind:       "int64",
	BoxKind:         "box",
	FunctionRefKind: "function-ref",
	ClosureKind:     "closure",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("<invalid kind %d>", k)
	}
	return kindNames[k]
}

// NativeFunc is the shape every compiled top-level function takes: it
// receives its arguments already evaluated to Values (the first of which
// is the closure record itself, _obj, for a function lifted out of a
// nested definition) and returns a single Value or an error standing in
// for a runtime abort.
type NativeFunc func(th *Thread, args []*Value) (*Value, error)

// Value is a runtime tagged value: a heap record with a Kind and, per
// kind, a subset of the fields below populated:
//
//	Int64Kind:       Int
//	BoxKind:         Slot
//	FunctionRefKind: Code, Arity
//	ClosureKind:     Code, Fields (each a *Value of kind BoxKind)
type Value struct {
	Kind Kind

	Int int64 // Int64Kind

	Slot *Value // BoxKind: the boxed value

	Code  NativeFunc // FunctionRefKind, ClosureKind
	Arity int        // FunctionRefKind

	Fields []*Value // ClosureKind: the captured boxes, in Enclosed order
}

// singleton true/false Int64 records, allocated once at package init, as
// the ABI requires: returned by reference, never copied.
var (
	True  = &Value{Kind: Int64Kind, Int: 1}
	False = &Value{Kind: Int64Kind, Int: 0}
)

func (v *Value) String() string {
	switch v.Kind {
	case Int64Kind:
		return fmt.Sprintf("%d", v.Int)
	case BoxKind:
		return fmt.Sprintf("box(%s)", v.Slot)
	case FunctionRefKind:
		return fmt.Sprintf("function-ref/%d", v.Arity)
	case ClosureKind:
		return fmt.Sprintf("closure[%d]", len(v.Fields))
	default:
		return "<invalid value>"
	}
}
