package machine

import (
	"github.com/boxlisp/boxlisp/lang/token"
)

// NilValue is the runtime's nil: a null Value pointer, not a distinct heap
// record. This doubles as the value a primitive returns, alongside an
// *AbortError, to signal an error (see Thread.abortf), which is what the
// ABI contract describes: "a
// null pointer return signals an error that the generator surfaces as a
// runtime abort."
var NilValue *Value

// NewInt64 allocates an Int64 record holding n.
func NewInt64(n int64) *Value {
	return &Value{Kind: Int64Kind, Int: n}
}

// AsBool reports whether v is truthy: non-nil, and if it is an Int64,
// non-zero.
func AsBool(v *Value) bool {
	if v == NilValue {
		return false
	}
	if v.Kind == Int64Kind {
		return v.Int != 0
	}
	return true
}

func boolValue(b bool) *Value {
	if b {
		return True
	}
	return False
}

// BinaryInt64 implements every op in the Unary/Binary AST token sets other
// than box/unbox/setbox, which have their own primitives below. l and r
// must be Int64 records, except when op is NOT, in which case r is
// ignored.
func BinaryInt64(th *Thread, op token.Token, l, r *Value) (*Value, error) {
	if l == nil || l.Kind != Int64Kind {
		return nil, th.abortf("operand is not an integer: %v", l)
	}
	switch op {
	case token.NOT:
		return boolValue(l.Int == 0), nil
	case token.ADD:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return NewInt64(l.Int + r.Int), nil
	case token.SUB:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return NewInt64(l.Int - r.Int), nil
	case token.MUL:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return NewInt64(l.Int * r.Int), nil
	case token.DIV:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		if r.Int == 0 {
			return nil, th.abortf("division by zero")
		}
		return NewInt64(l.Int / r.Int), nil
	case token.GT:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return boolValue(l.Int > r.Int), nil
	case token.LT:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return boolValue(l.Int < r.Int), nil
	case token.EQL:
		if r == nil || r.Kind != Int64Kind {
			return nil, th.abortf("operand is not an integer: %v", r)
		}
		return boolValue(l.Int == r.Int), nil
	case token.AND:
		return boolValue(AsBool(l) && AsBool(r)), nil
	case token.OR:
		return boolValue(AsBool(l) || AsBool(r)), nil
	default:
		return nil, th.abortf("binary_int64: unsupported operator %s", op)
	}
}

// NewFunctionRef wraps a raw code pointer and its arity as a FunctionRef
// record, the representation of a top-level function referenced as a
// first-class value (as opposed to called directly by name).
func NewFunctionRef(code NativeFunc, arity int) *Value {
	return &Value{Kind: FunctionRefKind, Code: code, Arity: arity}
}

// Box allocates a fresh Box record containing v.
func Box(v *Value) *Value {
	return &Value{Kind: BoxKind, Slot: v}
}

// Unbox returns the value contained in box b.
func Unbox(th *Thread, b *Value) (*Value, error) {
	if b == nil || b.Kind != BoxKind {
		return nil, th.abortf("unbox: not a box: %v", b)
	}
	return b.Slot, nil
}

// SetBox stores v into box b and returns the value previously held there.
func SetBox(th *Thread, b, v *Value) (*Value, error) {
	if b == nil || b.Kind != BoxKind {
		return nil, th.abortf("set_box: not a box: %v", b)
	}
	old := b.Slot
	b.Slot = v
	return old, nil
}

// NewClosure returns a Closure record whose code pointer is code and whose
// fields are members, each of which must be a Box.
func NewClosure(code NativeFunc, members []*Value) *Value {
	fields := make([]*Value, len(members))
	copy(fields, members)
	return &Value{Kind: ClosureKind, Code: code, Fields: fields}
}

// GetField reads field i of obj, a Closure record. Field 0 is not stored in
// Fields (it is the Code pointer carried directly on the record); i here
// is always >= 1, a captured box, per the closure-conversion pass's
// invariant that index 0 is reserved and never produced.
func GetField(th *Thread, obj *Value, i int) (*Value, error) {
	if obj == nil || obj.Kind != ClosureKind {
		return nil, th.abortf("getfield: not a closure: %v", obj)
	}
	idx := i - 1
	if idx < 0 || idx >= len(obj.Fields) {
		return nil, th.abortf("getfield: index %d out of range for closure of %d fields", i, len(obj.Fields))
	}
	return obj.Fields[idx], nil
}

// GetCallable returns the code pointer of v if it is a FunctionRef or
// Closure, and reports whether v was callable at all.
func GetCallable(v *Value) (NativeFunc, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind {
	case FunctionRefKind, ClosureKind:
		return v.Code, true
	default:
		return nil, false
	}
}

// TypeOf returns v's kind, used by the generator to decide whether a
// first-class callee needs its own record prepended as an implicit first
// argument (Closure) or not (FunctionRef).
func TypeOf(v *Value) Kind {
	if v == nil {
		return Kind(0xff)
	}
	return v.Kind
}
