package closure

import "fmt"

// Scope classifies how a variable name resolves inside one function after
// conversion, for the benefit of the code generator: it never has to walk
// the lexical environment itself, only ask a *Info how a name was
// classified.
type Scope uint8

const (
	Undefined Scope = iota // name is not defined anywhere visible to this function
	Local                  // ordinary local: formal or VarDef, never boxed
	BoxedLocal             // local whose binding escapes to a nested function; stored boxed
	Captured               // free variable read through the closure's _obj field
	Global                 // a known top-level function or builtin
)

var scopeNames = [...]string{
	Undefined:  "undefined",
	Local:      "local",
	BoxedLocal: "boxed-local",
	Captured:   "captured",
	Global:     "global",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid scope %d>", s)
	}
	return scopeNames[s]
}
