package machine

import (
	"fmt"
	"io"
	"os"
)

// Thread carries the per-execution state the runtime primitives need: the
// root stack (see frame.go) and the I/O streams a running program's
// primitives are allowed to touch. The driver runs every top-level form it
// evaluates on its one Thread; the pipeline is strictly sequential, so a
// Thread is never shared across goroutines.
type Thread struct {
	// Name optionally identifies the thread for diagnostics.
	Name string

	// Stdout and Stderr are the standard I/O abstractions for the thread. If
	// nil, os.Stdout and os.Stderr are used respectively.
	Stdout io.Writer
	Stderr io.Writer

	rootStack []*RootFrame

	stdout io.Writer
	stderr io.Writer
}

func (th *Thread) init() {
	if th.stdout != nil {
		return
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
}

// AbortError is returned by a runtime primitive to signal that execution of
// the current top-level form must stop immediately: a call to the `error`
// primitive, or a contract violation it is responsible for catching (e.g.
// get_callable on a non-callable, unbox of a non-box).
type AbortError struct {
	Message string
}

func (e *AbortError) Error() string { return e.Message }

// abortf prints a diagnostic to the thread's error stream, as every runtime
// abort does, and returns the AbortError the generator's call machinery
// propagates up to the driver.
func (th *Thread) abortf(format string, args ...any) error {
	th.init()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(th.stderr, msg)
	return &AbortError{Message: msg}
}

// Error implements the `error` runtime primitive directly: it prints msg
// and returns an AbortError. Unlike the other primitives it never has a
// successful outcome; the generator emits a call to it only on paths that
// are already known to be erroneous.
func (th *Thread) Error(msg string) error {
	return th.abortf("%s", msg)
}

// Call invokes fn with args, recording the root-stack depth before the call
// and truncating the stack back to it afterwards, so that a function that
// aborts mid-call without popping its frame still leaves the root stack
// balanced.
func Call(th *Thread, fn NativeFunc, args []*Value) (*Value, error) {
	th.init()
	depth := th.Depth()
	v, err := fn(th, args)
	if th.Depth() != depth {
		// a generated function failed to pop its own frame on some return
		// path; restore balance rather than let the imbalance compound.
		th.rootStack = th.rootStack[:depth]
	}
	return v, err
}
