package machine

// RootFrame is one frame of the thread-local root stack: the ABI's
// pgcstack convention, modeled here as an explicit Go slice on the Thread
// rather than a raw linked list of pointer-sized words, since nothing in
// this runtime scans it but the runtime itself. A function pushes a frame
// on entry and pops it on every return path; while live, a frame roots
// every formal (boxed or not) so that a value reachable only through it
// survives for the lifetime of the call, matching the ABI invariant that a
// heap value lives until its root stack frame is popped.
type RootFrame struct {
	slots []*Value
}

// PushFrame pushes a new root frame of the given slot count and returns it;
// the caller fills in slots as formals are bound.
func (th *Thread) PushFrame(n int) *RootFrame {
	fr := &RootFrame{slots: make([]*Value, n)}
	th.rootStack = append(th.rootStack, fr)
	return fr
}

// PopFrame pops the top root frame. It must be called on every return path
// of the function that pushed it, including error returns.
func (th *Thread) PopFrame() {
	th.rootStack = th.rootStack[:len(th.rootStack)-1]
}

// Set records v in slot i of fr, rooting it for the lifetime of the frame.
func (fr *RootFrame) Set(i int, v *Value) { fr.slots[i] = v }

// Get returns the value rooted at slot i of fr.
func (fr *RootFrame) Get(i int) *Value { return fr.slots[i] }

// Depth reports how many frames are currently pushed, for tests that check
// every call path pops what it pushes.
func (th *Thread) Depth() int { return len(th.rootStack) }
