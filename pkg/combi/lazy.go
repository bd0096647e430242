package combi

// ----------------------------------------------------------------------------
// Recursive user parsers

// LazyNode is the one node whose child slot is not set at construction time.
// It exists so that user grammars can tie a recursive knot in Go, which has
// no by-name parameters: a caller declares a variable, builds a LazyNode
// whose thunk closes over that same variable, and assigns it back before the
// thunk ever runs.
//
//	var p combi.Node
//	p = combi.Lazy(func() combi.Node {
//		return combi.Alt(combi.CharTok('a'), combi.Lift2(cons, combi.CharTok('b'), p))
//	})
//
// When the preprocess pass forces the thunk, the nested reference to 'p'
// inside the closure is the very same *LazyNode pointer already pushed onto
// the pass's "seen" set, so the pass detects the revisit by identity and
// substitutes a FixpointNode instead of recursing forever.
type LazyNode struct {
	base
	Thunk    func() Node
	resolved Node
	forced   bool
}

// Lazy wraps thunk in a node suitable for tying recursive grammars together.
func Lazy(thunk func() Node) Node {
	return &LazyNode{base: newBase(), Thunk: thunk}
}

// Resolved reports the node produced by Thunk, if Force has already run.
func (l *LazyNode) Resolved() (Node, bool) { return l.resolved, l.forced }

// Force calls Thunk exactly once and remembers the result; subsequent calls
// return the cached value. Only pkg/compile's preprocess pass should call
// this, under its identity-keyed "seen" set.
func (l *LazyNode) Force() Node {
	if !l.forced {
		l.resolved = l.Thunk()
		l.forced = true
	}
	return l.resolved
}
