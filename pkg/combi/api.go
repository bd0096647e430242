package combi

// ----------------------------------------------------------------------------
// Public combinator API

// This section is the seam to user code (SPEC_FULL.md §6): every function
// here builds one (or, for the handful of derived combinators at the bottom,
// a small tree of) Node values. None of it touches pkg/compile or pkg/vm —
// building a Node is just data construction, exactly like the teacher's
// parsing.go files build a goparsec AST out of package-level combinator
// values, just with constructor *functions* here instead of 'var' blocks
// (our combinators take arguments, goparsec's token parsers mostly don't).

// Pure always succeeds without consuming input, yielding x.
func Pure(x any) Node { return &PureNode{base: newBase(), Value: x} }

// Empty always fails without consuming input and carries no expected label.
func Empty() Node { return &EmptyNode{base: newBase()} }

// Fail always fails, reporting msg as the user-supplied message.
func Fail(msg string) Node { return &FailNode{base: newBase(), Msg: msg} }

// Unexpected always fails, reporting msg on the "unexpected" channel.
func Unexpected(msg string) Node { return &UnexpectedNode{base: newBase(), Msg: msg} }

// FastFail runs body for its value and then always fails with gen(value).
func FastFail(body Node, gen func(any) string) Node {
	return &FastFailNode{base: newBase(), Body: body, Gen: gen}
}

// FastUnexpected is FastFail reporting through the "unexpected" channel.
func FastUnexpected(body Node, gen func(any) string) Node {
	return &FastUnexpectedNode{base: newBase(), Body: body, Gen: gen}
}

// Line reads the current zero-based line.
func Line() Node { return &LineNode{base: newBase()} }

// Col reads the current zero-based column.
func Col() Node { return &ColNode{base: newBase()} }

// Pos reads the full current position.
func Pos() Node { return &PosNode{base: newBase()} }

// Get pushes the current value of register v.
func Get(v int) Node { return &GetNode{base: newBase(), Reg: v} }

// Modify applies f to register v in place.
func Modify(v int, f func(any) any) Node { return &ModifyNode{base: newBase(), Reg: v, Fn: f} }

// CharTok matches the literal rune c.
func CharTok(c rune) Node {
	return &CharTokNode{base: newBase(), Char: c, Expected: string(c)}
}

// StringTok matches the literal string s atomically.
func StringTok(s string) Node {
	return &StringTokNode{base: newBase(), Str: s, Expected: "\"" + s + "\""}
}

// Satisfy matches any single rune for which pred holds; expected is the
// label reported on failure.
func Satisfy(expected string, pred func(rune) bool) Node {
	return &SatisfyNode{base: newBase(), Pred: pred, Expected: expected}
}

// Eof succeeds only at the end of input.
func Eof() Node { return &EofNode{base: newBase()} }

// Apply is the applicative <*>.
func Apply(pf, px Node) Node { return &ApplyNode{base: newBase(), PF: pf, PX: px} }

// ThenRight runs p then q, keeping q's value.
func ThenRight(p, q Node) Node { return &ThenRightNode{base: newBase(), P: p, Q: q} }

// ThenLeft runs p then q, keeping p's value.
func ThenLeft(p, q Node) Node { return &ThenLeftNode{base: newBase(), P: p, Q: q} }

// Bind is the monadic >>=.
func Bind(p Node, k func(any) Node) Node { return &BindNode{base: newBase(), P: p, K: k} }

// Lift2 runs p and q in sequence, combining their values with f.
func Lift2(f func(a, b any) any, p, q Node) Node {
	return &Lift2Node{base: newBase(), F: f, P: p, Q: q}
}

// Lift3 runs p, q and r in sequence, combining their values with f.
func Lift3(f func(a, b, c any) any, p, q, r Node) Node {
	return &Lift3Node{base: newBase(), F: f, P: p, Q: q, R: r}
}

// Alt tries p, falling back to q only if p fails without consuming input.
func Alt(p, q Node) Node { return &AltNode{base: newBase(), P: p, Q: q} }

// Attempt rewinds the cursor if p fails, so an enclosing Alt always gets a
// chance at its other branch.
func Attempt(p Node) Node { return &AttemptNode{base: newBase(), P: p} }

// LookAhead runs p but rewinds the cursor on success, keeping p's value.
func LookAhead(p Node) Node { return &LookAheadNode{base: newBase(), P: p} }

// NotFollowedBy succeeds, consuming nothing, iff p fails here.
func NotFollowedBy(p Node) Node { return &NotFollowedByNode{base: newBase(), P: p} }

// Ternary continues with p if b yields true, else with q.
func Ternary(b, p, q Node) Node { return &TernaryNode{base: newBase(), B: b, P: p, Q: q} }

// Many repeats p zero or more times, collecting the results.
func Many(p Node) Node { return &ManyNode{base: newBase(), P: p} }

// SkipMany is Many, discarding the collected values.
func SkipMany(p Node) Node { return &SkipManyNode{base: newBase(), P: p} }

// ChainPre repeats a prefix operator zero or more times and applies the fold
// to a single p.
func ChainPre(p, op Node) Node { return &ChainPreNode{base: newBase(), P: p, Op: op} }

// ChainPost runs p once, then applies zero or more postfix operators.
func ChainPost(p, op Node) Node { return &ChainPostNode{base: newBase(), P: p, Op: op} }

// ChainLeft parses p (op p)* and left-folds the operators.
func ChainLeft(p, op Node) Node { return &ChainLeftNode{base: newBase(), P: p, Op: op} }

// ChainRight parses p (op p)* and right-folds the operators.
func ChainRight(p, op Node) Node { return &ChainRightNode{base: newBase(), P: p, Op: op} }

// SepEndBy1 parses one or more p separated, and optionally terminated, by
// sep.
func SepEndBy1(p, sep Node) Node { return &SepEndBy1Node{base: newBase(), P: p, Sep: sep} }

// ManyUntil repeats body until end succeeds, collecting body's values.
func ManyUntil(body, end Node) Node { return &ManyUntilNode{base: newBase(), Body: body, End: end} }

// Ensure keeps p's value only if pred holds for it.
func Ensure(p Node, pred func(any) bool) Node { return &EnsureNode{base: newBase(), P: p, Pred: pred} }

// Guard is Ensure, failing with msg instead of Empty.
func Guard(p Node, pred func(any) bool, msg string) Node {
	return &GuardNode{base: newBase(), P: p, Pred: pred, Msg: msg}
}

// FastGuard is Guard, computing the failure message from the value.
func FastGuard(p Node, pred func(any) bool, gen func(any) string) Node {
	return &FastGuardNode{base: newBase(), P: p, Pred: pred, Gen: gen}
}

// Put runs p and stores its value into register v.
func Put(v int, p Node) Node { return &PutNode{base: newBase(), Reg: v, P: p} }

// Local saves register v, runs p storing its result into v, runs q, then
// restores v on every exit path.
func Local(v int, p, q Node) Node { return &LocalNode{base: newBase(), Reg: v, P: p, Q: q} }

// ErrorLabel overrides the expected label reported by failures inside p.
func ErrorLabel(p Node, msg string) Node { return &ErrorRelabelNode{base: newBase(), P: p, Msg: msg} }

// Subroutine marks p for explicit code sharing across call sites.
func Subroutine(p Node) Node { return &SubroutineNode{base: newBase(), P: p} }

// Debug wraps p so codegen emits tracing instructions bracketing it.
func Debug(p Node, name string, when BreakPoint) Node {
	return &DebugNode{base: newBase(), P: p, Name: name, When: when}
}

// Keyword matches a literal reserved word (see SPEC_FULL.md §6 token-layer
// seam); its expected label is the bare word, unquoted.
func Keyword(word string) Node { return &KeywordNode{base: newBase(), Word: word} }

// Operator matches a literal operator spelling.
func Operator(op string) Node { return &OperatorNode{base: newBase(), Op: op} }

// StringLiteral scans a quote-delimited string literal with backslash
// escapes, yielding the unescaped contents.
func StringLiteral(quote rune) Node { return &StringLiteralNode{base: newBase(), Quote: quote} }

// RawStringLiteral scans a string literal delimited by arbitrary open/close
// markers, with no escape processing.
func RawStringLiteral(open, close string) Node {
	return &RawStringLiteralNode{base: newBase(), Open: open, Close: close}
}

// Fixpoint marks Target as the closing edge of a recursive grammar. Only
// pkg/compile's preprocess pass constructs these; user code never calls it
// directly.
func Fixpoint(target Node) Node { return &FixpointNode{base: newBase(), Target: target} }

// ----------------------------------------------------------------------------
// Derived combinators

// These are expressed in terms of the primitives above rather than as their
// own node kinds, matching the spec's "surface combinator sugar is an
// external collaborator" framing (§1): they are plain Go functions building
// a tree of the real, closed node set.

// Map applies f to p's value.
func Map(f func(any) any, p Node) Node {
	return Apply(Pure(f), p)
}

// Sequence runs every parser in ps in order and collects their values.
func Sequence(ps []Node) Node {
	if len(ps) == 0 {
		return Pure([]any{})
	}
	return Bind(ps[0], func(x any) Node {
		return Bind(Sequence(ps[1:]), func(rest any) Node {
			return Pure(append([]any{x}, rest.([]any)...))
		})
	})
}

// Traverse runs f(x) for every x in xs, in order, and collects the results.
func Traverse(f func(any) Node, xs []any) Node {
	ps := make([]Node, len(xs))
	for i, x := range xs {
		ps[i] = f(x)
	}
	return Sequence(ps)
}

// Join flattens a parser that produces another parser as its value.
func Join(p Node) Node {
	return Bind(p, func(inner any) Node { return inner.(Node) })
}
