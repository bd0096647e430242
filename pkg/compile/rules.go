package compile

import "github.com/combi-lang/combi/pkg/combi"

// applyRules tries the rewrite rules below against n's current (already
// child-optimised) shape, in the order listed in each block, first match
// wins. It returns n itself, unchanged, when nothing fires.
//
// Not implemented: the three-deep curried-applicative-chain fusion and the
// interchange/composition variants that would require knowing the arity of
// a user-supplied closure beyond "func(any) any" — the 'any'-erased node
// fields give no way to recover that statically, so those two chain shapes
// pass through as built. Every rule that only needs structural shape (not
// closure arity) is implemented in full.
func (o *Optimizer) applyRules(n combi.Node) (combi.Node, error) {
	switch t := n.(type) {
	case *combi.ApplyNode:
		return o.applyApply(t)
	case *combi.AltNode:
		return o.applyAlt(t), nil
	case *combi.ThenRightNode:
		return o.applyThenRight(t), nil
	case *combi.ThenLeftNode:
		return o.applyThenLeft(t), nil
	case *combi.BindNode:
		return o.applyBind(t)
	case *combi.EnsureNode:
		return o.applyEnsure(t), nil
	case *combi.GuardNode:
		return o.applyGuard(t), nil
	case *combi.FastGuardNode:
		return o.applyFastGuard(t), nil
	case *combi.FastFailNode:
		return o.applyFastFail(t), nil
	case *combi.FastUnexpectedNode:
		return o.applyFastUnexpected(t), nil
	case *combi.TernaryNode:
		return o.applyTernary(t), nil
	case *combi.StringTokNode:
		if t.Str == "" {
			return combi.Pure(""), nil
		}
		return n, nil
	case *combi.ManyNode:
		return o.applyMany(t)
	case *combi.SkipManyNode:
		return o.applySkipMany(t)
	case *combi.ChainPreNode:
		return o.applyChainPre(t)
	case *combi.ChainPostNode:
		return o.applyChainPost(t)
	}
	return n, nil
}

// ---- shared predicates ----

func asPure(n combi.Node) (any, bool) {
	if p, ok := n.(*combi.PureNode); ok {
		return p.Value, true
	}
	return nil, false
}

func isMZero(n combi.Node) bool {
	switch n.(type) {
	case *combi.EmptyNode, *combi.FailNode, *combi.UnexpectedNode:
		return true
	}
	return false
}

// asLiteral reports the text and natural result value of a CharTok or
// StringTok leaf, for the adjacent-literal fusion and constant-carrier Bind
// rules.
func asLiteral(n combi.Node) (text string, value any, ok bool) {
	switch t := n.(type) {
	case *combi.CharTokNode:
		return string(t.Char), t.Char, true
	case *combi.StringTokNode:
		return t.Str, t.Str, true
	}
	return "", nil, false
}

func asFunc1(v any) (func(any) any, bool) {
	f, ok := v.(func(any) any)
	return f, ok
}

// ---- Apply ----

func (o *Optimizer) applyApply(t *combi.ApplyNode) (combi.Node, error) {
	// Fusion: Apply(Pure(f), Pure(x)) -> Pure(f(x))
	if fv, ok := asPure(t.PF); ok {
		if xv, ok := asPure(t.PX); ok {
			if f, ok := asFunc1(fv); ok {
				return combi.Pure(f(xv)), nil
			}
		}
	}
	// Functor composition: Apply(Pure(f), Apply(Pure(g), u)) -> Apply(Pure(f o g), u)
	if fv, ok := asPure(t.PF); ok {
		if inner, ok := t.PX.(*combi.ApplyNode); ok {
			if gv, ok := asPure(inner.PF); ok {
				f, fok := asFunc1(fv)
				g, gok := asFunc1(gv)
				if fok && gok {
					composed := func(x any) any { return f(g(x)) }
					return combi.Apply(combi.Pure(composed), inner.PX), nil
				}
			}
		}
	}
	// Absorption
	if isMZero(t.PF) {
		return t.PF, nil
	}
	if isMZero(t.PX) {
		return combi.ThenRight(t.PF, t.PX), nil
	}
	// Re-association to expose fusions.
	if tr, ok := t.PF.(*combi.ThenRightNode); ok {
		return combi.ThenRight(tr.P, combi.Apply(tr.Q, t.PX)), nil
	}
	if tl, ok := t.PX.(*combi.ThenLeftNode); ok {
		return combi.ThenLeft(combi.Apply(t.PF, tl.P), tl.Q), nil
	}
	if tr, ok := t.PX.(*combi.ThenRightNode); ok {
		if xv, ok := asPure(tr.Q); ok {
			return combi.ThenLeft(combi.Apply(t.PF, combi.Pure(xv)), tr.P), nil
		}
	}
	// Interchange: Apply(u, Pure(x)) -> Apply(Pure(\f. f x), u)
	if xv, ok := asPure(t.PX); ok {
		if _, isApply := t.PF.(*combi.PureNode); !isApply {
			flip := func(fv any) any {
				f, _ := asFunc1(fv)
				return f(xv)
			}
			return combi.Apply(combi.Pure(flip), t.PF), nil
		}
	}
	return t, nil
}

// ---- Alt ----

func (o *Optimizer) applyAlt(t *combi.AltNode) combi.Node {
	if _, ok := asPure(t.P); ok {
		return t.P
	}
	if e, ok := t.P.(*combi.EmptyNode); ok && e.Expected == "" {
		return t.Q
	}
	if e, ok := t.Q.(*combi.EmptyNode); ok && e.Expected == "" {
		return t.P
	}
	if inner, ok := t.P.(*combi.AltNode); ok {
		return combi.Alt(inner.P, combi.Alt(inner.Q, t.Q))
	}
	return t
}

// ---- ThenRight / ThenLeft ----

func (o *Optimizer) applyThenRight(t *combi.ThenRightNode) combi.Node {
	if _, ok := asPure(t.P); ok {
		return t.Q
	}
	if isMZero(t.P) {
		return t.P
	}
	// Adjacent-literal fusion leaves the node count unchanged (Char+Char and
	// String+Pure are both 3 nodes); it terminates because the fused shape
	// never matches this same pattern again, not because measure() drops.
	if litA, _, okA := asLiteral(t.P); okA {
		if litB, valB, okB := asLiteral(t.Q); okB {
			return combi.ThenRight(combi.StringTok(litA+litB), combi.Pure(valB))
		}
	}
	if inner, ok := t.P.(*combi.ThenRightNode); ok {
		return combi.ThenRight(inner.P, combi.ThenRight(inner.Q, t.Q))
	}
	return t
}

func (o *Optimizer) applyThenLeft(t *combi.ThenLeftNode) combi.Node {
	if _, ok := asPure(t.Q); ok {
		return t.P
	}
	if isMZero(t.P) {
		return t.P
	}
	if isMZero(t.Q) {
		return combi.ThenRight(t.P, t.Q)
	}
	if xv, ok := asPure(t.P); ok {
		return combi.ThenRight(t.Q, combi.Pure(xv))
	}
	if litA, valA, okA := asLiteral(t.P); okA {
		if litB, _, okB := asLiteral(t.Q); okB {
			return combi.ThenRight(combi.StringTok(litA+litB), combi.Pure(valA))
		}
	}
	if inner, ok := t.Q.(*combi.ThenLeftNode); ok {
		return combi.ThenLeft(combi.ThenLeft(t.P, inner.P), inner.Q)
	}
	return t
}

// ---- Bind ----

func (o *Optimizer) applyBind(t *combi.BindNode) (combi.Node, error) {
	if isMZero(t.P) {
		return t.P, nil
	}
	if xv, ok := asPure(t.P); ok {
		expanded, err := o.optimize(t.K(xv))
		if err != nil {
			return nil, err
		}
		return combi.Fixpoint(expanded), nil
	}
	if lit, val, ok := asLiteral(t.P); ok {
		expanded, err := o.optimize(t.K(val))
		if err != nil {
			return nil, err
		}
		return combi.ThenRight(combi.StringTok(lit), combi.Fixpoint(expanded)), nil
	}
	if tr, ok := t.P.(*combi.ThenRightNode); ok {
		return combi.ThenRight(tr.P, combi.Bind(tr.Q, t.K)), nil
	}
	if inner, ok := t.P.(*combi.BindNode); ok {
		g, k := inner.K, t.K
		return combi.Bind(inner.P, func(x any) combi.Node { return combi.Bind(g(x), k) }), nil
	}
	return t, nil
}

// ---- Filtering / Ternary ----

func (o *Optimizer) applyEnsure(t *combi.EnsureNode) combi.Node {
	if xv, ok := asPure(t.P); ok {
		if t.Pred(xv) {
			return combi.Pure(xv)
		}
		return combi.Empty()
	}
	return t
}

func (o *Optimizer) applyGuard(t *combi.GuardNode) combi.Node {
	if xv, ok := asPure(t.P); ok {
		if t.Pred(xv) {
			return combi.Pure(xv)
		}
		return combi.Fail(t.Msg)
	}
	return t
}

func (o *Optimizer) applyFastGuard(t *combi.FastGuardNode) combi.Node {
	if xv, ok := asPure(t.P); ok {
		if t.Pred(xv) {
			return combi.Pure(xv)
		}
		return combi.Fail(t.Gen(xv))
	}
	return t
}

func (o *Optimizer) applyFastFail(t *combi.FastFailNode) combi.Node {
	if xv, ok := asPure(t.Body); ok {
		return combi.Fail(t.Gen(xv))
	}
	return t
}

func (o *Optimizer) applyFastUnexpected(t *combi.FastUnexpectedNode) combi.Node {
	if xv, ok := asPure(t.Body); ok {
		return combi.Unexpected(t.Gen(xv))
	}
	return t
}

func (o *Optimizer) applyTernary(t *combi.TernaryNode) combi.Node {
	if bv, ok := asPure(t.B); ok {
		if b, ok := bv.(bool); ok {
			if b {
				return t.P
			}
			return t.Q
		}
	}
	return t
}

// ---- Iteration guards ----

func (o *Optimizer) applyMany(t *combi.ManyNode) (combi.Node, error) {
	if _, ok := asPure(t.P); ok {
		return nil, errf("Many", "body always succeeds without consuming input; would loop forever")
	}
	if isMZero(t.P) {
		return combi.Pure([]any{}), nil
	}
	return t, nil
}

func (o *Optimizer) applySkipMany(t *combi.SkipManyNode) (combi.Node, error) {
	if _, ok := asPure(t.P); ok {
		return nil, errf("SkipMany", "body always succeeds without consuming input; would loop forever")
	}
	if isMZero(t.P) {
		return combi.Pure(struct{}{}), nil
	}
	return t, nil
}

func (o *Optimizer) applyChainPre(t *combi.ChainPreNode) (combi.Node, error) {
	if _, ok := asPure(t.Op); ok {
		return nil, errf("ChainPre", "operator always succeeds without consuming input; would loop forever")
	}
	if isMZero(t.Op) {
		return t.P, nil
	}
	return t, nil
}

func (o *Optimizer) applyChainPost(t *combi.ChainPostNode) (combi.Node, error) {
	if _, ok := asPure(t.Op); ok {
		return nil, errf("ChainPost", "operator always succeeds without consuming input; would loop forever")
	}
	if isMZero(t.Op) {
		return t.P, nil
	}
	return t, nil
}
