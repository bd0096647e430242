package compile

import (
	"fmt"

	"github.com/combi-lang/combi/pkg/combi"
)

// preKey memoizes a rewrite by the physical node it started from and the
// error label in effect at that point in the tree: the same node reached
// through two different ErrorLabel wrappers must produce two distinct
// rewritten leaves, so the label is part of the key, not just the node.
type preKey struct {
	node  combi.Node
	label string
}

// Preprocessor runs the preprocess pass: it resolves Lazy back-edges into
// Fixpoint nodes, absorbs ErrorLabel overrides into the leaves that carry an
// 'expected' field, and shares already-rewritten subtrees by identity.
//
// A Preprocessor is not safe for concurrent use, since its seen set assumes
// a single depth-first walk in progress at a time; sequential calls on the
// same Preprocessor share its memo (see the Preprocess method).
type Preprocessor struct {
	seen map[combi.Node]struct{}
	memo map[preKey]combi.Node
}

// NewPreprocessor returns a Preprocessor ready to run one pass.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		seen: make(map[combi.Node]struct{}),
		memo: make(map[preKey]combi.Node),
	}
}

// Preprocess rewrites root, forcing every reachable Lazy thunk and resolving
// the resulting recursion into Fixpoint nodes.
func Preprocess(root combi.Node) (combi.Node, error) {
	return NewPreprocessor().Preprocess(root)
}

// Preprocess runs the pass using p's own seen/memo state, so a caller
// driving several related trees through the same Preprocessor shares
// rewritten subtrees across calls.
func (p *Preprocessor) Preprocess(root combi.Node) (combi.Node, error) {
	return p.rewrite(root, "")
}

// rewrite is a depth-first walk over the grammar, native Go recursion rather
// than the source's trampolined continuation-passing walk (SPEC_FULL.md
// §4.1/§9 "Deep recursion") — see DESIGN.md "pkg/compile recursion
// representation (Go realization deviation)" for why this is a deliberate,
// documented departure rather than an oversight. The three binary
// combinators most often chained to linear depth by generated or
// hand-rolled grammars (ThenRight, ThenLeft, Alt) still unroll their
// same-kind spine into a slice up front and rebuild it with a plain loop,
// which is the part of a real grammar's depth a trampoline would matter
// most for.
func (p *Preprocessor) rewrite(n combi.Node, label string) (combi.Node, error) {
	key := preKey{n, label}
	if out, ok := p.memo[key]; ok {
		return out, nil
	}
	if _, onPath := p.seen[n]; onPath {
		return combi.Fixpoint(n), nil
	}

	switch t := n.(type) {
	case *combi.LazyNode:
		p.seen[n] = struct{}{}
		out, err := p.rewrite(t.Force(), label)
		delete(p.seen, n)
		if err != nil {
			return nil, err
		}
		p.memo[key] = out
		return out, nil

	case combi.Labelable:
		out := n
		if label != "" {
			out = t.WithExpected(label)
		}
		p.memo[key] = out
		return out, nil

	case *combi.PureNode, *combi.LineNode, *combi.ColNode, *combi.PosNode,
		*combi.GetNode, *combi.ModifyNode,
		*combi.FailNode, *combi.UnexpectedNode, *combi.FixpointNode:
		p.memo[key] = n
		return n, nil

	case *combi.ThenRightNode:
		return p.rewriteThenRight(t, key, label)
	case *combi.ThenLeftNode:
		return p.rewriteThenLeft(t, key, label)
	case *combi.AltNode:
		return p.rewriteAlt(t, key, label)

	case *combi.ApplyNode:
		pf, px, err := p.rewriteTwo(n, t.PF, t.PX, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Apply(pf, px)), nil

	case *combi.BindNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		out := combi.Bind(pp, t.K)
		return p.store(key, out), nil

	case *combi.Lift2Node:
		pp, q, err := p.rewriteTwo(n, t.P, t.Q, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Lift2(t.F, pp, q)), nil

	case *combi.Lift3Node:
		pp, q, r, err := p.rewriteThree(n, t.P, t.Q, t.R, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Lift3(t.F, pp, q, r)), nil

	case *combi.AttemptNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Attempt(pp)), nil

	case *combi.LookAheadNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.LookAhead(pp)), nil

	case *combi.NotFollowedByNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.NotFollowedBy(pp)), nil

	case *combi.TernaryNode:
		b, pp, q, err := p.rewriteThree(n, t.B, t.P, t.Q, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Ternary(b, pp, q)), nil

	case *combi.ManyNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Many(pp)), nil

	case *combi.SkipManyNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.SkipMany(pp)), nil

	case *combi.ChainPreNode:
		pp, op, err := p.rewriteTwo(n, t.P, t.Op, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.ChainPre(pp, op)), nil

	case *combi.ChainPostNode:
		pp, op, err := p.rewriteTwo(n, t.P, t.Op, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.ChainPost(pp, op)), nil

	case *combi.ChainLeftNode:
		pp, op, err := p.rewriteTwo(n, t.P, t.Op, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.ChainLeft(pp, op)), nil

	case *combi.ChainRightNode:
		pp, op, err := p.rewriteTwo(n, t.P, t.Op, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.ChainRight(pp, op)), nil

	case *combi.SepEndBy1Node:
		pp, sep, err := p.rewriteTwo(n, t.P, t.Sep, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.SepEndBy1(pp, sep)), nil

	case *combi.ManyUntilNode:
		body, end, err := p.rewriteTwo(n, t.Body, t.End, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.ManyUntil(body, end)), nil

	case *combi.FastFailNode:
		body, err := p.rewriteChild(n, t.Body, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.FastFail(body, t.Gen)), nil

	case *combi.FastUnexpectedNode:
		body, err := p.rewriteChild(n, t.Body, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.FastUnexpected(body, t.Gen)), nil

	case *combi.EnsureNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Ensure(pp, t.Pred)), nil

	case *combi.GuardNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Guard(pp, t.Pred, t.Msg)), nil

	case *combi.FastGuardNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.FastGuard(pp, t.Pred, t.Gen)), nil

	case *combi.PutNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Put(t.Reg, pp)), nil

	case *combi.LocalNode:
		pp, q, err := p.rewriteTwo(n, t.P, t.Q, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Local(t.Reg, pp, q)), nil

	case *combi.ErrorRelabelNode:
		inner, err := p.rewriteChild(n, t.P, t.Msg)
		if err != nil {
			return nil, err
		}
		// ErrorRelabel is transparent: the label has already been absorbed
		// into every labelable descendant, so the node itself does not
		// survive into the tree pkg/compile's optimise/pkg/vm's codegen see.
		return p.store(key, inner), nil

	case *combi.SubroutineNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Subroutine(pp)), nil

	case *combi.DebugNode:
		pp, err := p.rewriteChild(n, t.P, label)
		if err != nil {
			return nil, err
		}
		return p.store(key, combi.Debug(pp, t.Name, t.When)), nil

	default:
		panic(fmt.Sprintf("combi/compile: preprocess: unhandled node type %T", n))
	}
}

func (p *Preprocessor) store(key preKey, out combi.Node) combi.Node {
	p.memo[key] = out
	return out
}

// rewriteChild walks n's single child c, with n pushed onto the seen set for
// the duration so a back-edge through c resolves to Fixpoint(n).
func (p *Preprocessor) rewriteChild(n, c combi.Node, label string) (combi.Node, error) {
	p.seen[n] = struct{}{}
	out, err := p.rewrite(c, label)
	delete(p.seen, n)
	return out, err
}

func (p *Preprocessor) rewriteTwo(n, a, b combi.Node, label string) (combi.Node, combi.Node, error) {
	p.seen[n] = struct{}{}
	ra, err := p.rewrite(a, label)
	if err != nil {
		delete(p.seen, n)
		return nil, nil, err
	}
	rb, err := p.rewrite(b, label)
	delete(p.seen, n)
	if err != nil {
		return nil, nil, err
	}
	return ra, rb, nil
}

func (p *Preprocessor) rewriteThree(n, a, b, c combi.Node, label string) (combi.Node, combi.Node, combi.Node, error) {
	p.seen[n] = struct{}{}
	ra, err := p.rewrite(a, label)
	if err != nil {
		delete(p.seen, n)
		return nil, nil, nil, err
	}
	rb, err := p.rewrite(b, label)
	if err != nil {
		delete(p.seen, n)
		return nil, nil, nil, err
	}
	rc, err := p.rewrite(c, label)
	delete(p.seen, n)
	if err != nil {
		return nil, nil, nil, err
	}
	return ra, rb, rc, nil
}

// rewriteThenRight flattens a ThenRight(P0, ThenRight(P1, ThenRight(P2,
// tail))) spine iteratively: every link on the spine is pushed onto seen up
// front, the tail and each P_i are rewritten (each only one call frame deep
// relative to this function), and the chain is rebuilt right to left with a
// plain loop instead of recursion.
func (p *Preprocessor) rewriteThenRight(root *combi.ThenRightNode, key preKey, label string) (combi.Node, error) {
	var chain []*combi.ThenRightNode
	cur := combi.Node(root)
	for {
		tr, ok := cur.(*combi.ThenRightNode)
		if !ok {
			break
		}
		if _, onPath := p.seen[combi.Node(tr)]; onPath {
			return combi.Fixpoint(combi.Node(tr)), nil
		}
		p.seen[combi.Node(tr)] = struct{}{}
		chain = append(chain, tr)
		cur = tr.Q
	}
	defer func() {
		for _, tr := range chain {
			delete(p.seen, combi.Node(tr))
		}
	}()

	out, err := p.rewrite(cur, label)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		left, err := p.rewrite(chain[i].P, label)
		if err != nil {
			return nil, err
		}
		out = combi.ThenRight(left, out)
	}
	return p.store(key, out), nil
}

// rewriteThenLeft is rewriteThenRight's mirror image for the left-leaning
// ThenLeft(ThenLeft(ThenLeft(tail, Q0), Q1), Q2) spine.
func (p *Preprocessor) rewriteThenLeft(root *combi.ThenLeftNode, key preKey, label string) (combi.Node, error) {
	var chain []*combi.ThenLeftNode
	cur := combi.Node(root)
	for {
		tl, ok := cur.(*combi.ThenLeftNode)
		if !ok {
			break
		}
		if _, onPath := p.seen[combi.Node(tl)]; onPath {
			return combi.Fixpoint(combi.Node(tl)), nil
		}
		p.seen[combi.Node(tl)] = struct{}{}
		chain = append(chain, tl)
		cur = tl.P
	}
	defer func() {
		for _, tl := range chain {
			delete(p.seen, combi.Node(tl))
		}
	}()

	out, err := p.rewrite(cur, label)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		right, err := p.rewrite(chain[i].Q, label)
		if err != nil {
			return nil, err
		}
		out = combi.ThenLeft(out, right)
	}
	return p.store(key, out), nil
}

// rewriteAlt is rewriteThenRight's mirror for Alt's right spine, the same
// shape pkg/vm's codegen later collects again to build a jump table.
func (p *Preprocessor) rewriteAlt(root *combi.AltNode, key preKey, label string) (combi.Node, error) {
	var chain []*combi.AltNode
	cur := combi.Node(root)
	for {
		alt, ok := cur.(*combi.AltNode)
		if !ok {
			break
		}
		if _, onPath := p.seen[combi.Node(alt)]; onPath {
			return combi.Fixpoint(combi.Node(alt)), nil
		}
		p.seen[combi.Node(alt)] = struct{}{}
		chain = append(chain, alt)
		cur = alt.Q
	}
	defer func() {
		for _, alt := range chain {
			delete(p.seen, combi.Node(alt))
		}
	}()

	out, err := p.rewrite(cur, label)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		left, err := p.rewrite(chain[i].P, label)
		if err != nil {
			return nil, err
		}
		out = combi.Alt(left, out)
	}
	return p.store(key, out), nil
}
