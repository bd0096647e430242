package compile

import (
	"fmt"

	"github.com/combi-lang/combi/pkg/combi"
)

// Optimizer runs the optimise pass: a pure, bottom-up rewrite of an already
// preprocessed tree (no Lazy, no ErrorRelabel) into a smaller equivalent
// tree, trying the rules below at each node until none fire. Optimizer has
// no ambient parameter like Preprocessor's label, so memoization keys on
// plain node identity.
type Optimizer struct {
	memo map[combi.Node]combi.Node
}

// NewOptimizer returns an Optimizer ready to run one pass.
func NewOptimizer() *Optimizer {
	return &Optimizer{memo: make(map[combi.Node]combi.Node)}
}

// Optimize rewrites root to a fix-point under the rule set documented on
// each rewriteXxx helper. It returns a *CompileError if root contains an
// ill-formed iteration: a Many/SkipMany over a Pure body, or a
// ChainPre/ChainPost over a Pure operator (see CompileError).
func Optimize(root combi.Node) (combi.Node, error) {
	return NewOptimizer().optimize(root)
}

// maxLocalPasses bounds the per-node fix-point loop. Not every rule
// decreases measure() (see measure.go, whose test covers a fixed corpus
// only), so this bound is what guarantees the loop stops if rules ever
// rewrite a node back and forth.
const maxLocalPasses = 32

func (o *Optimizer) optimize(n combi.Node) (combi.Node, error) {
	if out, ok := o.memo[n]; ok {
		return out, nil
	}

	rebuilt, err := o.rebuildChildren(n)
	if err != nil {
		return nil, err
	}

	out := rebuilt
	for i := 0; i < maxLocalPasses; i++ {
		next, err := o.applyRules(out)
		if err != nil {
			return nil, err
		}
		if next == out {
			break
		}
		// A rule may have exposed a new composite shape whose own children
		// are themselves already-optimised nodes; re-run child rebuilding
		// once more so e.g. a freshly introduced ThenRight gets its own
		// fusions tried against its (already optimal) neighbors.
		rebuilt2, err := o.rebuildChildren(next)
		if err != nil {
			return nil, err
		}
		out = rebuilt2
	}

	o.memo[n] = out
	return out, nil
}

// rebuildChildren recurses into every child slot, leaving n's own shape and
// any non-Node fields untouched; it performs no local rewriting itself.
func (o *Optimizer) rebuildChildren(n combi.Node) (combi.Node, error) {
	switch t := n.(type) {
	case *combi.PureNode, *combi.LineNode, *combi.ColNode, *combi.PosNode,
		*combi.GetNode, *combi.ModifyNode, *combi.CharTokNode, *combi.StringTokNode,
		*combi.SatisfyNode, *combi.EofNode, *combi.EmptyNode, *combi.FailNode,
		*combi.UnexpectedNode, *combi.KeywordNode, *combi.OperatorNode,
		*combi.StringLiteralNode, *combi.RawStringLiteralNode, *combi.FixpointNode:
		return n, nil

	case *combi.ApplyNode:
		pf, px, err := o.two(t.PF, t.PX)
		if err != nil {
			return nil, err
		}
		return combi.Apply(pf, px), nil
	case *combi.ThenRightNode:
		p, q, err := o.two(t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.ThenRight(p, q), nil
	case *combi.ThenLeftNode:
		p, q, err := o.two(t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.ThenLeft(p, q), nil
	case *combi.BindNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Bind(p, t.K), nil
	case *combi.Lift2Node:
		p, q, err := o.two(t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.Lift2(t.F, p, q), nil
	case *combi.Lift3Node:
		p, q, r, err := o.three(t.P, t.Q, t.R)
		if err != nil {
			return nil, err
		}
		return combi.Lift3(t.F, p, q, r), nil
	case *combi.AltNode:
		p, q, err := o.two(t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.Alt(p, q), nil
	case *combi.AttemptNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Attempt(p), nil
	case *combi.LookAheadNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.LookAhead(p), nil
	case *combi.NotFollowedByNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.NotFollowedBy(p), nil
	case *combi.TernaryNode:
		b, p, q, err := o.three(t.B, t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.Ternary(b, p, q), nil
	case *combi.ManyNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Many(p), nil
	case *combi.SkipManyNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.SkipMany(p), nil
	case *combi.ChainPreNode:
		p, op, err := o.two(t.P, t.Op)
		if err != nil {
			return nil, err
		}
		return combi.ChainPre(p, op), nil
	case *combi.ChainPostNode:
		p, op, err := o.two(t.P, t.Op)
		if err != nil {
			return nil, err
		}
		return combi.ChainPost(p, op), nil
	case *combi.ChainLeftNode:
		p, op, err := o.two(t.P, t.Op)
		if err != nil {
			return nil, err
		}
		return combi.ChainLeft(p, op), nil
	case *combi.ChainRightNode:
		p, op, err := o.two(t.P, t.Op)
		if err != nil {
			return nil, err
		}
		return combi.ChainRight(p, op), nil
	case *combi.SepEndBy1Node:
		p, sep, err := o.two(t.P, t.Sep)
		if err != nil {
			return nil, err
		}
		return combi.SepEndBy1(p, sep), nil
	case *combi.ManyUntilNode:
		body, end, err := o.two(t.Body, t.End)
		if err != nil {
			return nil, err
		}
		return combi.ManyUntil(body, end), nil
	case *combi.FastFailNode:
		body, err := o.optimize(t.Body)
		if err != nil {
			return nil, err
		}
		return combi.FastFail(body, t.Gen), nil
	case *combi.FastUnexpectedNode:
		body, err := o.optimize(t.Body)
		if err != nil {
			return nil, err
		}
		return combi.FastUnexpected(body, t.Gen), nil
	case *combi.EnsureNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Ensure(p, t.Pred), nil
	case *combi.GuardNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Guard(p, t.Pred, t.Msg), nil
	case *combi.FastGuardNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.FastGuard(p, t.Pred, t.Gen), nil
	case *combi.PutNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Put(t.Reg, p), nil
	case *combi.LocalNode:
		p, q, err := o.two(t.P, t.Q)
		if err != nil {
			return nil, err
		}
		return combi.Local(t.Reg, p, q), nil
	case *combi.SubroutineNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Subroutine(p), nil
	case *combi.DebugNode:
		p, err := o.optimize(t.P)
		if err != nil {
			return nil, err
		}
		return combi.Debug(p, t.Name, t.When), nil

	case *combi.ErrorRelabelNode:
		panic("combi: ErrorRelabel must be absorbed by Preprocess before Optimize")

	case *combi.LazyNode:
		panic("combi: Lazy must be forced by Preprocess before Optimize")

	default:
		panic(fmt.Sprintf("combi/compile: optimise: unhandled node type %T", t))
	}
}

func (o *Optimizer) two(a, b combi.Node) (combi.Node, combi.Node, error) {
	ra, err := o.optimize(a)
	if err != nil {
		return nil, nil, err
	}
	rb, err := o.optimize(b)
	if err != nil {
		return nil, nil, err
	}
	return ra, rb, nil
}

func (o *Optimizer) three(a, b, c combi.Node) (combi.Node, combi.Node, combi.Node, error) {
	ra, rb, err := o.two(a, b)
	if err != nil {
		return nil, nil, nil, err
	}
	rc, err := o.optimize(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return ra, rb, rc, nil
}
