package vm

import (
	"fmt"

	"github.com/combi-lang/combi/pkg/combi"
)

// CodeGen mirrors pkg/hack.CodeGenerator's shape in the teacher: a struct
// carrying pass-local state, one entry point (Generate), and one unexported
// genXxx method per variant, dispatched from a type switch in gen. Unlike
// the teacher it also tracks Subroutine/Fixpoint sharing by physical node
// identity (SPEC_FULL.md §3.1).
type CodeGen struct {
	subs map[Node]*callArgs // keyed by the Subroutine/Fixpoint target's identity
}

// Generate compiles root (already Preprocessed and Optimized) into a
// Program. It is the top-down, continuation-free realization of §4.3 and
// recurses natively, one Go call per nested node; the only place it does not
// recurse is a reference to a Fixpoint/Subroutine target already being
// generated, which genShared turns into an OpCall through the target's
// shared callArgs cell.
func Generate(root Node) (*Program, error) {
	cg := &CodeGen{subs: map[Node]*callArgs{}}
	code, err := cg.gen(root)
	if err != nil {
		return nil, err
	}
	return Resolve(code)
}

func (cg *CodeGen) gen(n Node) ([]Instr, error) {
	switch t := n.(type) {
	case *combi.ErrorRelabelNode:
		panic("combi/vm: Generate: ErrorRelabel must be absorbed by Preprocess before Generate")
	case *combi.LazyNode:
		panic("combi/vm: Generate: Lazy must be forced by Preprocess before Generate")

	case *combi.PureNode:
		return []Instr{{Op: OpPush, A1: t.Value}}, nil
	case *combi.LineNode:
		return []Instr{{Op: OpLine}}, nil
	case *combi.ColNode:
		return []Instr{{Op: OpCol}}, nil
	case *combi.PosNode:
		return []Instr{{Op: OpPos}}, nil
	case *combi.GetNode:
		return []Instr{{Op: OpGet, A1: t.Reg}}, nil
	case *combi.ModifyNode:
		return []Instr{{Op: OpModify, A1: t.Reg, A2: t.Fn}}, nil

	case *combi.CharTokNode:
		return []Instr{{Op: OpCharTok, A1: t.Char, Expected: []string{t.Label()}}}, nil
	case *combi.StringTokNode:
		return []Instr{{Op: OpStringTok, A1: t.Str, Expected: []string{t.Label()}}}, nil
	case *combi.SatisfyNode:
		return []Instr{{Op: OpSatisfy, A1: t.Pred, Expected: []string{t.Label()}}}, nil
	case *combi.EofNode:
		return []Instr{{Op: OpEof, Expected: []string{t.Label()}}}, nil
	case *combi.KeywordNode:
		return []Instr{{Op: OpStringTok, A1: t.Word, Expected: []string{t.Label()}}}, nil
	case *combi.OperatorNode:
		return []Instr{{Op: OpStringTok, A1: t.Op, Expected: []string{t.Label()}}}, nil
	case *combi.StringLiteralNode:
		return []Instr{{Op: OpStringLiteral, A1: t.Quote, Expected: []string{t.Label()}}}, nil
	case *combi.RawStringLiteralNode:
		return []Instr{{Op: OpRawStringLiteral, A1: [2]string{t.Open, t.Close}, Expected: []string{t.Label()}}}, nil

	case *combi.ApplyNode:
		return cg.genApply(t)
	case *combi.ThenRightNode:
		return cg.genThenRight(t)
	case *combi.ThenLeftNode:
		return cg.genThenLeft(t)
	case *combi.BindNode:
		return cg.genBind(t)
	case *combi.Lift2Node:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		q, err := cg.gen(t.Q)
		if err != nil {
			return nil, err
		}
		return append(append(p, q...), Instr{Op: OpLift2, A1: t.F}), nil
	case *combi.Lift3Node:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		q, err := cg.gen(t.Q)
		if err != nil {
			return nil, err
		}
		r, err := cg.gen(t.R)
		if err != nil {
			return nil, err
		}
		code := append(p, q...)
		code = append(code, r...)
		return append(code, Instr{Op: OpLift3, A1: t.F}), nil

	case *combi.AltNode:
		return cg.genAlt(t)
	case *combi.AttemptNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpAttempt, A1: p}}, nil
	case *combi.LookAheadNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpLookAhead, A1: p}}, nil
	case *combi.NotFollowedByNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpNotFollowedBy, A1: p}}, nil
	case *combi.TernaryNode:
		b, err := cg.gen(t.B)
		if err != nil {
			return nil, err
		}
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		q, err := cg.gen(t.Q)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpTernary, A1: ternaryArgs{B: b, P: p, Q: q}}}, nil

	case *combi.ManyNode:
		return cg.genLoop(OpMany, t.P)
	case *combi.SkipManyNode:
		return cg.genLoop(OpSkipMany, t.P)
	case *combi.ChainPreNode:
		return cg.genChain(OpChainPre, t.P, t.Op)
	case *combi.ChainPostNode:
		return cg.genChain(OpChainPost, t.P, t.Op)
	case *combi.ChainLeftNode:
		return cg.genChain(OpChainLeft, t.P, t.Op)
	case *combi.ChainRightNode:
		return cg.genChain(OpChainRight, t.P, t.Op)
	case *combi.SepEndBy1Node:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		sep, err := cg.gen(t.Sep)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpSepEndBy1, A1: sepArgs{P: p, Sep: sep}}}, nil
	case *combi.ManyUntilNode:
		body, err := cg.gen(t.Body)
		if err != nil {
			return nil, err
		}
		end, err := cg.gen(t.End)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpManyUntil, A1: untilArgs{Body: body, End: end}}}, nil

	case *combi.EmptyNode:
		return []Instr{{Op: OpFail, Expected: labelSlice(t.Expected)}}, nil
	case *combi.FailNode:
		return []Instr{{Op: OpFail, A1: t.Msg}}, nil
	case *combi.UnexpectedNode:
		return []Instr{{Op: OpUnexpected, A1: t.Msg}}, nil
	case *combi.FastFailNode:
		body, err := cg.gen(t.Body)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpFastFail, A1: body, A2: t.Gen}}, nil
	case *combi.FastUnexpectedNode:
		body, err := cg.gen(t.Body)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpFastUnexpected, A1: body, A2: t.Gen}}, nil

	case *combi.EnsureNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpEnsure, A1: p, A2: t.Pred}}, nil
	case *combi.GuardNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpGuard, A1: p, A2: guardArgs{Pred: t.Pred, Msg: t.Msg}}}, nil
	case *combi.FastGuardNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpFastGuard, A1: p, A2: fastGuardArgs{Pred: t.Pred, Gen: t.Gen}}}, nil

	case *combi.PutNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		return append(p, Instr{Op: OpPut, A1: t.Reg}), nil
	case *combi.LocalNode:
		p, err := cg.gen(t.P)
		if err != nil {
			return nil, err
		}
		q, err := cg.gen(t.Q)
		if err != nil {
			return nil, err
		}
		return []Instr{{Op: OpLocal, A1: localArgs{Reg: t.Reg, P: p, Q: q}}}, nil

	case *combi.SubroutineNode:
		return cg.genShared(t, t.P)
	case *combi.FixpointNode:
		return cg.genShared(t, t.Target)

	case *combi.DebugNode:
		return cg.genDebug(t)

	default:
		panic(fmt.Sprintf("combi/vm: Generate: unhandled node type %T", n))
	}
}

type guardArgs struct {
	Pred func(any) bool
	Msg  string
}
type fastGuardArgs struct {
	Pred func(any) bool
	Gen  func(any) string
}

func labelSlice(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// genShared implements both Subroutine and Fixpoint: the first codegen of a
// given physical target emits its body and remembers the *callArgs cell by
// identity (SPEC_FULL.md §3.1's identity-keyed subroutine table); every
// later reference — including recursive ones reached before the target's
// own gen call returns — shares that cell. A recursive Fixpoint therefore
// always resolves, even though its target's code is still being generated
// when the cycle is first discovered: the cell is filled in after gen(target)
// returns, and OpCall only dereferences it at run time, never at codegen time.
func (cg *CodeGen) genShared(self, target Node) ([]Instr, error) {
	if args, ok := cg.subs[target]; ok {
		return []Instr{{Op: OpCall, A1: args}}, nil
	}
	args := &callArgs{}
	cg.subs[target] = args
	body, err := cg.gen(target)
	if err != nil {
		return nil, err
	}
	args.cell = &body
	return []Instr{{Op: OpCall, A1: args}}, nil
}

func (cg *CodeGen) genApply(t *combi.ApplyNode) ([]Instr, error) {
	if f, ok := asPureFn(t.PF); ok {
		switch px := t.PX.(type) {
		case *combi.CharTokNode:
			return []Instr{{Op: OpCharTokFastPerform, A1: px.Char, A2: f, Expected: labelSlice(px.Label())}}, nil
		case *combi.StringTokNode:
			return []Instr{{Op: OpStringTokFastPerform, A1: px.Str, A2: f, Expected: labelSlice(px.Label())}}, nil
		}
		body, err := cg.gen(t.PX)
		if err != nil {
			return nil, err
		}
		return append(body, Instr{Op: OpPerform, A1: f}), nil
	}
	pf, err := cg.gen(t.PF)
	if err != nil {
		return nil, err
	}
	px, err := cg.gen(t.PX)
	if err != nil {
		return nil, err
	}
	return append(append(pf, px...), Instr{Op: OpApply}), nil
}

func asPureFn(n Node) (func(any) any, bool) {
	p, ok := n.(*combi.PureNode)
	if !ok {
		return nil, false
	}
	f, ok := p.Value.(func(any) any)
	return f, ok
}

func (cg *CodeGen) genThenRight(t *combi.ThenRightNode) ([]Instr, error) {
	if x, ok := asPureValue(t.Q); ok {
		switch p := t.P.(type) {
		case *combi.CharTokNode:
			return []Instr{{Op: OpCharTokExchange, A1: p.Char, A2: x, Expected: labelSlice(p.Label())}}, nil
		case *combi.StringTokNode:
			return []Instr{{Op: OpStringTokExchange, A1: p.Str, A2: x, Expected: labelSlice(p.Label())}}, nil
		case *combi.SatisfyNode:
			return []Instr{{Op: OpSatisfyExchange, A1: p.Pred, A2: x, Expected: labelSlice(p.Label())}}, nil
		}
	}
	p, err := cg.gen(t.P)
	if err != nil {
		return nil, err
	}
	q, err := cg.gen(t.Q)
	if err != nil {
		return nil, err
	}
	code := append(p, Instr{Op: OpPop})
	return append(code, q...), nil
}

func asPureValue(n Node) (any, bool) {
	p, ok := n.(*combi.PureNode)
	if !ok {
		return nil, false
	}
	return p.Value, true
}

func (cg *CodeGen) genThenLeft(t *combi.ThenLeftNode) ([]Instr, error) {
	p, err := cg.gen(t.P)
	if err != nil {
		return nil, err
	}
	q, err := cg.gen(t.Q)
	if err != nil {
		return nil, err
	}
	code := append(p, q...)
	return append(code, Instr{Op: OpPop}), nil
}

func (cg *CodeGen) genBind(t *combi.BindNode) ([]Instr, error) {
	p, err := cg.gen(t.P)
	if err != nil {
		return nil, err
	}
	return append(p, Instr{Op: OpBindDynamic, A1: bindArgs{K: t.K}}), nil
}

func (cg *CodeGen) genLoop(op Op, body Node) ([]Instr, error) {
	code, err := cg.gen(body)
	if err != nil {
		return nil, err
	}
	return []Instr{{Op: op, A1: code}}, nil
}

func (cg *CodeGen) genChain(op Op, p, operator Node) ([]Instr, error) {
	pc, err := cg.gen(p)
	if err != nil {
		return nil, err
	}
	oc, err := cg.gen(operator)
	if err != nil {
		return nil, err
	}
	return []Instr{{Op: op, A1: chainArgs{P: pc, Op: oc}}}, nil
}

func (cg *CodeGen) genDebug(t *combi.DebugNode) ([]Instr, error) {
	body, err := cg.gen(t.P)
	if err != nil {
		return nil, err
	}
	args := logArgs{
		Name:    t.Name,
		Body:    body,
		OnEntry: t.When == combi.BreakEntry || t.When == combi.BreakBoth,
		OnExit:  t.When == combi.BreakExit || t.When == combi.BreakBoth,
	}
	return []Instr{{Op: OpLogBegin, A1: args}}, nil
}
