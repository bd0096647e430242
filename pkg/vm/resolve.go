package vm

// Resolve is the Go realization of §4.3's label-resolution/peephole sweep,
// adapted to this package's nested-instruction-region representation (see
// instr.go's package doc): since there are no Jump/Label placeholders to
// rewrite to absolute offsets here, resolution degenerates to (1) a small
// peephole that elides an OpPush immediately followed by an OpPop (dead
// code CodeGen can produce when a fusion rule leaves a pure value computed
// and then immediately discarded by an enclosing ThenRight/ThenLeft), run
// recursively over every nested region, and (2) freezing the result into a
// Program. It is exported because CodeGen.Generate documents calling it as
// a distinct second pass, matching the spec's two-pass shape even though,
// in this realization, the "absolute offset" bookkeeping the spec describes
// has no work left to do.
func Resolve(code []Instr) (*Program, error) {
	r := &resolver{seen: map[*[]Instr]bool{}}
	return &Program{Code: r.peephole(code)}, nil
}

// resolver guards OpCall's shared *[]Instr cells against being re-entered:
// a recursive Fixpoint's body contains an OpCall back to its own cell, so
// peepholing it naively would recurse forever. seen makes the walk a DAG
// traversal instead, matching the AST's own "DAG with Fixpoint back-edges"
// shape (§3 invariant (c)).
type resolver struct {
	seen map[*[]Instr]bool
}

func (r *resolver) peephole(code []Instr) []Instr {
	out := make([]Instr, 0, len(code))
	for i := 0; i < len(code); i++ {
		instr := code[i]
		if instr.Op == OpPush && i+1 < len(code) && code[i+1].Op == OpPop {
			i++ // drop both: the pushed value is immediately discarded
			continue
		}
		out = append(out, r.peepholeOne(instr))
	}
	return out
}

// peepholeOne recurses into a compound instruction's nested regions so the
// elision above also applies inside Alt/Many/Local/... bodies.
func (r *resolver) peepholeOne(instr Instr) Instr {
	switch instr.Op {
	case OpAttempt, OpLookAhead, OpNotFollowedBy, OpMany, OpSkipMany:
		if code, ok := instr.A1.([]Instr); ok {
			instr.A1 = r.peephole(code)
		}
	case OpAltChain:
		if codes, ok := instr.A1.([][]Instr); ok {
			out := make([][]Instr, len(codes))
			for i, c := range codes {
				out[i] = r.peephole(c)
			}
			instr.A1 = out
		}
	case OpJumpTable:
		if jt, ok := instr.A1.(jumpTableArgs); ok {
			table := make(map[rune][]Instr, len(jt.Table))
			for lead, c := range jt.Table {
				table[lead] = r.peephole(c)
			}
			jt.Table = table
			jt.Default = r.peephole(jt.Default)
			instr.A1 = jt
		}
	case OpTernary:
		if ta, ok := instr.A1.(ternaryArgs); ok {
			ta.B, ta.P, ta.Q = r.peephole(ta.B), r.peephole(ta.P), r.peephole(ta.Q)
			instr.A1 = ta
		}
	case OpChainPre, OpChainPost, OpChainLeft, OpChainRight:
		if ca, ok := instr.A1.(chainArgs); ok {
			ca.P, ca.Op = r.peephole(ca.P), r.peephole(ca.Op)
			instr.A1 = ca
		}
	case OpSepEndBy1:
		if sa, ok := instr.A1.(sepArgs); ok {
			sa.P, sa.Sep = r.peephole(sa.P), r.peephole(sa.Sep)
			instr.A1 = sa
		}
	case OpManyUntil:
		if ua, ok := instr.A1.(untilArgs); ok {
			ua.Body, ua.End = r.peephole(ua.Body), r.peephole(ua.End)
			instr.A1 = ua
		}
	case OpLocal:
		if la, ok := instr.A1.(localArgs); ok {
			la.P, la.Q = r.peephole(la.P), r.peephole(la.Q)
			instr.A1 = la
		}
	case OpEnsure, OpFastFail, OpFastUnexpected:
		if code, ok := instr.A1.([]Instr); ok {
			instr.A1 = r.peephole(code)
		}
	case OpGuard, OpFastGuard:
		if code, ok := instr.A1.([]Instr); ok {
			instr.A1 = r.peephole(code)
		}
	case OpCall:
		if ca, ok := instr.A1.(*callArgs); ok && ca.cell != nil && !r.seen[ca.cell] {
			r.seen[ca.cell] = true
			*ca.cell = r.peephole(*ca.cell)
		}
	case OpLogBegin:
		if la, ok := instr.A1.(logArgs); ok {
			la.Body = r.peephole(la.Body)
			instr.A1 = la
		}
	}
	return instr
}
