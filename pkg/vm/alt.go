package vm

import "github.com/combi-lang/combi/pkg/combi"

// genAlt implements §4.3's tablification: Alt collects its right-spine into
// an ordered branch list, asks each branch for a leading rune via a
// purity-preserving walk, and — when at least two branches tablify — groups
// them into a rune-keyed jump table with the untablified remainder (or
// Empty) as the default path. Otherwise it falls back to the plain ordered
// alternation shape, which the Machine's OpAltChain handler drives with the
// same implicit-cut logic regardless of whether a given branch wrapped
// itself in Attempt (Attempt already rewinds the cursor on failure, making
// "consumed" false afterwards, so OpAltChain needs no separate Attempt
// flag — see DESIGN.md).
func (cg *CodeGen) genAlt(root *combi.AltNode) ([]Instr, error) {
	branches := flattenAlt(root)

	type lead struct {
		r   rune
		exp string
		ok  bool
	}
	leads := make([]lead, len(branches))
	tablifiable := 0
	for i, b := range branches {
		r, exp, ok := leadingToken(b)
		leads[i] = lead{r, exp, ok}
		if ok {
			tablifiable++
		}
	}

	if tablifiable < 2 {
		return cg.genPlainAlt(branches)
	}

	// Group tablifiable branches by leading rune, preserving branch order
	// within a group: two branches sharing a lead (e.g. StringTok("foo") and
	// StringTok("foobar")) must still be tried in order under that key, not
	// have the later one silently clobber the earlier one's slot.
	grouped := map[rune][]combi.Node{}
	var keyOrder []rune
	var expected []string
	var rest []combi.Node
	for i, b := range branches {
		if leads[i].ok {
			if _, ok := grouped[leads[i].r]; !ok {
				keyOrder = append(keyOrder, leads[i].r)
			}
			grouped[leads[i].r] = append(grouped[leads[i].r], b)
			expected = append(expected, leads[i].exp)
		} else {
			rest = append(rest, b)
		}
	}

	table := map[rune][]Instr{}
	for _, r := range keyOrder {
		code, err := cg.genPlainAltNodes(grouped[r])
		if err != nil {
			return nil, err
		}
		table[r] = code
	}

	var def []Instr
	if len(rest) > 0 {
		code, err := cg.genPlainAltNodes(rest)
		if err != nil {
			return nil, err
		}
		def = code
	} else {
		def = []Instr{{Op: OpFail, Expected: expected}}
	}

	return []Instr{{Op: OpJumpTable, A1: jumpTableArgs{Table: table, Default: def, Expected: expected}}}, nil
}

func flattenAlt(n combi.Node) []combi.Node {
	var out []combi.Node
	cur := n
	for {
		a, ok := cur.(*combi.AltNode)
		if !ok {
			out = append(out, cur)
			return out
		}
		out = append(out, a.P)
		cur = a.Q
	}
}

func (cg *CodeGen) genPlainAlt(branches []combi.Node) ([]Instr, error) {
	return cg.genPlainAltNodes(branches)
}

func (cg *CodeGen) genPlainAltNodes(branches []combi.Node) ([]Instr, error) {
	if len(branches) == 1 {
		return cg.gen(branches[0])
	}
	codes := make([][]Instr, len(branches))
	for i, b := range branches {
		c, err := cg.gen(b)
		if err != nil {
			return nil, err
		}
		codes[i] = c
	}
	return []Instr{{Op: OpAltChain, A1: codes}}, nil
}

// leadingToken recovers the discriminating first rune of a branch, walking
// through the purity-preserving wrappers listed in §4.3: Attempt,
// Apply(Pure(_), _), Lift2/Lift3, ThenRight, ThenLeft, and the primitive
// char/string/keyword/operator/literal leaves.
func leadingToken(n combi.Node) (rune, string, bool) {
	switch t := n.(type) {
	case *combi.AttemptNode:
		return leadingToken(t.P)
	case *combi.ApplyNode:
		if _, ok := t.PF.(*combi.PureNode); ok {
			return leadingToken(t.PX)
		}
		return 0, "", false
	case *combi.Lift2Node:
		return leadingToken(t.P)
	case *combi.Lift3Node:
		return leadingToken(t.P)
	case *combi.ThenRightNode:
		return leadingToken(t.P)
	case *combi.ThenLeftNode:
		return leadingToken(t.P)
	case *combi.CharTokNode:
		return t.Char, t.Label(), true
	case *combi.StringTokNode:
		if len(t.Str) == 0 {
			return 0, "", false
		}
		return []rune(t.Str)[0], t.Label(), true
	case *combi.KeywordNode:
		if len(t.Word) == 0 {
			return 0, "", false
		}
		return []rune(t.Word)[0], t.Label(), true
	case *combi.OperatorNode:
		if len(t.Op) == 0 {
			return 0, "", false
		}
		return []rune(t.Op)[0], t.Label(), true
	case *combi.StringLiteralNode:
		return t.Quote, t.Label(), true
	case *combi.RawStringLiteralNode:
		if len(t.Open) == 0 {
			return 0, "", false
		}
		return []rune(t.Open)[0], t.Label(), true
	default:
		return 0, "", false
	}
}
