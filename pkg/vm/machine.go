package vm

import (
	"strings"

	"github.com/combi-lang/combi/pkg/compile"
	"github.com/combi-lang/combi/pkg/trace"
)

const numRegisters = 4

// tabStop is the column width Line/Col accounting advances to on a tab,
// matching the teacher's fixed-width assumption in its own position
// tracking (pkg/jack's scanner, now adapted here for combi.Pos/Line/Col).
const tabStop = 4

// Machine is a single parse run's interpreter state. Every field here is
// local to one Run call; Program and Instr carry no mutable state, which is
// what lets Parser.Run construct a fresh Machine per call without locking
// anything (§5, §9).
type Machine struct {
	input []rune
	pos   int
	line  int
	col   int

	regs [numRegisters]any

	tracer trace.Tracer

	// bindCache memoizes the compiled Program for a dynamically produced
	// Bind continuation, keyed by the Node's physical identity: a grammar
	// that binds into the same handful of continuations repeatedly (e.g. a
	// recursive-descent expression grammar threading a precedence level
	// through Bind) should not recompile them on every occurrence.
	bindCache map[Node]*Program
}

func newMachine(input []rune, tracer trace.Tracer) *Machine {
	if tracer == nil {
		tracer = trace.NopTracer{}
	}
	return &Machine{input: input, line: 0, col: 0, tracer: tracer, bindCache: map[Node]*Program{}}
}

func (m *Machine) position() Position {
	return Position{Offset: m.pos, Line: m.line, Col: m.col}
}

// checkpoint/restoreTo implement the cursor save/rewind every Attempt,
// LookAhead, NotFollowedBy and loop-termination check in this file relies
// on: a plain value copy, since Position is the entire mutable cursor state.
type checkpoint struct {
	pos, line, col int
}

func (m *Machine) checkpoint() checkpoint {
	return checkpoint{m.pos, m.line, m.col}
}

func (m *Machine) restoreTo(c checkpoint) {
	m.pos, m.line, m.col = c.pos, c.line, c.col
}

func (m *Machine) advance() {
	c := m.input[m.pos]
	m.pos++
	if c == '\n' {
		m.line++
		m.col = 0
		return
	}
	if c == '\t' {
		m.col = (m.col/tabStop + 1) * tabStop
		return
	}
	m.col++
}

func (m *Machine) matchLiteral(s string) bool {
	runes := []rune(s)
	if m.pos+len(runes) > len(m.input) {
		return false
	}
	for i, r := range runes {
		if m.input[m.pos+i] != r {
			return false
		}
	}
	for range runes {
		m.advance()
	}
	return true
}

// run executes one instruction region to completion and returns its single
// net value, exactly as every other region that references it (via a
// compound op's nested field) expects. It is the whole interpreter: every
// compound op dispatches back into run for its nested region(s), so Go's
// own call stack stands in for the spec's explicit handler/call stacks.
func (m *Machine) run(code []Instr) (any, *Failure) {
	var stack []any
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v any) { stack = append(stack, v) }

	for _, instr := range code {
		switch instr.Op {
		case OpPush:
			push(instr.A1)
		case OpPop:
			pop()
		case OpPerform:
			x := pop()
			push(instr.A1.(func(any) any)(x))
		case OpApply:
			x := pop()
			f := pop()
			push(f.(func(any) any)(x))
		case OpLift2:
			b := pop()
			a := pop()
			push(instr.A1.(func(any, any) any)(a, b))
		case OpLift3:
			c := pop()
			b := pop()
			a := pop()
			push(instr.A1.(func(any, any, any) any)(a, b, c))
		case OpBindDynamic:
			x := pop()
			v, err := m.execBind(instr.A1.(bindArgs), x)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpCharTok:
			v, err := m.execCharTok(instr.A1.(rune), instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)
		case OpStringTok:
			v, err := m.execStringTok(instr.A1.(string), instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)
		case OpSatisfy:
			v, err := m.execSatisfy(instr.A1.(func(rune) bool), instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)
		case OpEof:
			if m.pos < len(m.input) {
				return nil, newFailure(m.position(), expectedOf(instr.Expected, "end of input"))
			}
			push(nil)
		case OpStringLiteral:
			v, err := m.execStringLiteral(instr.A1.(rune), instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)
		case OpRawStringLiteral:
			delims := instr.A1.([2]string)
			v, err := m.execRawStringLiteral(delims[0], delims[1], instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpCharTokFastPerform:
			c := instr.A1.(rune)
			f := instr.A2.(func(any) any)
			v, err := m.execCharTok(c, instr.Expected)
			if err != nil {
				return nil, err
			}
			push(f(v))
		case OpStringTokFastPerform:
			s := instr.A1.(string)
			f := instr.A2.(func(any) any)
			v, err := m.execStringTok(s, instr.Expected)
			if err != nil {
				return nil, err
			}
			push(f(v))
		case OpCharTokExchange:
			c := instr.A1.(rune)
			_, err := m.execCharTok(c, instr.Expected)
			if err != nil {
				return nil, err
			}
			push(instr.A2)
		case OpStringTokExchange:
			s := instr.A1.(string)
			_, err := m.execStringTok(s, instr.Expected)
			if err != nil {
				return nil, err
			}
			push(instr.A2)
		case OpSatisfyExchange:
			p := instr.A1.(func(rune) bool)
			_, err := m.execSatisfy(p, instr.Expected)
			if err != nil {
				return nil, err
			}
			push(instr.A2)

		case OpLine:
			push(m.line)
		case OpCol:
			push(m.col)
		case OpPos:
			push(m.position())
		case OpGet:
			push(m.regs[instr.A1.(int)])
		case OpModify:
			reg := instr.A1.(int)
			m.regs[reg] = instr.A2.(func(any) any)(m.regs[reg])
			push(nil)
		case OpPut:
			x := pop()
			m.regs[instr.A1.(int)] = x
			push(nil)

		case OpFail:
			if msg, ok := instr.A1.(string); ok {
				return nil, &Failure{Pos: m.position(), Message: msg}
			}
			return nil, &Failure{Pos: m.position(), Expected: instr.Expected}
		case OpUnexpected:
			return nil, &Failure{Pos: m.position(), Unexpected: instr.A1.(string)}
		case OpFastFail:
			v, err := m.run(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			return nil, &Failure{Pos: m.position(), Message: instr.A2.(func(any) string)(v)}
		case OpFastUnexpected:
			v, err := m.run(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			return nil, &Failure{Pos: m.position(), Unexpected: instr.A2.(func(any) string)(v)}
		case OpEnsure:
			v, err := m.run(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			if !instr.A2.(func(any) bool)(v) {
				return nil, &Failure{Pos: m.position()}
			}
			push(v)
		case OpGuard:
			ga := instr.A2.(guardArgs)
			v, err := m.run(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			if !ga.Pred(v) {
				return nil, &Failure{Pos: m.position(), Message: ga.Msg}
			}
			push(v)
		case OpFastGuard:
			ga := instr.A2.(fastGuardArgs)
			v, err := m.run(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			if !ga.Pred(v) {
				return nil, &Failure{Pos: m.position(), Message: ga.Gen(v)}
			}
			push(v)

		case OpAttempt:
			v, err := m.execAttempt(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpLookAhead:
			v, err := m.execLookAhead(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpNotFollowedBy:
			v, err := m.execNotFollowedBy(instr.A1.([]Instr), instr.Expected)
			if err != nil {
				return nil, err
			}
			push(v)
		case OpAltChain:
			v, err := m.execAltChain(instr.A1.([][]Instr))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpJumpTable:
			v, err := m.execJumpTable(instr.A1.(jumpTableArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpTernary:
			v, err := m.execTernary(instr.A1.(ternaryArgs))
			if err != nil {
				return nil, err
			}
			push(v)

		case OpMany:
			v, err := m.execMany(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpSkipMany:
			err := m.execSkipMany(instr.A1.([]Instr))
			if err != nil {
				return nil, err
			}
			push(nil)
		case OpChainPre:
			v, err := m.execChainPre(instr.A1.(chainArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpChainPost:
			v, err := m.execChainPost(instr.A1.(chainArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpChainLeft:
			v, err := m.execChainLeft(instr.A1.(chainArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpChainRight:
			v, err := m.execChainRight(instr.A1.(chainArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpSepEndBy1:
			v, err := m.execSepEndBy1(instr.A1.(sepArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpManyUntil:
			v, err := m.execManyUntil(instr.A1.(untilArgs))
			if err != nil {
				return nil, err
			}
			push(v)

		case OpLocal:
			v, err := m.execLocal(instr.A1.(localArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		case OpCall:
			ca := instr.A1.(*callArgs)
			v, err := m.run(*ca.cell)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpLogBegin:
			v, err := m.execDebug(instr.A1.(logArgs))
			if err != nil {
				return nil, err
			}
			push(v)
		}
	}

	if len(stack) == 0 {
		return nil, nil
	}
	return stack[len(stack)-1], nil
}

func expectedOf(explicit []string, fallback string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	return []string{fallback}
}

func (m *Machine) execCharTok(c rune, expected []string) (any, *Failure) {
	if m.pos < len(m.input) && m.input[m.pos] == c {
		m.advance()
		return c, nil
	}
	return nil, newFailure(m.position(), expectedOf(expected, string(c)))
}

func (m *Machine) execStringTok(s string, expected []string) (any, *Failure) {
	save := m.checkpoint()
	if m.matchLiteral(s) {
		return s, nil
	}
	m.restoreTo(save)
	return nil, newFailure(m.position(), expectedOf(expected, s))
}

func (m *Machine) execSatisfy(pred func(rune) bool, expected []string) (any, *Failure) {
	if m.pos < len(m.input) && pred(m.input[m.pos]) {
		c := m.input[m.pos]
		m.advance()
		return c, nil
	}
	return nil, newFailure(m.position(), expectedOf(expected, "character satisfying predicate"))
}

func (m *Machine) execStringLiteral(quote rune, expected []string) (any, *Failure) {
	save := m.checkpoint()
	if m.pos >= len(m.input) || m.input[m.pos] != quote {
		return nil, newFailure(m.position(), expectedOf(expected, "string literal"))
	}
	m.advance()
	var sb strings.Builder
	for {
		if m.pos >= len(m.input) {
			m.restoreTo(save)
			return nil, newFailure(m.position(), expectedOf(expected, "terminated string literal"))
		}
		c := m.input[m.pos]
		if c == quote {
			m.advance()
			return sb.String(), nil
		}
		if c == '\\' {
			m.advance()
			if m.pos >= len(m.input) {
				m.restoreTo(save)
				return nil, newFailure(m.position(), expectedOf(expected, "terminated string literal"))
			}
			sb.WriteRune(unescape(m.input[m.pos]))
			m.advance()
			continue
		}
		sb.WriteRune(c)
		m.advance()
	}
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (m *Machine) execRawStringLiteral(open, close string, expected []string) (any, *Failure) {
	save := m.checkpoint()
	if !m.matchLiteral(open) {
		return nil, newFailure(m.position(), expectedOf(expected, open))
	}
	var sb strings.Builder
	for {
		if m.matchLiteral(close) {
			return sb.String(), nil
		}
		if m.pos >= len(m.input) {
			m.restoreTo(save)
			return nil, newFailure(m.position(), expectedOf(expected, "terminated raw string"))
		}
		sb.WriteRune(m.input[m.pos])
		m.advance()
	}
}

// execAttempt rewinds the cursor on failure so an enclosing alternation
// sees zero consumption, while the returned Failure keeps the position it
// actually failed at for error reporting (§4.4, §7).
func (m *Machine) execAttempt(body []Instr) (any, *Failure) {
	save := m.checkpoint()
	v, err := m.run(body)
	if err != nil {
		m.restoreTo(save)
		return nil, err
	}
	return v, nil
}

// execLookAhead parses body for its value but never consumes input on
// success; on failure, the cursor is left wherever body left it, same as
// any other failing parser (only success rewinds here).
func (m *Machine) execLookAhead(body []Instr) (any, *Failure) {
	save := m.checkpoint()
	v, err := m.run(body)
	if err != nil {
		return nil, err
	}
	m.restoreTo(save)
	return v, nil
}

// execNotFollowedBy always rewinds, succeeding (with a nil value) exactly
// when body fails, and failing when body succeeds.
func (m *Machine) execNotFollowedBy(body []Instr, expected []string) (any, *Failure) {
	save := m.checkpoint()
	_, err := m.run(body)
	m.restoreTo(save)
	if err == nil {
		return nil, &Failure{Pos: m.position(), Expected: expected, Message: "unexpected input"}
	}
	return nil, nil
}

// execAltChain implements implicit-cut ordered alternation: the first
// branch that consumes input commits, whether it then succeeds or fails.
// Only branches that fail having consumed nothing are tried in sequence,
// with their failures unioned via mergeFailures (§4.4).
func (m *Machine) execAltChain(branches [][]Instr) (any, *Failure) {
	var accumulated *Failure
	for _, branch := range branches {
		save := m.checkpoint()
		v, err := m.run(branch)
		if err == nil {
			return v, nil
		}
		if m.pos != save.pos {
			return nil, err
		}
		accumulated = mergeFailures(accumulated, err)
	}
	return nil, accumulated
}

func (m *Machine) execJumpTable(jt jumpTableArgs) (any, *Failure) {
	if m.pos < len(m.input) {
		if code, ok := jt.Table[m.input[m.pos]]; ok {
			return m.run(code)
		}
	}
	return m.run(jt.Default)
}

func (m *Machine) execTernary(ta ternaryArgs) (any, *Failure) {
	b, err := m.run(ta.B)
	if err != nil {
		return nil, err
	}
	if b.(bool) {
		return m.run(ta.P)
	}
	return m.run(ta.Q)
}

func (m *Machine) execMany(body []Instr) (any, *Failure) {
	var out []any
	for {
		save := m.checkpoint()
		v, err := m.run(body)
		if err != nil {
			if m.pos != save.pos {
				return nil, err
			}
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *Machine) execSkipMany(body []Instr) *Failure {
	for {
		save := m.checkpoint()
		_, err := m.run(body)
		if err != nil {
			if m.pos != save.pos {
				return err
			}
			break
		}
	}
	return nil
}

// execChainPre folds a run of zero-or-more prefix operators around a final
// operand: the first-parsed operator becomes the outermost application.
func (m *Machine) execChainPre(ca chainArgs) (any, *Failure) {
	var fns []func(any) any
	for {
		save := m.checkpoint()
		f, err := m.run(ca.Op)
		if err != nil {
			if m.pos != save.pos {
				return nil, err
			}
			break
		}
		fns = append(fns, f.(func(any) any))
	}
	v, err := m.run(ca.P)
	if err != nil {
		return nil, err
	}
	for i := len(fns) - 1; i >= 0; i-- {
		v = fns[i](v)
	}
	return v, nil
}

func (m *Machine) execChainPost(ca chainArgs) (any, *Failure) {
	v, err := m.run(ca.P)
	if err != nil {
		return nil, err
	}
	for {
		save := m.checkpoint()
		f, err := m.run(ca.Op)
		if err != nil {
			if m.pos != save.pos {
				return nil, err
			}
			break
		}
		v = f.(func(any) any)(v)
	}
	return v, nil
}

func (m *Machine) execChainLeft(ca chainArgs) (any, *Failure) {
	v, err := m.run(ca.P)
	if err != nil {
		return nil, err
	}
	for {
		save := m.checkpoint()
		f, err := m.run(ca.Op)
		if err != nil {
			if m.pos != save.pos {
				return nil, err
			}
			break
		}
		rhs, err := m.run(ca.P)
		if err != nil {
			return nil, err
		}
		v = f.(func(any, any) any)(v, rhs)
	}
	return v, nil
}

func (m *Machine) execChainRight(ca chainArgs) (any, *Failure) {
	left, err := m.run(ca.P)
	if err != nil {
		return nil, err
	}
	return m.chainRightRest(ca, left)
}

func (m *Machine) chainRightRest(ca chainArgs, left any) (any, *Failure) {
	save := m.checkpoint()
	fnVal, err := m.run(ca.Op)
	if err != nil {
		if m.pos != save.pos {
			return nil, err
		}
		return left, nil
	}
	right, err := m.run(ca.P)
	if err != nil {
		return nil, err
	}
	rest, err := m.chainRightRest(ca, right)
	if err != nil {
		return nil, err
	}
	return fnVal.(func(any, any) any)(left, rest), nil
}

// execSepEndBy1 allows a trailing separator: once a separator is consumed,
// a following operand that fails without consuming further input just ends
// the list (the separator already consumed stands).
func (m *Machine) execSepEndBy1(sa sepArgs) (any, *Failure) {
	v, err := m.run(sa.P)
	if err != nil {
		return nil, err
	}
	out := []any{v}
	for {
		save := m.checkpoint()
		_, err := m.run(sa.Sep)
		if err != nil {
			if m.pos != save.pos {
				return nil, err
			}
			break
		}
		afterSep := m.checkpoint()
		v, err := m.run(sa.P)
		if err != nil {
			if m.pos != afterSep.pos {
				return nil, err
			}
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// execManyUntil peeks End (rewinding regardless of outcome, like a built-in
// Attempt) before each Body iteration, stopping as soon as End would
// succeed without consuming that success.
func (m *Machine) execManyUntil(ua untilArgs) (any, *Failure) {
	var out []any
	for {
		save := m.checkpoint()
		_, endErr := m.run(ua.End)
		m.restoreTo(save)
		if endErr == nil {
			break
		}
		v, err := m.run(ua.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// execLocal saves and restores the register on every exit path (success,
// failure, or panic unwinding through it) via defer, per §4.5's Local
// contract.
func (m *Machine) execLocal(la localArgs) (any, *Failure) {
	saved := m.regs[la.Reg]
	defer func() { m.regs[la.Reg] = saved }()

	v, err := m.run(la.P)
	if err != nil {
		return nil, err
	}
	m.regs[la.Reg] = v
	return m.run(la.Q)
}

// execBind compiles the Node returned by a Bind continuation on demand,
// exactly once per distinct physical continuation, and runs it in place.
// This is the one point where codegen happens at parse time rather than
// ahead of it, since K's result cannot be known until P has actually run.
func (m *Machine) execBind(ba bindArgs, x any) (any, *Failure) {
	node := ba.K(x)
	prog, ok := m.bindCache[node]
	if !ok {
		pre, err := compile.Preprocess(node)
		if err != nil {
			return nil, &Failure{Pos: m.position(), Message: err.Error()}
		}
		opt, err := compile.Optimize(pre)
		if err != nil {
			return nil, &Failure{Pos: m.position(), Message: err.Error()}
		}
		prog, err = Generate(opt)
		if err != nil {
			return nil, &Failure{Pos: m.position(), Message: err.Error()}
		}
		m.bindCache[node] = prog
	}
	return m.run(prog.Code)
}

func (m *Machine) execDebug(la logArgs) (any, *Failure) {
	if la.OnEntry {
		m.tracer.Enter(trace.Snapshot{Name: la.Name, PC: 0, InputIndex: m.pos, Window: m.window(), ValueTop: nil, Failed: false})
	}
	v, err := m.run(la.Body)
	if la.OnExit {
		m.tracer.Exit(trace.Snapshot{Name: la.Name, PC: 0, InputIndex: m.pos, Window: m.window(), ValueTop: v, Failed: err != nil})
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Machine) window() string {
	end := m.pos + 16
	if end > len(m.input) {
		end = len(m.input)
	}
	if m.pos > end {
		return ""
	}
	return string(m.input[m.pos:end])
}
