// Package vm compiles a preprocessed, optimised combi.Node tree into an
// instruction program (CodeGen/Generate) and runs it (Machine/Run). It also
// hosts the public Parser/RunParser/Compile facade: pkg/combi cannot import
// this package (pkg/vm already imports pkg/combi for the Node type), so the
// orchestration tying preprocess, optimise, codegen and execution together
// lives here instead, one layer up — the same way the teacher's cmd/
// binaries orchestrate pkg/asm and pkg/hack without either package
// importing the other.
//
// Go realization note (see DESIGN.md "pkg/vm control-flow representation"):
// the spec describes a single flat instruction array addressed by a program
// counter, with Jump/Label pseudo-instructions resolved to absolute offsets
// in a dedicated pass. This package instead compiles each combinator to one
// or a handful of Instr values whose payload, for every control-flow node
// (Alt, Many, Local, Call, ...), is itself a nested, already-generated []Instr
// region. The Machine's execute loop recurses into these nested regions
// directly as Go control flow instead of jumping through resolved label
// offsets. The two are operationally equivalent (both are a post-order
// compiled program walked by a single interpreter loop) but the nested form
// needs no label-placeholder bookkeeping or a second resolution sweep, at
// the cost of one Go call frame per nesting level during execution — an
// acceptable trade given the VM is not required to bound native stack use
// the way the *compiler* passes are (§9 Design Notes only constrains
// Preprocess/CodeGen, not Run).
package vm

import "github.com/combi-lang/combi/pkg/combi"

// Node aliases combi.Node so the rest of this package can spell it tersely;
// pkg/vm never defines its own node representation.
type Node = combi.Node

// Op is a single virtual machine opcode.
type Op int

const (
	OpPush Op = iota
	OpPop             // pop and discard the top value
	OpPerform         // pop x, push A1.(func(any) any)(x)
	OpApply           // pop x, pop f, push f(x)
	OpLift2           // pop b, pop a, push A1.(func(a,b any) any)(a,b)
	OpLift3           // pop c, pop b, pop a, push A1.(func(a,b,c any) any)(a,b,c)
	OpBindDynamic     // pop x, call A1.(bindArgs).K(x) to get a Node, compile and run it in place

	OpCharTok
	OpStringTok
	OpSatisfy
	OpEof
	OpStringLiteral
	OpRawStringLiteral

	OpCharTokFastPerform   // Apply(Pure(f), CharTok c) fused
	OpStringTokFastPerform // Apply(Pure(f), StringTok s) fused
	OpCharTokExchange      // ThenRight(CharTok c, Pure(x)) fused
	OpStringTokExchange    // ThenRight(StringTok s, Pure(x)) fused
	OpSatisfyExchange      // ThenRight(Satisfy p, Pure(x)) fused

	OpLine
	OpCol
	OpPos
	OpGet
	OpModify
	OpPut

	OpFail
	OpUnexpected
	OpFastFail
	OpFastUnexpected
	OpEnsure
	OpGuard
	OpFastGuard

	OpAttempt
	OpLookAhead
	OpNotFollowedBy
	OpAltChain  // ordered list of branch programs, implicit-cut semantics
	OpJumpTable // leading-rune dispatch table + default branch
	OpTernary

	OpMany
	OpSkipMany
	OpChainPre
	OpChainPost
	OpChainLeft
	OpChainRight
	OpSepEndBy1
	OpManyUntil

	OpLocal
	OpCall // Fixpoint / Subroutine: invoke a shared, lazily-generated body

	OpLogBegin
	OpLogEnd
)

// Instr is one instruction. A1/A2 carry opcode-dependent payloads: literal
// values and closures for the straight-line primitives, or one of the
// *Args structs below for a compound op's nested instruction regions.
type Instr struct {
	Op       Op
	A1, A2   any
	Expected []string
}

// Program is generated, resolved code ready to run.
type Program struct {
	Code []Instr
}

// Len returns the instruction count of the top-level region.
func (p *Program) Len() int { return len(p.Code) }

// Snapshot returns an independent Program sharing the same underlying
// instruction values. Every mutable per-run value a parse produces
// (accumulators, saved cursor positions, register contents) lives on the
// Machine's own run() frames, never on the Instr values themselves —
// once Generate/Resolve return, a Program is fully immutable — so Snapshot
// only needs to hand the caller its own top-level Code backing array,
// guaranteeing that one goroutine's PushHandler-style bookkeeping (which in
// this realization lives in local variables, not in the Program) can never
// alias another's. See DESIGN.md for why this makes the spec's
// "stateful-positions index" unnecessary in this Go realization.
func (p *Program) Snapshot() *Program {
	code := make([]Instr, len(p.Code))
	copy(code, p.Code)
	return &Program{Code: code}
}

type ternaryArgs struct{ B, P, Q []Instr }
type chainArgs struct{ P, Op []Instr }
type sepArgs struct{ P, Sep []Instr }
type untilArgs struct{ Body, End []Instr }
type localArgs struct {
	Reg  int
	P, Q []Instr
}
type jumpTableArgs struct {
	Table    map[rune][]Instr
	Default  []Instr
	Expected []string
}
type bindArgs struct {
	K func(any) Node
}
type callArgs struct {
	cell *[]Instr // filled in once Generate finishes resolving the target's code
}
type logArgs struct {
	Name    string
	OnEntry bool
	OnExit  bool
	Body    []Instr
}
