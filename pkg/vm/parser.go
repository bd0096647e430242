package vm

import (
	"fmt"
	"sync"

	"github.com/combi-lang/combi/pkg/compile"
	"github.com/combi-lang/combi/pkg/trace"
)

// Result is what a successful parse yields: the value produced by the
// grammar's root combinator and the cursor position after the last
// consumed input rune (SPEC_FULL.md §6).
type Result struct {
	Value any
	Pos   Position
}

// Parser is the compiled/cached form of a grammar, for repeated runs
// without recompiling (§6). It owns its lazily-populated Program exactly
// as §5 describes: the Node tree is the source of truth, the Program is a
// cache frozen on first compilation.
type Parser struct {
	root    Node
	once    sync.Once
	prog    *Program
	buildErr error
	tracer  trace.Tracer
}

// Compile runs Preprocess, Optimize and Generate/Resolve eagerly and
// returns a Parser wrapping the result (or the build error, surfaced
// lazily by Run/Err). Unlike the public combinator constructors, which are
// pure data construction, Compile is the first point at which a grammar's
// well-formedness (e.g. a Many over a zero-consumption body) is checked.
func Compile(root Node) *Parser {
	p := &Parser{root: root, tracer: trace.FromEnv()}
	p.once.Do(p.build)
	return p
}

func (p *Parser) build() {
	pre, err := compile.Preprocess(p.root)
	if err != nil {
		p.buildErr = err
		return
	}
	opt, err := compile.Optimize(pre)
	if err != nil {
		p.buildErr = err
		return
	}
	prog, err := Generate(opt)
	if err != nil {
		p.buildErr = err
		return
	}
	p.prog = prog
}

// Err reports the build-time error from Compile, if any, distinct from any
// runtime *Failure a Run may later produce (§7).
func (p *Parser) Err() error {
	p.once.Do(p.build)
	return p.buildErr
}

// WithTracer attaches a trace.Tracer used by Debug-wrapped combinators,
// overriding the COMBI_DEBUG-driven default.
func (p *Parser) WithTracer(t trace.Tracer) *Parser {
	p.tracer = t
	return p
}

// Snapshot returns a Parser that can run concurrently with p: a fresh
// Machine is constructed per Run regardless, but Snapshot additionally
// hands out an independent Program backing array per §5's "thread-safe
// clone" contract, for callers who want that guarantee made explicit
// rather than relying on Program's own immutability (see Program.Snapshot).
func (p *Parser) Snapshot() *Parser {
	p.once.Do(p.build)
	clone := &Parser{root: p.root, buildErr: p.buildErr, tracer: p.tracer}
	clone.once.Do(func() {})
	if p.prog != nil {
		clone.prog = p.prog.Snapshot()
	}
	return clone
}

// Run parses input against the compiled grammar. Compile errors (grammar
// misuse discovered at build time) are surfaced through the same *Failure
// return as a convenience matching RunParser's fixed signature; callers
// that need to distinguish a build-time *compile.CompileError from a
// runtime parse failure should check p.Err() first.
func (p *Parser) Run(input string) (result Result, failure *Failure) {
	p.once.Do(p.build)
	if p.buildErr != nil {
		return Result{}, &Failure{Message: p.buildErr.Error()}
	}
	m := newMachine([]rune(input), p.tracer)
	// A register Get/Put/Modify with a mismatched type assertion is
	// undefined behavior by contract (§7), not a checked error; it
	// surfaces as a panic from deep inside m.run. Recovering it here,
	// at the single outermost frame, turns it into an ordinary Failure
	// instead of crashing the caller's process.
	defer func() {
		if r := recover(); r != nil {
			result, failure = Result{}, &Failure{Pos: m.position(), Message: fmt.Sprintf("combi: %v", r)}
		}
	}()
	v, err := m.run(p.prog.Code)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v, Pos: m.position()}, nil
}

// RunParser compiles root and runs it against input in one step (§6). For
// repeated runs of the same grammar, prefer Compile(root).Run(input), which
// caches the compiled Program across calls.
func RunParser(root Node, input string) (Result, *Failure) {
	return Compile(root).Run(input)
}
