package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Position is a zero-based line/column pair over the code-point sequence
// being parsed (SPEC_FULL.md §3, Non-goals: no grapheme clustering).
type Position struct {
	Offset int // rune offset from the start of input
	Line   int
	Col    int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Failure is a runtime parse failure: a source position, the set of labels
// that would have been legal there, and optional unexpected/user messages.
// It is distinct from *compile.CompileError, which reports a build-time
// misuse of a combinator rather than something about a particular input.
type Failure struct {
	Pos        Position
	Expected   []string
	Unexpected string
	Message    string
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at %s", f.Pos)
	if f.Message != "" {
		fmt.Fprintf(&b, ": %s", f.Message)
		return b.String()
	}
	if f.Unexpected != "" {
		fmt.Fprintf(&b, ": unexpected %s", f.Unexpected)
	}
	if len(f.Expected) > 0 {
		fmt.Fprintf(&b, ", expected %s", strings.Join(f.Expected, " or "))
	}
	return b.String()
}

func newFailure(pos Position, expected []string) *Failure {
	return &Failure{Pos: pos, Expected: expected}
}

// mergeFailures implements the §4.4 error model: a failure at a later
// position dominates one at an earlier position; failures meeting at the
// same position have their expected sets unioned.
func mergeFailures(a, b *Failure) *Failure {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Pos.Offset > b.Pos.Offset {
		return a
	}
	if b.Pos.Offset > a.Pos.Offset {
		return b
	}
	out := &Failure{Pos: a.Pos, Expected: unionExpected(a.Expected, b.Expected)}
	if a.Message != "" {
		out.Message = a.Message
	} else if b.Message != "" {
		out.Message = b.Message
	}
	if a.Unexpected != "" {
		out.Unexpected = a.Unexpected
	} else if b.Unexpected != "" {
		out.Unexpected = b.Unexpected
	}
	return out
}

func unionExpected(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
