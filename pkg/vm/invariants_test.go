package vm_test

// The five behavioral invariants from SPEC_FULL.md §8, checked end to end
// through Preprocess -> Optimize -> Generate -> Resolve -> Run.

import (
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/vm"
)

// word matches s one rune at a time (unlike StringTok, which is atomic), so
// a mismatch partway through genuinely leaves the cursor mid-word. That
// partial consumption is exactly what the implicit-cut and Attempt tests
// below need to exercise.
func word(s string) combi.Node {
	runes := []rune(s)
	nodes := make([]combi.Node, len(runes))
	for i, r := range runes {
		nodes[i] = combi.CharTok(r)
	}
	return combi.Map(func(v any) any {
		xs := v.([]any)
		rs := make([]rune, len(xs))
		for i, x := range xs {
			rs[i] = x.(rune)
		}
		return string(rs)
	}, combi.Sequence(nodes))
}

func TestImplicitCut(t *testing.T) {
	p := combi.Alt(word("foo"), word("bar"))

	// "foz": word("foo") consumes 'f','o' before failing on 'z' vs 'o', so
	// alt must not try word("bar"); the failure sits at offset 2, not 0.
	_, fail := vm.RunParser(p, "foz")
	if fail == nil {
		t.Fatal("expected failure")
	}
	if fail.Pos.Offset != 2 {
		t.Fatalf("fail offset = %d, want 2", fail.Pos.Offset)
	}

	// "bar": word("foo") fails immediately without consuming anything, so
	// alt does try word("bar"), which succeeds.
	result, fail := vm.RunParser(p, "bar")
	if fail != nil {
		t.Fatalf("expected success, got %v", fail)
	}
	if result.Value != "bar" {
		t.Fatalf("got %v, want \"bar\"", result.Value)
	}
}

func TestAttemptBacktrack(t *testing.T) {
	// Without Attempt, word("foobar") failing 5 chars in would implicit-cut
	// past word("foo") entirely. Attempt rewinds the cursor on that
	// failure, so the second branch still gets a chance.
	p := combi.Alt(combi.Attempt(word("foobar")), word("foo"))
	result, fail := vm.RunParser(p, "foobaz")
	if fail != nil {
		t.Fatalf("expected success, got %v", fail)
	}
	if result.Value != "foo" || result.Pos.Offset != 3 {
		t.Fatalf("got value=%v pos=%v, want \"foo\" at offset 3", result.Value, result.Pos)
	}
}

func TestLookAheadTransparency(t *testing.T) {
	// lookAhead(p) followed by p must consume exactly what p alone would.
	p := word("foo")
	combined := combi.ThenRight(combi.LookAhead(p), p)

	rOne, fOne := vm.RunParser(p, "foobar")
	rTwo, fTwo := vm.RunParser(combined, "foobar")
	if fOne != nil || fTwo != nil {
		t.Fatalf("expected both to succeed: %v, %v", fOne, fTwo)
	}
	if rOne.Pos != rTwo.Pos {
		t.Fatalf("lookAhead(p);p consumed to %v, p alone consumed to %v", rTwo.Pos, rOne.Pos)
	}
	if rTwo.Value != "foo" {
		t.Fatalf("combined value = %v, want \"foo\"", rTwo.Value)
	}
}

func TestRegisterLocality(t *testing.T) {
	// After local(v, x, p), register v holds its pre-call value regardless
	// of whether p succeeded or failed.
	setup := combi.Put(0, combi.Pure(100))

	succeeds := combi.Local(0, combi.Pure(5), combi.Get(0))
	program := combi.ThenRight(setup, combi.ThenRight(succeeds, combi.Get(0)))
	result, fail := vm.RunParser(program, "")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != 100 {
		t.Fatalf("register 0 after local = %v, want 100 (restored)", result.Value)
	}

	fails := combi.Local(0, combi.Pure(5), combi.CharTok('z'))
	programFails := combi.ThenRight(setup, combi.ThenRight(fails, combi.Get(0)))
	_, fail = vm.RunParser(programFails, "a")
	if fail == nil {
		t.Fatal("expected the inner CharTok to fail")
	}

	// Recovering from that failure through Attempt makes the register
	// observable afterwards: it must hold the pre-call value again.
	recovered := combi.ThenRight(setup, combi.ThenRight(combi.Alt(combi.Attempt(fails), combi.Pure(nil)), combi.Get(0)))
	result, fail = vm.RunParser(recovered, "a")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != 100 {
		t.Fatalf("register 0 after failed local = %v, want 100 (restored)", result.Value)
	}
}

func TestPositionMonotonicity(t *testing.T) {
	// Outside of an Attempt rewind or a LookAhead success, the cursor never
	// moves backward across a sequence of combinators.
	p := combi.ThenRight(combi.CharTok('a'), combi.ThenRight(combi.CharTok('b'), combi.CharTok('c')))
	result, fail := vm.RunParser(p, "abc")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Pos.Offset != 3 {
		t.Fatalf("final offset = %d, want 3", result.Pos.Offset)
	}
}
