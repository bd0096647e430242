package vm_test

// The six concrete end-to-end scenarios from SPEC_FULL.md §8, run through
// the full Preprocess -> Optimize -> Generate -> Resolve -> Run pipeline.

import (
	"reflect"
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/vm"
)

func TestScenarioManyChar(t *testing.T) {
	p := combi.Many(combi.CharTok('a'))
	result, fail := vm.RunParser(p, "aaab")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	want := []any{'a', 'a', 'a'}
	if !reflect.DeepEqual(result.Value, want) {
		t.Fatalf("value = %v, want %v", result.Value, want)
	}
	if result.Pos.Offset != 3 {
		t.Fatalf("offset = %d, want 3 (leaving \"b\" unconsumed)", result.Pos.Offset)
	}
}

func TestScenarioImplicitCutOnCommonPrefix(t *testing.T) {
	p := combi.Alt(combi.StringTok("foo"), combi.StringTok("foobar"))
	result, fail := vm.RunParser(p, "foobar")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != "foo" {
		t.Fatalf("value = %v, want \"foo\"", result.Value)
	}
	if result.Pos.Offset != 3 {
		t.Fatalf("offset = %d, want 3 (leaving \"bar\")", result.Pos.Offset)
	}
}

func TestScenarioAttemptOverCommonPrefix(t *testing.T) {
	p := combi.Alt(combi.Attempt(word("foo")), word("foobar"))

	for _, input := range []string{"foobar", "foobaz", "fooba"} {
		result, fail := vm.RunParser(p, input)
		if fail != nil {
			t.Fatalf("input %q: unexpected failure: %v", input, fail)
		}
		if result.Value != "foo" {
			t.Fatalf("input %q: value = %v, want \"foo\"", input, result.Value)
		}
	}
}

func TestScenarioBindLength(t *testing.T) {
	p := combi.Bind(combi.Many(combi.CharTok('a')), func(v any) combi.Node {
		return combi.Pure(len(v.([]any)))
	})
	result, fail := vm.RunParser(p, "aaaa")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != 4 {
		t.Fatalf("value = %v, want 4", result.Value)
	}
}

func TestScenarioLocalGet(t *testing.T) {
	setup := combi.Put(0, combi.Pure(99))
	p := combi.ThenRight(setup, combi.Local(0, combi.Pure(5), combi.Get(0)))
	result, fail := vm.RunParser(p, "")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != 5 {
		t.Fatalf("value = %v, want 5", result.Value)
	}

	after := combi.ThenRight(setup, combi.ThenRight(combi.Local(0, combi.Pure(5), combi.Get(0)), combi.Get(0)))
	result, fail = vm.RunParser(after, "")
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if result.Value != 99 {
		t.Fatalf("register after local = %v, want 99 (restored)", result.Value)
	}
}

func TestScenarioTablifiedAlternationExpectedUnion(t *testing.T) {
	leads := "abcdefghij"
	branches := make([]combi.Node, len(leads))
	for i, c := range leads {
		branches[i] = combi.CharTok(c)
	}
	p := branches[len(branches)-1]
	for i := len(branches) - 2; i >= 0; i-- {
		p = combi.Alt(branches[i], p)
	}

	_, fail := vm.RunParser(p, "q...")
	if fail == nil {
		t.Fatal("expected failure on a non-matching lead")
	}
	if len(fail.Expected) != len(leads) {
		t.Fatalf("expected set has %d entries, want %d: %v", len(fail.Expected), len(leads), fail.Expected)
	}
	seen := map[string]bool{}
	for _, e := range fail.Expected {
		seen[e] = true
	}
	for _, c := range leads {
		if !seen[string(c)] {
			t.Fatalf("expected set missing lead %q: %v", c, fail.Expected)
		}
	}
}
