package compile

import (
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
)

// measure_test.go lives in package compile (not compile_test) because
// measure() is unexported test-only scaffolding, not part of the public API.

func TestMeasureStrictlyDecreasesAcrossRewrites(t *testing.T) {
	cases := []combi.Node{
		combi.Apply(combi.Pure(func(a any) any { return a }), combi.Pure(1)),
		combi.Alt(combi.Pure("x"), combi.CharTok('y')),
		combi.Alt(combi.Empty(), combi.CharTok('a')),
		combi.ThenRight(combi.Pure(nil), combi.CharTok('z')),
		combi.Bind(combi.Pure(1), func(x any) combi.Node { return combi.Pure(x) }),
	}

	for i, src := range cases {
		before := tripleOf(measure(src))
		out, err := Optimize(src)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		after := tripleOf(measure(out))
		if !after.lessThan(before) && !sameShape(src, out) {
			t.Errorf("case %d: measure did not decrease: before=%v after=%v", i, before, after)
		}
	}
}

type triple struct{ chainOps, depth, nodes int }

func tripleOf(chainOps, depth, nodes int) triple { return triple{chainOps, depth, nodes} }

func (a triple) lessThan(b triple) bool {
	if a.chainOps != b.chainOps {
		return a.chainOps < b.chainOps
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	return a.nodes < b.nodes
}

// sameShape reports whether a rewrite was a no-op (already at a fixed
// point), in which case the measure is allowed to stay put.
func sameShape(a, b combi.Node) bool { return a == b }
