package compile_test

import (
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/compile"
)

func TestOptimizeFusesPureApply(t *testing.T) {
	src := combi.Apply(combi.Pure(func(a any) any { return a.(int) + 1 }), combi.Pure(41))
	out, err := compile.Optimize(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := out.(*combi.PureNode)
	if !ok {
		t.Fatalf("expected *PureNode, got %T", out)
	}
	if p.Value.(int) != 42 {
		t.Errorf("expected 42, got %v", p.Value)
	}
}

func TestOptimizeAltLeftCatch(t *testing.T) {
	out, err := compile.Optimize(combi.Alt(combi.Pure("x"), combi.CharTok('y')))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(*combi.PureNode); !ok {
		t.Fatalf("expected *PureNode, got %T", out)
	}
}

func TestOptimizeAltEmptyIdentity(t *testing.T) {
	left, err := compile.Optimize(combi.Alt(combi.Empty(), combi.CharTok('a')))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := left.(*combi.CharTokNode); !ok {
		t.Fatalf("expected *CharTokNode, got %T", left)
	}

	right, err := compile.Optimize(combi.Alt(combi.CharTok('a'), combi.Empty()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := right.(*combi.CharTokNode); !ok {
		t.Fatalf("expected *CharTokNode, got %T", right)
	}
}

func TestOptimizeFusesAdjacentLiterals(t *testing.T) {
	out, err := compile.Optimize(combi.ThenRight(combi.CharTok('a'), combi.CharTok('b')))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, ok := out.(*combi.ThenRightNode)
	if !ok {
		t.Fatalf("expected *ThenRightNode, got %T", out)
	}
	st, ok := tr.P.(*combi.StringTokNode)
	if !ok || st.Str != "ab" {
		t.Fatalf("expected fused StringTok(\"ab\"), got %#v", tr.P)
	}
}

func TestOptimizeManyOverPureIsIllFormed(t *testing.T) {
	_, err := compile.Optimize(combi.Many(combi.Pure("x")))
	if err == nil {
		t.Fatal("expected a *CompileError for Many over an always-succeeding body")
	}
	var ce *compile.CompileError
	if !asCompileError(err, &ce) {
		t.Fatalf("expected *compile.CompileError, got %T", err)
	}
}

func TestOptimizeManyOverEmptyCollapses(t *testing.T) {
	out, err := compile.Optimize(combi.Many(combi.Empty()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := out.(*combi.PureNode)
	if !ok {
		t.Fatalf("expected *PureNode, got %T", out)
	}
	if v, ok := p.Value.([]any); !ok || len(v) != 0 {
		t.Errorf("expected an empty slice, got %#v", p.Value)
	}
}

func TestOptimizeBindLeftIdentity(t *testing.T) {
	out, err := compile.Optimize(combi.Bind(combi.Pure(1), func(x any) combi.Node {
		return combi.Pure(x.(int) + 1)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fp, ok := out.(*combi.FixpointNode)
	if !ok {
		t.Fatalf("expected *FixpointNode wrapping the expansion, got %T", out)
	}
	if p, ok := fp.Target.(*combi.PureNode); !ok || p.Value.(int) != 2 {
		t.Fatalf("expected the expansion to be Pure(2), got %#v", fp.Target)
	}
}

func asCompileError(err error, target **compile.CompileError) bool {
	ce, ok := err.(*compile.CompileError)
	if ok {
		*target = ce
	}
	return ok
}
