package compile_test

import (
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/compile"
)

func TestPreprocessLeavesPlainTreeUntouched(t *testing.T) {
	src := combi.Apply(combi.Pure(func(a any) any { return a }), combi.CharTok('a'))
	out, err := compile.Preprocess(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ap, ok := out.(*combi.ApplyNode)
	if !ok {
		t.Fatalf("expected *ApplyNode, got %T", out)
	}
	if _, ok := ap.PX.(*combi.CharTokNode); !ok {
		t.Fatalf("expected CharTokNode argument, got %T", ap.PX)
	}
}

func TestPreprocessAbsorbsErrorLabel(t *testing.T) {
	src := combi.ErrorLabel(combi.CharTok('a'), "letter a")
	out, err := compile.Preprocess(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ct, ok := out.(*combi.CharTokNode)
	if !ok {
		t.Fatalf("expected *CharTokNode, got %T", out)
	}
	if ct.Label() != "letter a" {
		t.Errorf("expected label %q, got %q", "letter a", ct.Label())
	}
}

func TestPreprocessResolvesLazyBackEdge(t *testing.T) {
	var p combi.Node
	p = combi.Lazy(func() combi.Node {
		return combi.Alt(combi.CharTok('a'), combi.ThenRight(combi.CharTok('b'), p))
	})

	out, err := compile.Preprocess(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alt, ok := out.(*combi.AltNode)
	if !ok {
		t.Fatalf("expected *AltNode at the root after forcing Lazy, got %T", out)
	}
	tr, ok := alt.Q.(*combi.ThenRightNode)
	if !ok {
		t.Fatalf("expected *ThenRightNode, got %T", alt.Q)
	}
	if _, ok := tr.Q.(*combi.FixpointNode); !ok {
		t.Fatalf("expected the back-edge to resolve to *FixpointNode, got %T", tr.Q)
	}
}

func TestPreprocessFlattensLongThenRightChain(t *testing.T) {
	var chain combi.Node = combi.Pure("tail")
	const length = 5000
	for i := 0; i < length; i++ {
		chain = combi.ThenRight(combi.CharTok('x'), chain)
	}

	// A chain this long exercises the ThenRight spine flattening: the pass
	// must walk all 5000 links and still hand back a ThenRight at the root.
	out, err := compile.Preprocess(chain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(*combi.ThenRightNode); !ok {
		t.Fatalf("expected *ThenRightNode at the root, got %T", out)
	}
}

func TestPreprocessSharesMemoizedSubtree(t *testing.T) {
	shared := combi.CharTok('a')
	src := combi.Apply(combi.Pure(func(a any) any { return a }), shared)

	p := compile.NewPreprocessor()
	first, err := p.Preprocess(shared)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := p.Preprocess(shared)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != again {
		t.Errorf("expected the same physical node back from a second pass over an already-seen subtree")
	}
	_ = src
}
