package compile_test

import (
	"testing"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/compile"
)

// ErrorRelabel must never reach Optimize directly; Preprocess is the only
// pass allowed to absorb it. This is a white-box invariant check: calling
// Optimize on a raw ErrorRelabelNode is a programming error in pkg/compile
// itself (every public entry point runs Preprocess first), so it panics
// rather than returning an error a caller might silently ignore.
func TestOptimizePanicsOnUnabsorbedErrorRelabel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Optimize to panic on an unabsorbed ErrorRelabelNode")
		}
	}()
	_, _ = compile.Optimize(combi.ErrorLabel(combi.CharTok('a'), "letter a"))
}

func TestOptimizePanicsOnUnforcedLazy(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Optimize to panic on an unforced LazyNode")
		}
	}()
	_, _ = compile.Optimize(combi.Lazy(func() combi.Node { return combi.CharTok('a') }))
}
