package combi_test

// The eleven algebraic laws, checked by observing parse results on a fuzzed
// input corpus rather than by comparing trees (the optimiser may rewrite
// either side of a law differently).

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/combi-lang/combi/pkg/combi"
	"github.com/combi-lang/combi/pkg/vm"
)

// abString generates short strings over a small alphabet so both sides of
// a law have a realistic chance of actually consuming input, not just
// failing identically on noise.
type abString string

func (abString) Generate(r *rand.Rand, size int) reflect.Value {
	const alphabet = "ab"
	n := r.Intn(6)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[r.Intn(len(alphabet))]
	}
	return reflect.ValueOf(abString(buf))
}

func sameResult(t *testing.T, p, q combi.Node, input string) bool {
	t.Helper()
	rp, fp := vm.RunParser(p, input)
	rq, fq := vm.RunParser(q, input)
	if (fp == nil) != (fq == nil) {
		t.Logf("input %q: one side failed, other didn't (p=%v, q=%v)", input, fp, fq)
		return false
	}
	if fp != nil {
		return fp.Pos == fq.Pos
	}
	return reflect.DeepEqual(rp.Value, rq.Value) && rp.Pos == rq.Pos
}

func TestFunctorIdentity(t *testing.T) {
	id := func(x any) any { return x }
	check := func(s abString) bool {
		return sameResult(t, combi.Map(id, combi.CharTok('a')), combi.CharTok('a'), string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestFunctorComposition(t *testing.T) {
	f := func(x any) any { return x.(rune) + 1 }
	g := func(x any) any { return x.(rune) * 2 }
	fog := func(x any) any { return f(g(x)) }
	check := func(s abString) bool {
		lhs := combi.Map(f, combi.Map(g, combi.CharTok('a')))
		rhs := combi.Map(fog, combi.CharTok('a'))
		return sameResult(t, lhs, rhs, string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestApplicativeIdentity(t *testing.T) {
	id := func(x any) any { return x }
	check := func(s abString) bool {
		return sameResult(t, combi.Apply(combi.Pure(id), combi.CharTok('a')), combi.CharTok('a'), string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestApplicativeHomomorphism(t *testing.T) {
	f := func(x any) any { return x.(int) + 1 }
	lhs := combi.Apply(combi.Pure(f), combi.Pure(41))
	rhs := combi.Pure(f(41))
	if !sameResult(t, lhs, rhs, "") {
		t.Fatal("apply(pure(f), pure(x)) != pure(f(x))")
	}
}

func TestApplicativeInterchange(t *testing.T) {
	u := combi.Map(func(c any) any {
		return func(x any) any { return []any{c, x} }
	}, combi.CharTok('a'))
	x := 7
	lhs := combi.Apply(u, combi.Pure(x))
	rhs := combi.Apply(combi.Pure(func(f any) any { return f.(func(any) any)(x) }), u)
	check := func(s abString) bool { return sameResult(t, lhs, rhs, string(s)) }
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestMonadLeftIdentity(t *testing.T) {
	k := func(v any) combi.Node { return combi.Pure(v.(int) * 2) }
	lhs := combi.Bind(combi.Pure(21), k)
	rhs := k(21)
	if !sameResult(t, lhs, rhs, "") {
		t.Fatal("bind(pure(x), k) != k(x)")
	}
}

func TestMonadRightIdentity(t *testing.T) {
	pureFn := func(v any) combi.Node { return combi.Pure(v) }
	check := func(s abString) bool {
		return sameResult(t, combi.Bind(combi.CharTok('a'), pureFn), combi.CharTok('a'), string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestMonadAssociativity(t *testing.T) {
	g := func(any) combi.Node { return combi.CharTok('b') }
	k := func(v any) combi.Node { return combi.Pure(v) }
	lhs := combi.Bind(combi.Bind(combi.CharTok('a'), g), k)
	rhs := combi.Bind(combi.CharTok('a'), func(x any) combi.Node {
		return combi.Bind(g(x), k)
	})
	check := func(s abString) bool { return sameResult(t, lhs, rhs, string(s)) }
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestAlternativeLeftCatch(t *testing.T) {
	check := func(s abString) bool {
		return sameResult(t, combi.Alt(combi.Pure(9), combi.CharTok('z')), combi.Pure(9), string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestAlternativeAssociativity(t *testing.T) {
	u, v, w := combi.CharTok('a'), combi.CharTok('b'), combi.CharTok('c')
	lhs := combi.Alt(combi.Alt(u, v), w)
	rhs := combi.Alt(u, combi.Alt(v, w))
	for _, s := range []string{"", "a", "b", "c", "d", "ab"} {
		if !sameResult(t, lhs, rhs, s) {
			t.Fatalf("alt associativity failed on %q", s)
		}
	}
}

func TestEmptyIdentity(t *testing.T) {
	p := combi.CharTok('x')
	check := func(s abString) bool {
		return sameResult(t, combi.Alt(combi.Empty(), p), p, string(s)) &&
			sameResult(t, combi.Alt(p, combi.Empty()), p, string(s))
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}
