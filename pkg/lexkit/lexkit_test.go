package lexkit_test

import (
	"testing"

	"github.com/combi-lang/combi/pkg/lexkit"
	"github.com/combi-lang/combi/pkg/vm"
)

func TestIdentAgreesWithGoparsec(t *testing.T) {
	cases := []string{"x", "_foo", "camelCase123", "a_b_c"}
	for _, s := range cases {
		result, fail := vm.RunParser(lexkit.Ident(), s)
		if fail != nil {
			t.Fatalf("Ident() rejected %q: %v", s, fail)
		}
		if result.Value != s {
			t.Fatalf("Ident() on %q = %v, want %q", s, result.Value, s)
		}
		if !lexkit.ConfirmIdent(s) {
			t.Fatalf("goparsec disagrees that %q is an identifier", s)
		}
	}
}

func TestIdentRejectsLeadingDigit(t *testing.T) {
	_, fail := vm.RunParser(lexkit.Ident(), "9x")
	if fail == nil {
		t.Fatal("expected Ident() to reject a leading digit")
	}
	if lexkit.ConfirmIdent("9x") {
		t.Fatal("goparsec unexpectedly accepted a leading digit as an identifier")
	}
}

func TestIntLiteralAgreesWithGoparsec(t *testing.T) {
	cases := []string{"0", "7", "1234567890"}
	for _, s := range cases {
		result, fail := vm.RunParser(lexkit.IntLiteral(), s)
		if fail != nil {
			t.Fatalf("IntLiteral() rejected %q: %v", s, fail)
		}
		if result.Value != s {
			t.Fatalf("IntLiteral() on %q = %v, want %q", s, result.Value, s)
		}
		if !lexkit.ConfirmInt(s) {
			t.Fatalf("goparsec disagrees that %q is an integer", s)
		}
	}
}
