// Package lexkit is a thin adapter between github.com/prataprc/goparsec's
// scanner/token combinators and the token-layer leaves pkg/combi exposes as
// an external seam (Keyword, Operator, StringLiteral, RawStringLiteral, and
// user-built Satisfy-based scanners like the ones here). It is not a general
// lexer library: it exists only to show that seam has a real collaborator.
//
// The two parsing engines don't share a cursor at run time — goparsec has
// its own Scanner type, combi's Machine has its own rune-indexed cursor —
// so this package doesn't make goparsec scan combi's live input. Instead it
// borrows goparsec's own token definitions (pc.Token, pc.Int) as the
// reference for what a token class means, and cross-checks its combi-native
// Satisfy/Many/Bind scanners against them (see Confirm*, exercised by
// lexkit_test.go). That keeps the two definitions from silently drifting
// apart without requiring a live bridge between the two engines.
package lexkit

import (
	"unicode"

	pc "github.com/prataprc/goparsec"

	"github.com/combi-lang/combi/pkg/combi"
)

const identPattern = `[A-Za-z_][A-Za-z0-9_]*`

// identToken is goparsec's own definition of what this package calls an
// identifier, used only by ConfirmIdent, never by Ident itself.
var identToken = pc.Token(identPattern, "IDENT")

// Ident recognizes an identifier: a letter or underscore, followed by zero
// or more letters, digits or underscores. Built entirely on combi's own
// Satisfy/Many/Bind primitives, so the Machine scans it rune by rune the
// same way it scans every other leaf.
func Ident() combi.Node {
	return combi.Bind(combi.Satisfy("identifier", isIdentStart), func(first any) combi.Node {
		return combi.Bind(combi.Many(combi.Satisfy("identifier character", isIdentChar)), func(rest any) combi.Node {
			return combi.Pure(joinRunes(first.(rune), rest.([]any)))
		})
	})
}

// IntLiteral recognizes an unsigned decimal integer, yielding the matched
// digits as a string (parsing to a number is left to the caller, as with
// combi's own StringLiteral leaving unescaping as the only processing it
// does).
func IntLiteral() combi.Node {
	digit := combi.Satisfy("digit", unicode.IsDigit)
	return combi.Bind(digit, func(first any) combi.Node {
		return combi.Bind(combi.Many(digit), func(rest any) combi.Node {
			return combi.Pure(joinRunes(first.(rune), rest.([]any)))
		})
	})
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentChar(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

func joinRunes(first rune, rest []any) string {
	rs := make([]rune, 0, len(rest)+1)
	rs = append(rs, first)
	for _, x := range rest {
		rs = append(rs, x.(rune))
	}
	return string(rs)
}

// ConfirmIdent reports whether goparsec's own token regexp for an
// identifier matches the whole of sample. It does not run Ident; the
// comparison with Ident's result is made by the caller.
func ConfirmIdent(sample string) bool {
	ast := pc.NewAST("lexkit-ident", 0)
	root, _ := ast.Parsewith(identToken, pc.NewScanner([]byte(sample)))
	return root != nil && root.GetValue() == sample
}

// ConfirmInt reports whether goparsec's pc.Int matches the whole of sample.
// It does not run IntLiteral; the comparison with IntLiteral's result is
// made by the caller.
func ConfirmInt(sample string) bool {
	ast := pc.NewAST("lexkit-int", 0)
	root, _ := ast.Parsewith(pc.Int(), pc.NewScanner([]byte(sample)))
	return root != nil && root.GetValue() == sample
}
