// Package conformance cross-checks pkg/combi against a second, independent
// grammar built directly on github.com/prataprc/goparsec (the library the
// rest of the retrieval pack's nand2tetris tools use for exactly this kind
// of work, see pkg/asm/parsing.go). Its tests compare *observed parse
// results* on a fuzzed input corpus, never parse trees — the two libraries
// don't share a node shape, so tree comparison would be meaningless; result
// comparison is what actually tests that two independent implementations
// agree.
package conformance

import (
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// referenceAST is the goparsec grammar for a left-associative sum of single
// decimal digits: digit ('+' digit)*. It mirrors the shape of the teacher's
// own pProgram/pInstruction var block (ast.And/OrdChoice/ManyUntil built
// from package-level combinator values), not combi's API.
var referenceAST = pc.NewAST("conformance-sum", 0)

var (
	refDigit = pc.Token(`[0-9]`, "DIGIT")
	refPlus  = pc.Atom("+", "+")
	refTerm  = referenceAST.And("term", nil, refPlus, refDigit)
	refSum   = referenceAST.And("sum", nil, refDigit, referenceAST.ManyUntil("tail", nil, refTerm, pc.End()))
)

// ReferenceSum parses input as digit ('+' digit)* using goparsec and
// returns the sum of the digits, matching the semantics the combi-native
// grammar in this package is checked against. ok is false if goparsec did
// not recognize all of input as a sum expression (Parsewith's second
// return is the leftover scanner, not a success flag — like the teacher's
// own FromSource, a nil root is what signals failure here).
func ReferenceSum(input string) (sum int, ok bool) {
	root, _ := referenceAST.Parsewith(refSum, pc.NewScanner([]byte(input)))
	if root == nil {
		return 0, false
	}
	children := root.GetChildren()
	if len(children) != 2 {
		return 0, false
	}
	total, err := strconv.Atoi(children[0].GetValue())
	if err != nil {
		return 0, false
	}
	terms := children[1].GetChildren()
	for _, term := range terms {
		termChildren := term.GetChildren()
		if len(termChildren) != 2 {
			return 0, false
		}
		d, err := strconv.Atoi(termChildren[1].GetValue())
		if err != nil {
			return 0, false
		}
		total += d
	}
	// ManyUntil stops collecting terms as soon as one fails to match,
	// without requiring the rest of input to reach pc.End() (the same
	// ambiguity the teacher's own FromSource works around by hardcoding
	// its success bool, see its "TODO: hardcoding to true" note). Check
	// consumption structurally instead: one digit plus two runes per
	// term must account for the whole input, or something was left over.
	if 1+2*len(terms) != len(input) {
		return 0, false
	}
	return total, true
}
