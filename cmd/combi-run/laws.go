package main

import (
	"math/rand"
	"reflect"

	"github.com/combi-lang/combi/pkg/combi"
)

// arithmeticSumGrammar is the restricted digit ('+' digit)* grammar checked
// against pkg/conformance's goparsec reference by --laws: a subset of
// arithmeticGrammar narrow enough for an independent implementation to
// mirror exactly (no registers, no precedence, no parentheses).
func arithmeticSumGrammar() combi.Node {
	d := combi.Map(func(r any) any { return int(r.(rune) - '0') },
		combi.Satisfy("digit", func(r rune) bool { return r >= '0' && r <= '9' }))
	plus := combi.Map(func(any) any {
		return func(a, b any) any { return a.(int) + b.(int) }
	}, combi.Operator("+"))
	return combi.ThenLeft(combi.ChainLeft(d, plus), combi.Eof())
}

// sumExpr generates digit ('+' digit)* strings for the --laws fuzz check.
type sumExpr string

func (sumExpr) Generate(r *rand.Rand, size int) reflect.Value {
	n := 1 + r.Intn(5)
	buf := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, '+')
		}
		buf = append(buf, byte('0'+r.Intn(10)))
	}
	return reflect.ValueOf(sumExpr(buf))
}
