package main

import (
	"strconv"

	"github.com/combi-lang/combi/pkg/combi"
)

// arithmeticGrammar is the demo grammar this command runs: arithmetic
// expressions with four scratch registers (r0-r3), supporting +, -, *, /,
// parentheses and register read/assignment (r0 := 1 + 2 reads as "assign,
// then yield the assigned value", as in C). It exists to give RunParser a
// non-trivial, runnable grammar to exercise from the command line, in the
// same spirit as the teacher's cmd/ binaries each drove one concrete
// language end to end.
func arithmeticGrammar() combi.Node {
	var expr combi.Node
	exprRef := combi.Lazy(func() combi.Node { return expr })

	addOp := combi.Map(func(op any) any {
		switch op.(string) {
		case "+":
			return func(a, b any) any { return a.(int) + b.(int) }
		default:
			return func(a, b any) any { return a.(int) - b.(int) }
		}
	}, combi.Alt(combi.Operator("+"), combi.Operator("-")))

	mulOp := combi.Map(func(op any) any {
		switch op.(string) {
		case "*":
			return func(a, b any) any { return a.(int) * b.(int) }
		default:
			return func(a, b any) any { return a.(int) / b.(int) }
		}
	}, combi.Alt(combi.Operator("*"), combi.Operator("/")))

	number := combi.Bind(digit(), func(first any) combi.Node {
		return combi.Bind(combi.Many(digit()), func(rest any) combi.Node {
			return combi.Pure(atoi(first.(rune), rest.([]any)))
		})
	})

	parens := combi.ThenRight(combi.Operator("("), combi.ThenLeft(exprRef, combi.Operator(")")))

	regRef := combi.Map(func(d any) any { return int(d.(rune) - '0') },
		combi.ThenRight(combi.CharTok('r'), combi.Satisfy("register 0-3", isRegisterDigit)))

	register := combi.Bind(regRef, func(idx any) combi.Node {
		reg := idx.(int)
		assign := combi.Attempt(combi.ThenRight(combi.Operator(":="), combi.Bind(exprRef, func(v any) combi.Node {
			return combi.ThenRight(combi.Put(reg, combi.Pure(v)), combi.Pure(v))
		})))
		return combi.Alt(assign, combi.Get(reg))
	})

	factor := combi.Alt(register, combi.Alt(number, parens))
	term := combi.ChainLeft(factor, mulOp)
	expr = combi.ChainLeft(term, addOp)

	return combi.ThenLeft(expr, combi.Eof())
}

func digit() combi.Node {
	return combi.Satisfy("digit", func(r rune) bool { return r >= '0' && r <= '9' })
}

func isRegisterDigit(r rune) bool { return r >= '0' && r <= '3' }

func atoi(first rune, rest []any) int {
	runes := make([]rune, 0, len(rest)+1)
	runes = append(runes, first)
	for _, r := range rest {
		runes = append(runes, r.(rune))
	}
	n, _ := strconv.Atoi(string(runes))
	return n
}
