package combi

// ----------------------------------------------------------------------------
// ErrorLabel absorption

// Labelable is implemented by leaf nodes that carry an 'expected' label,
// which an enclosing ErrorLabel can override. Composite nodes do not
// implement it: preprocess just forwards the ambient label through them
// unchanged until it reaches a leaf.
type Labelable interface {
	Node
	WithExpected(label string) Node
}

// WithExpected returns a fresh CharTokNode reporting label on failure
// instead of the literal rune.
func (n *CharTokNode) WithExpected(label string) Node {
	return &CharTokNode{base: newBase(), Char: n.Char, Expected: label}
}

// WithExpected returns a fresh StringTokNode reporting label on failure.
func (n *StringTokNode) WithExpected(label string) Node {
	return &StringTokNode{base: newBase(), Str: n.Str, Expected: label}
}

// WithExpected returns a fresh SatisfyNode reporting label on failure.
func (n *SatisfyNode) WithExpected(label string) Node {
	return &SatisfyNode{base: newBase(), Pred: n.Pred, Expected: label}
}

// WithExpected returns a fresh EmptyNode reporting label on failure.
func (n *EmptyNode) WithExpected(label string) Node {
	return &EmptyNode{base: newBase(), Expected: label}
}

// WithExpected returns a fresh EofNode reporting label instead of "eof".
func (n *EofNode) WithExpected(label string) Node {
	return &EofNode{base: newBase(), Expected: label}
}

// WithExpected returns a fresh KeywordNode reporting label instead of the
// bare word.
func (n *KeywordNode) WithExpected(label string) Node {
	return &KeywordNode{base: newBase(), Word: n.Word, Expected: label}
}

// WithExpected returns a fresh OperatorNode reporting label instead of the
// operator spelling.
func (n *OperatorNode) WithExpected(label string) Node {
	return &OperatorNode{base: newBase(), Op: n.Op, Expected: label}
}

// WithExpected returns a fresh StringLiteralNode reporting label instead of
// "string".
func (n *StringLiteralNode) WithExpected(label string) Node {
	return &StringLiteralNode{base: newBase(), Quote: n.Quote, Expected: label}
}

// WithExpected returns a fresh RawStringLiteralNode reporting label instead
// of "string".
func (n *RawStringLiteralNode) WithExpected(label string) Node {
	return &RawStringLiteralNode{base: newBase(), Open: n.Open, Close: n.Close, Expected: label}
}

// Label returns the node's current expected-failure label, resolving the
// "use the default" cases (bare word, quoted literal, "eof", "string") that
// a blank Expected encodes.
func (n *CharTokNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return string(n.Char)
}

// Label returns the node's current expected-failure label.
func (n *StringTokNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return "\"" + n.Str + "\""
}

// Label returns the node's current expected-failure label.
func (n *SatisfyNode) Label() string { return n.Expected }

// Label returns the node's current expected-failure label.
func (n *EmptyNode) Label() string { return n.Expected }

// Label returns the node's current expected-failure label.
func (n *EofNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return "eof"
}

// Label returns the node's current expected-failure label.
func (n *KeywordNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return n.Word
}

// Label returns the node's current expected-failure label.
func (n *OperatorNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return n.Op
}

// Label returns the node's current expected-failure label.
func (n *StringLiteralNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return "string"
}

// Label returns the node's current expected-failure label.
func (n *RawStringLiteralNode) Label() string {
	if n.Expected != "" {
		return n.Expected
	}
	return "string"
}
