// Package compile turns a combi.Node tree into a form pkg/vm can generate
// code from: preprocess resolves recursive grammars and absorbs error
// labels, optimise rewrites the result to a smaller equivalent tree.
package compile

import "fmt"

// CompileError reports a build-time misuse of a combinator — something
// wrong with the grammar itself, as opposed to a runtime parse Failure
// (pkg/vm.Failure) produced while running it. After optimisation, a
// Many/SkipMany whose body is a Pure, or a ChainPre/ChainPost whose operator
// is a Pure, is reported this way, since it would otherwise loop forever at
// runtime. Other bodies that can succeed without consuming input, and
// SepEndBy1/ManyUntil, are not checked.
type CompileError struct {
	Node string
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("combi/compile: %s: %s", e.Node, e.Msg)
}

func errf(node, format string, args ...any) *CompileError {
	return &CompileError{Node: node, Msg: fmt.Sprintf(format, args...)}
}
