// Package trace is the virtual machine's one blessed debugging side
// channel: pkg/vm calls into it when executing a Debug-wrapped combinator,
// gated behind the COMBI_DEBUG feature flag, mirroring the teacher's
// PARSEC_DEBUG/EXPORT_AST/PRINT_AST env-var toggles in pkg/asm, pkg/vm and
// pkg/jack's Parser.FromSource.
package trace

import (
	"fmt"
	"io"
	"os"
)

// Snapshot is passed to Tracer on entry to and exit from a Debug-wrapped
// region (pkg/vm's LogBegin instruction). It is a read-only view of enough
// VM state to print a trace line; pkg/vm fills one in on the stack and
// never retains a pointer to it past the call.
type Snapshot struct {
	Name       string // the Debug node's Name
	PC         int    // always 0: pkg/vm runs nested regions and has no global instruction index
	InputIndex int    // cursor offset into the rune input
	Window     string // a short slice of input around the cursor, for context
	ValueTop   any    // the Debug body's value on Exit; nil on Enter or after a failure
	Failed     bool   // true on an Exit call that observed a failure
}

// Tracer receives Enter/Exit notifications for every Debug-wrapped node
// whose BreakPoint matches. Implementations must not block the VM for long;
// there is exactly one tracer active per Machine run.
type Tracer interface {
	Enter(s Snapshot)
	Exit(s Snapshot)
}

// NopTracer discards every event; it is the default when COMBI_DEBUG is unset.
type NopTracer struct{}

func (NopTracer) Enter(Snapshot) {}
func (NopTracer) Exit(Snapshot)  {}

// StderrTracer writes one line per event to w.
type StderrTracer struct{ w io.Writer }

// NewStderrTracer returns a StderrTracer writing to os.Stderr.
func NewStderrTracer() *StderrTracer { return &StderrTracer{w: os.Stderr} }

func (t *StderrTracer) Enter(s Snapshot) {
	fmt.Fprintf(t.w, "combi: --> %s pc=%d input=%d %q\n", s.Name, s.PC, s.InputIndex, s.Window)
}

func (t *StderrTracer) Exit(s Snapshot) {
	status := "ok"
	if s.Failed {
		status = "fail"
	}
	fmt.Fprintf(t.w, "combi: <-- %s pc=%d input=%d %s value=%v\n", s.Name, s.PC, s.InputIndex, status, s.ValueTop)
}

// FromEnv returns a StderrTracer if COMBI_DEBUG is set in the environment,
// else NopTracer. pkg/vm.Compile installs this as every Parser's default
// tracer; Parser.WithTracer replaces it.
func FromEnv() Tracer {
	if os.Getenv("COMBI_DEBUG") != "" {
		return NewStderrTracer()
	}
	return NopTracer{}
}
