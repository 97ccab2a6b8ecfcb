package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in the pipeline or handle lifecycle the error occurred
type Phase string

const (
	PhaseSelect     Phase = "select"     // backend selection
	PhaseConfig     Phase = "config"     // configuration loading
	PhaseBuild      Phase = "build"      // native configure/compile
	PhasePreprocess Phase = "preprocess" // header expansion
	PhaseBindgen    Phase = "bindgen"    // binding generation
	PhaseRuntime    Phase = "runtime"    // handle lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindBuildFailure      Kind = "build_failure"
	KindPreprocessFailure Kind = "preprocess_failure"
	KindBindingFailure    Kind = "binding_failure"
	KindInitialization    Kind = "initialization_failure"
	KindUseAfterClose     Kind = "use_after_close"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Step   string // pipeline step or native entry point
	Symbol string // C symbol, for binding errors
	Detail string
	Output string // captured tool diagnostics, verbatim
	Line   int    // source line in the expanded header, 0 if unknown
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Step != "" {
		b.WriteString(" at ")
		b.WriteString(e.Step)
	}

	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
		if e.Line > 0 {
			fmt.Fprintf(&b, " (line %d)", e.Line)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	if e.Output != "" {
		b.WriteByte('\n')
		b.WriteString(e.Output)
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error must abort the build pipeline.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindBuildFailure, KindPreprocessFailure, KindBindingFailure:
		return true
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Step sets the pipeline step or entry point
func (b *Builder) Step(step string) *Builder {
	b.err.Step = step
	return b
}

// Symbol sets the C symbol and its line
func (b *Builder) Symbol(name string, line int) *Builder {
	b.err.Symbol = name
	b.err.Line = line
	return b
}

// Output attaches captured diagnostics
func (b *Builder) Output(out string) *Builder {
	b.err.Output = out
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// BuildFailed creates a native configure/compile failure
func BuildFailed(step, output string, cause error) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindBuildFailure,
		Step:   step,
		Output: output,
		Cause:  cause,
	}
}

// PreprocessFailed creates a header expansion failure
func PreprocessFailed(detail, output string, cause error) *Error {
	return &Error{
		Phase:  PhasePreprocess,
		Kind:   KindPreprocessFailure,
		Detail: detail,
		Output: output,
		Cause:  cause,
	}
}

// BindingFailed creates an error for a declaration that cannot be mirrored
func BindingFailed(symbol string, line int, detail string) *Error {
	return &Error{
		Phase:  PhaseBindgen,
		Kind:   KindBindingFailure,
		Symbol: symbol,
		Line:   line,
		Detail: detail,
	}
}

// InitFailed creates an error carrying the message decoded from the native error slot
func InitFailed(message string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInitialization,
		Step:   "ukv_database_init",
		Detail: message,
	}
}

// UseAfterClose creates an error for an operation on a handle that is not open
func UseAfterClose(op string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindUseAfterClose,
		Step:   op,
		Detail: "database handle is not open",
	}
}

// InvalidState creates an error for a lifecycle transition that is not allowed
func InvalidState(op, state string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInvalidState,
		Step:   op,
		Detail: fmt.Sprintf("not allowed in state %s", state),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
