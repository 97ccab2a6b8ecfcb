package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseBindgen,
				Kind:   KindBindingFailure,
				Step:   "parse",
				Symbol: "ukv_weird_t",
				Line:   12,
				Detail: "unions cannot be mirrored",
			},
			contains: []string{"[bindgen]", "binding_failure", "at parse", "ukv_weird_t", "line 12", "unions cannot be mirrored"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRuntime,
				Kind:  KindUseAfterClose,
			},
			contains: []string{"[runtime]", "use_after_close"},
		},
		{
			name: "error with cause and output",
			err: &Error{
				Phase:  PhaseBuild,
				Kind:   KindBuildFailure,
				Step:   "compile",
				Cause:  errors.New("exit status 2"),
				Output: "src/engine_rocksdb.cpp:12: error: rocksdb/db.h: No such file",
			},
			contains: []string{"[build]", "build_failure", "caused by", "exit status 2", "\nsrc/engine_rocksdb.cpp:12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_OutputVerbatim(t *testing.T) {
	out := "line one\n\tline two  \n"
	err := BuildFailed("configure", out, errors.New("exit status 1"))
	if !strings.HasSuffix(err.Error(), out) {
		t.Fatalf("output not preserved verbatim: %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhasePreprocess,
		Kind:  KindPreprocessFailure,
		Cause: cause,
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap should return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseBuild,
		Kind:  KindBuildFailure,
		Step:  "compile",
	}

	if !err.Is(&Error{Phase: PhaseBuild, Kind: KindBuildFailure}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhasePreprocess, Kind: KindBuildFailure}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBuild, Kind: KindInvalidInput}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseBuild, Kind: KindBuildFailure}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("open: %w", InitFailed("no such directory"))
	if !IsKind(err, KindInitialization) {
		t.Error("IsKind should find initialization failure")
	}
	if IsKind(err, KindUseAfterClose) {
		t.Error("IsKind should not match other kinds")
	}
	if IsKind(errors.New("plain"), KindInitialization) {
		t.Error("IsKind should not match plain errors")
	}
}

func TestError_Fatal(t *testing.T) {
	tests := []struct {
		err   *Error
		fatal bool
	}{
		{BuildFailed("configure", "", nil), true},
		{PreprocessFailed("missing include", "", nil), true},
		{BindingFailed("x", 1, "bad"), true},
		{InitFailed("bad config"), false},
		{UseAfterClose("borrow"), false},
		{InvalidInput(PhaseSelect, "unknown backend"), false},
	}
	for _, tt := range tests {
		if got := tt.err.Fatal(); got != tt.fatal {
			t.Errorf("%s: Fatal() = %v, want %v", tt.err.Kind, got, tt.fatal)
		}
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseBindgen, KindBindingFailure).
		Step("emit").
		Symbol("ukv_size_t", 7).
		Output("raw").
		Cause(cause).
		Detail("expected %s, got %s", "type", "identifier").
		Build()

	if err.Phase != PhaseBindgen {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseBindgen)
	}
	if err.Kind != KindBindingFailure {
		t.Errorf("Kind = %v, want %v", err.Kind, KindBindingFailure)
	}
	if err.Step != "emit" || err.Symbol != "ukv_size_t" || err.Line != 7 {
		t.Errorf("Step/Symbol/Line = %q/%q/%d", err.Step, err.Symbol, err.Line)
	}
	if err.Output != "raw" {
		t.Errorf("Output = %q, want 'raw'", err.Output)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected type, got identifier" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InitFailed", func(t *testing.T) {
		err := InitFailed("bad path")
		if err.Kind != KindInitialization || err.Phase != PhaseRuntime {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if err.Detail != "bad path" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("UseAfterClose", func(t *testing.T) {
		err := UseAfterClose("borrow")
		if err.Kind != KindUseAfterClose || err.Step != "borrow" {
			t.Errorf("Kind=%v Step=%v", err.Kind, err.Step)
		}
	})

	t.Run("InvalidState", func(t *testing.T) {
		err := InvalidState("init", "open")
		if err.Kind != KindInvalidState || !strings.Contains(err.Detail, "open") {
			t.Errorf("Kind=%v Detail=%v", err.Kind, err.Detail)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("io")
		err := Wrap(PhaseConfig, KindInvalidInput, cause, "read ukv.yaml")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep cause")
		}
	})
}
