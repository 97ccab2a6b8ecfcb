// Package errors provides structured error types for the ukv-go module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the failing pipeline step, the C symbol being mirrored,
// the captured output of the native toolchain, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBindgen, errors.KindBindingFailure).
//		Symbol("ukv_database_init_t", 248).
//		Detail("bitfields cannot be mirrored").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.BuildFailed("configure", output, cause)
//	err := errors.InitFailed("Couldn't open directory")
//
// Build, preprocess and binding failures are fatal to the pipeline
// (Error.Fatal). Initialization failures are ordinary returned values.
// All errors implement the standard error interface and support errors.Is/As.
package errors
