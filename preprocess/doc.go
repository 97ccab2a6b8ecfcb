// Package preprocess expands the engine's public header into one
// self-contained C source for a specific build.
//
// Expand runs the C compiler in preprocess-only mode ("cc -E -P") with
// the include directory, definitions and optimization level of a
// finished build.Artifact, so the text encodes exactly the ABI of the
// library that was just compiled. The result must not contain a single
// remaining directive. A missing header, a compiler error or a surviving
// directive (for example a #pragma) returns a KindPreprocessFailure error
// with the compiler output attached.
package preprocess
