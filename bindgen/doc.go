// Package bindgen generates the Go side of the native engine's C API.
//
// The input is a fully expanded header (see package preprocess). Every
// declaration whose name carries one of the configured prefixes is mirrored:
//
//   - typedefs of scalars become defined Go types of the same width
//   - typedefs of void* and function pointers become unsafe.Pointer types
//   - structs become Go structs, each followed by compile-time assertions
//     on its size and field offsets
//   - enums become a typed constant block
//   - functions become wrappers that call through cgo
//   - extern constants become accessor functions
//
// Declarations without a prefix, typically from system headers, are only
// used to resolve the types the engine refers to.
//
// Anything that cannot be mirrored faithfully (unions, bitfields, variadic
// functions, unknown type names) fails generation with a binding error
// naming the symbol. Nothing is skipped silently.
//
// The output is deterministic: the same header and options produce the
// same bytes for a given Version. It carries the build constraint
//
//	//go:build cgo && ukv_native
//
// so the module builds without the native library present.
package bindgen
