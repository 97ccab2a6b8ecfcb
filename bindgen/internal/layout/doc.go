// Package layout computes C struct size, alignment and field offsets.
//
// The generator uses it to emit compile-time assertions that every Go
// mirror struct matches the native layout on the target word size.
package layout
