// Package native holds the generated cgo bindings for the engine and the
// adapter that exposes them to package database.
//
// The bindings live in zz_bindings.go, written by `ukvbuild bindgen`, and
// compile only with the cgo and ukv_native build tags. Without them the
// package still builds: Binding then fails every init with a message that
// names the missing tag, and Available reports false.
package native
