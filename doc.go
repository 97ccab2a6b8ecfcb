// Package ukv is the Go binding layer for the UKV embedded key-value engine.
//
// The native engine is compiled for a chosen set of storage backends and
// RPC front ends, its public header is expanded for exactly that set, and
// Go bindings are regenerated from the result. At run time a handle to the
// engine is opened, borrowed and released through package database.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	ukv/                 Root package with version information
//	├── backend/         Backend selection and native build definitions
//	├── build/           Native configure and compile, build artifact
//	├── preprocess/      Header expansion against an artifact
//	├── bindgen/         C header parser and cgo binding generator
//	├── pipeline/        build -> preprocess -> bindgen, halting on failure
//	├── config/          ukv.yaml, UKV_* environment and flag resolution
//	├── database/        Native handle lifecycle and registry
//	├── native/          Generated bindings and the cgo adapter
//	├── errors/          Structured error types
//	└── cmd/ukvbuild/    Command-line front end
//
// # Quick Start
//
// Build the engine with RocksDB and regenerate the bindings:
//
//	ukvbuild build --source ./third_party/ukv --backend rocksdb
//
// Then open a database from a binary built with -tags ukv_native:
//
//	err := database.With(native.Binding{}, `{"version": "1.0", "directory": "./db"}`,
//	    func(db *database.DB) error {
//	        return db.Borrow(func(p unsafe.Pointer) error {
//	            // pass p to the generated native functions
//	            return nil
//	        })
//	    })
//
// # Build Tags
//
// Packages other than native build without cgo. The generated bindings
// and the real adapter compile only with cgo and the ukv_native tag.
package ukv
