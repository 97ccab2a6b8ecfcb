// Package database manages the lifecycle of native engine handles.
//
// A DB wraps the opaque pointer returned by ukv_database_init. It moves
// through three states:
//
//	Uninitialized --Init ok--> Open --Close--> Closed
//	      |                                      ^
//	      +---------------Close------------------+
//
// Init failures leave the DB Uninitialized. The engine's message is
// decoded once at the boundary, the native string is freed, and an
// *errors.Error of kind initialization_failure is returned. Close frees the
// handle exactly once; later calls are no-ops.
//
// The raw pointer is only reachable through Borrow, which refuses to run
// once the handle is closed:
//
//	err := database.With(native.Binding{}, `{"version": "1.0"}`, func(db *database.DB) error {
//		return db.Borrow(func(p unsafe.Pointer) error {
//			// call generated bindings with p
//			return nil
//		})
//	})
//
// Borrow holds a shared lock, so callers on different goroutines reach the
// engine at the same time. Concurrent native calls on one handle must be
// synchronized by the caller unless the engine documents otherwise; Close
// only waits for borrowers to return.
//
// Registry tracks handles for processes that open several and need to
// release all of them on shutdown.
package database
