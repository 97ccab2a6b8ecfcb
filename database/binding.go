package database

import "unsafe"

// Binding is the slice of the generated native surface the lifecycle
// manager needs. Package native implements it over cgo.
type Binding interface {
	// DatabaseInit runs ukv_database_init. It reports the outcome only
	// through the request's DB and Error slots.
	DatabaseInit(req *InitRequest)
	// DatabaseFree releases a handle returned by DatabaseInit.
	DatabaseFree(db unsafe.Pointer)
	// ErrorMessage decodes a native error string.
	ErrorMessage(err unsafe.Pointer) string
	// ErrorFree releases a native error string.
	ErrorFree(err unsafe.Pointer)
}

// InitRequest is the Go view of ukv_database_init_t. DB and Error are the
// output slots and are nil before the call.
type InitRequest struct {
	DB     unsafe.Pointer
	Error  unsafe.Pointer
	Config string
}
