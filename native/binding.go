//go:build cgo && ukv_native

package native

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/ukv-go/database"
)

// Available reports whether the engine is linked into this binary.
const Available = true

// Binding implements database.Binding over the generated functions.
type Binding struct{}

var _ database.Binding = Binding{}

// The init struct and its output slots handed to C must live in C memory:
// the engine writes pointers into them.
type initSlots struct {
	db  DatabaseT
	err ErrorT
}

func (Binding) DatabaseInit(req *database.InitRequest) {
	cfg := C.CString(req.Config)
	defer C.free(unsafe.Pointer(cfg))

	in := (*DatabaseInitT)(C.calloc(1, C.size_t(unsafe.Sizeof(DatabaseInitT{}))))
	defer C.free(unsafe.Pointer(in))
	out := (*initSlots)(C.calloc(1, C.size_t(unsafe.Sizeof(initSlots{}))))
	defer C.free(unsafe.Pointer(out))

	in.Config = StrViewT(unsafe.Pointer(cfg))
	in.DB = &out.db
	in.Error = &out.err

	DatabaseInit(in)

	req.DB = unsafe.Pointer(out.db)
	req.Error = unsafe.Pointer(out.err)
}

func (Binding) DatabaseFree(db unsafe.Pointer) {
	DatabaseFree(DatabaseT(db))
}

func (Binding) ErrorMessage(err unsafe.Pointer) string {
	return C.GoString((*C.char)(err))
}

func (Binding) ErrorFree(err unsafe.Pointer) {
	ErrorFree(ErrorT(err))
}
