//go:build !(cgo && ukv_native)

package native

import (
	"unsafe"

	"github.com/wippyai/ukv-go/database"
)

// Available reports whether the engine is linked into this binary.
const Available = false

// Unavailable is the message every init fails with in builds without the
// engine.
const Unavailable = "engine not linked: rebuild with CGO_ENABLED=1 and -tags ukv_native"

var sentinel byte

// Binding fails every init because the engine is not linked.
type Binding struct{}

var _ database.Binding = Binding{}

func (Binding) DatabaseInit(req *database.InitRequest) {
	req.Error = unsafe.Pointer(&sentinel)
}

func (Binding) DatabaseFree(unsafe.Pointer) {}

func (Binding) ErrorMessage(unsafe.Pointer) string { return Unavailable }

func (Binding) ErrorFree(unsafe.Pointer) {}
