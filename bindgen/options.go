package bindgen

import (
	"strconv"
	"strings"

	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/preprocess"
)

// Version is bumped whenever the emitted source changes for the same
// input header, so stale bindings can be told apart.
const Version = "1"

const (
	// DefaultPackage is the package the bindings are generated into.
	DefaultPackage = "native"
	// DefaultOutput is where the bindings are written, relative to the
	// module root.
	DefaultOutput = "native/zz_bindings.go"
	// Constraint keeps the bindings out of builds without the engine.
	Constraint = "cgo && ukv_native"
)

// Options configures binding generation.
type Options struct {
	// Package name of the generated file.
	Package string
	// Prefixes select the engine's exported symbols. Declarations whose
	// name has none of them are used only to resolve types.
	Prefixes []string
	// Includes are the headers the cgo preamble includes.
	Includes []string
	CFLAGS   string
	LDFLAGS  string
	// PointerSize in bytes for layout assertions. Defaults to the host word.
	PointerSize int
	// Comment lines placed under the generated-code marker.
	Comment []string
}

func (o *Options) setDefaults() {
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if len(o.Prefixes) == 0 {
		o.Prefixes = []string{"ukv_"}
	}
	if len(o.Includes) == 0 {
		o.Includes = []string{preprocess.DefaultHeader}
	}
	if o.PointerSize == 0 {
		o.PointerSize = strconv.IntSize / 8
	}
}

func (o *Options) relevant(name string) bool {
	for _, p := range o.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ForArtifact returns options whose cgo flags link against the artifact
// the header was expanded from.
func ForArtifact(art *build.Artifact, opts Options) Options {
	opts.CFLAGS = art.CgoCFLAGS()
	opts.LDFLAGS = art.CgoLDFLAGS()
	opts.Comment = append(opts.Comment,
		"Backends: "+art.Backends().String()+", profile: "+string(art.Profile())+".")
	return opts
}
