package bindgen

import (
	"fmt"
	"strconv"

	"github.com/wippyai/ukv-go/bindgen/internal/ast"
)

type prim struct {
	goType string
	cType  string
}

var prims = map[string]prim{
	"char":      {"byte", "C.char"},
	"schar":     {"int8", "C.schar"},
	"uchar":     {"uint8", "C.uchar"},
	"short":     {"int16", "C.short"},
	"ushort":    {"uint16", "C.ushort"},
	"int":       {"int32", "C.int"},
	"uint":      {"uint32", "C.uint"},
	"long":      {"int", "C.long"},
	"ulong":     {"uint", "C.ulong"},
	"longlong":  {"int64", "C.longlong"},
	"ulonglong": {"uint64", "C.ulonglong"},
	"float":     {"float32", "C.float"},
	"double":    {"float64", "C.double"},
	"bool":      {"bool", "C._Bool"},
}

// fixed are the standard typedefs mapped straight to Go types, whatever
// the system headers expand them to. canon is their layout stand-in.
var fixed = map[string]struct {
	goType string
	canon  string
}{
	"int8_t":    {"int8", "schar"},
	"uint8_t":   {"uint8", "uchar"},
	"int16_t":   {"int16", "short"},
	"uint16_t":  {"uint16", "ushort"},
	"int32_t":   {"int32", "int"},
	"uint32_t":  {"uint32", "uint"},
	"int64_t":   {"int64", "longlong"},
	"uint64_t":  {"uint64", "ulonglong"},
	"size_t":    {"uint", "ulong"},
	"ssize_t":   {"int", "long"},
	"ptrdiff_t": {"int", "long"},
	"intptr_t":  {"int", "long"},
	"uintptr_t": {"uintptr", "ulong"},
}

type valueKind int

const (
	valueVoid valueKind = iota
	valueScalar
	valuePointer
	valueStruct
	valueArray
	valueFunc
)

func (g *generator) typedefType(name string) (*ast.Type, bool) {
	if f, ok := fixed[name]; ok {
		return &ast.Type{Kind: ast.Prim, Name: f.canon}, true
	}
	td, ok := g.typedefs[name]
	if !ok {
		return nil, false
	}
	return td.Type, true
}

// Typedef and Struct make the generator the layout resolver.
func (g *generator) Typedef(name string) (*ast.Type, bool) { return g.typedefType(name) }

func (g *generator) Struct(tag string) (*ast.StructDef, bool) {
	def, ok := g.structs[tag]
	return def, ok
}

// resolve follows typedefs that are not part of the exported surface.
func (g *generator) resolve(t *ast.Type) *ast.Type {
	for t.Kind == ast.Named && !g.opts.relevant(t.Name) {
		if _, ok := fixed[t.Name]; ok {
			return t
		}
		td, ok := g.typedefs[t.Name]
		if !ok {
			return t
		}
		t = td.Type
	}
	return t
}

// underlying follows every typedef down to its structural type.
func (g *generator) underlying(t *ast.Type) *ast.Type {
	for depth := 0; t.Kind == ast.Named && depth < 64; depth++ {
		u, ok := g.typedefType(t.Name)
		if !ok {
			return t
		}
		t = u
	}
	return t
}

func (g *generator) classify(t *ast.Type) valueKind {
	switch g.underlying(t).Kind {
	case ast.Void:
		return valueVoid
	case ast.Pointer:
		return valuePointer
	case ast.Struct:
		return valueStruct
	case ast.Array:
		return valueArray
	case ast.Func:
		return valueFunc
	}
	return valueScalar
}

// isRawPointer reports whether a pointer to elem is untyped on the Go side.
func (g *generator) isRawPointer(elem *ast.Type) bool {
	u := g.underlying(elem)
	return u.Kind == ast.Void || u.Kind == ast.Func
}

// goType is the Go spelling of a C type in a mirror declaration.
func (g *generator) goType(t *ast.Type) (string, error) {
	switch t.Kind {
	case ast.Void:
		return "", fmt.Errorf("void is not a value type")
	case ast.Prim:
		p, ok := prims[t.Name]
		if !ok {
			return "", fmt.Errorf("%s is not supported", t.Name)
		}
		return p.goType, nil
	case ast.Named:
		if f, ok := fixed[t.Name]; ok {
			return f.goType, nil
		}
		td, ok := g.typedefs[t.Name]
		if !ok {
			return "", fmt.Errorf("unknown type %s", t.Name)
		}
		if g.opts.relevant(t.Name) {
			if g.underlying(td.Type).Kind == ast.Func {
				return "", fmt.Errorf("function type %s used as a value", t.Name)
			}
			return g.goName(t.Name), nil
		}
		return g.goType(td.Type)
	case ast.Pointer:
		if g.isRawPointer(g.resolve(t.Elem)) {
			return "unsafe.Pointer", nil
		}
		inner, err := g.goType(t.Elem)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case ast.Array:
		inner, err := g.goType(t.Elem)
		if err != nil {
			return "", err
		}
		return "[" + strconv.Itoa(t.Len) + "]" + inner, nil
	case ast.Struct:
		if t.Name == "" {
			return "", fmt.Errorf("anonymous struct is not supported")
		}
		name, ok := g.structNames[t.Name]
		if !ok {
			return "", fmt.Errorf("struct %s is not exported", t.Name)
		}
		return name, nil
	case ast.Enum:
		if name, ok := g.enumNames[t.Name]; ok {
			return name, nil
		}
		return "int32", nil
	}
	return "", fmt.Errorf("function type used as a value")
}

// cType is the cgo spelling of a C type.
func (g *generator) cType(t *ast.Type) (string, error) {
	switch t.Kind {
	case ast.Prim:
		p, ok := prims[t.Name]
		if !ok {
			return "", fmt.Errorf("%s is not supported", t.Name)
		}
		return p.cType, nil
	case ast.Named:
		if _, ok := fixed[t.Name]; ok || g.opts.relevant(t.Name) {
			return "C." + t.Name, nil
		}
		td, ok := g.typedefs[t.Name]
		if !ok {
			return "", fmt.Errorf("unknown type %s", t.Name)
		}
		return g.cType(td.Type)
	case ast.Pointer:
		elem := g.underlying(t.Elem)
		switch elem.Kind {
		case ast.Void:
			return "unsafe.Pointer", nil
		case ast.Func:
			return "*[0]byte", nil
		}
		inner, err := g.cType(t.Elem)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case ast.Struct:
		if c, ok := g.structC[t.Name]; ok {
			return "C." + c, nil
		}
		return "C.struct_" + t.Name, nil
	case ast.Enum:
		if c, ok := g.enumC[t.Name]; ok {
			return "C." + c, nil
		}
		return "C.enum_" + t.Name, nil
	}
	return "", fmt.Errorf("type %s cannot cross the cgo boundary", t)
}

// toC converts the Go expression expr to the cgo type of t.
func (g *generator) toC(expr string, t *ast.Type) (string, error) {
	ct, err := g.cType(t)
	if err != nil {
		return "", err
	}
	switch g.classify(t) {
	case valuePointer:
		if ct == "unsafe.Pointer" {
			return "unsafe.Pointer(" + expr + ")", nil
		}
		return "(" + ct + ")(unsafe.Pointer(" + expr + "))", nil
	case valueStruct:
		return "*(*" + ct + ")(unsafe.Pointer(&" + expr + "))", nil
	case valueScalar:
		return ct + "(" + expr + ")", nil
	}
	return "", fmt.Errorf("type %s cannot be passed by value", t)
}

// fromC converts a cgo value expr back to the Go mirror type gt.
func (g *generator) fromC(expr string, t *ast.Type, gt string) (string, error) {
	switch g.classify(t) {
	case valuePointer:
		if gt == "unsafe.Pointer" {
			return "unsafe.Pointer(" + expr + ")", nil
		}
		return "(" + gt + ")(unsafe.Pointer(" + expr + "))", nil
	case valueStruct:
		return "*(*" + gt + ")(unsafe.Pointer(&" + expr + "))", nil
	case valueScalar:
		return gt + "(" + expr + ")", nil
	}
	return "", fmt.Errorf("type %s cannot be returned by value", t)
}
