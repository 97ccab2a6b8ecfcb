package layout

import (
	"fmt"

	"github.com/wippyai/ukv-go/bindgen/internal/ast"
)

// Info is the size and alignment of a C type. FieldOffs is set for structs.
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

// Resolver looks up the declarations a type may refer to.
type Resolver interface {
	Typedef(name string) (*ast.Type, bool)
	Struct(tag string) (*ast.StructDef, bool)
}

// Calculator lays out C types with natural alignment, the rule shared by
// the LP64 and ILP32 ABIs the engine targets: long and pointers are one
// machine word, long long is always 8 bytes.
type Calculator struct {
	resolver    Resolver
	cache       map[string]Info
	active      map[string]bool
	pointerSize uint32
}

func NewCalculator(pointerSize uint32, resolver Resolver) *Calculator {
	return &Calculator{
		resolver:    resolver,
		pointerSize: pointerSize,
		cache:       make(map[string]Info),
		active:      make(map[string]bool),
	}
}

func (c *Calculator) Calculate(t *ast.Type) (Info, error) {
	switch t.Kind {
	case ast.Prim:
		return c.primitive(t.Name)
	case ast.Pointer:
		return Info{Size: c.pointerSize, Align: c.pointerSize}, nil
	case ast.Enum:
		return Info{Size: 4, Align: 4}, nil
	case ast.Array:
		if t.Len < 0 {
			return Info{}, fmt.Errorf("array of unknown length")
		}
		elem, err := c.Calculate(t.Elem)
		if err != nil {
			return Info{}, err
		}
		return Info{Size: elem.Size * uint32(t.Len), Align: elem.Align}, nil
	case ast.Named:
		under, ok := c.resolver.Typedef(t.Name)
		if !ok {
			return Info{}, fmt.Errorf("unknown type %s", t.Name)
		}
		return c.Calculate(under)
	case ast.Struct:
		return c.structInfo(t.Name)
	case ast.Void:
		return Info{}, fmt.Errorf("void has no size")
	case ast.Func:
		return Info{}, fmt.Errorf("function type has no size")
	}
	return Info{}, fmt.Errorf("unknown type kind %d", t.Kind)
}

func (c *Calculator) primitive(name string) (Info, error) {
	var size uint32
	switch name {
	case "char", "schar", "uchar", "bool":
		size = 1
	case "short", "ushort":
		size = 2
	case "int", "uint", "float":
		size = 4
	case "longlong", "ulonglong", "double":
		size = 8
	case "long", "ulong":
		size = c.pointerSize
	default:
		return Info{}, fmt.Errorf("no layout for %s", name)
	}
	return Info{Size: size, Align: size}, nil
}

func (c *Calculator) structInfo(tag string) (Info, error) {
	if cached, ok := c.cache[tag]; ok {
		return cached, nil
	}
	if c.active[tag] {
		return Info{}, fmt.Errorf("struct %s contains itself", tag)
	}
	def, ok := c.resolver.Struct(tag)
	if !ok {
		return Info{}, fmt.Errorf("incomplete struct %s", tag)
	}

	c.active[tag] = true
	defer delete(c.active, tag)

	if len(def.Fields) == 0 {
		info := Info{Size: 0, Align: 1}
		c.cache[tag] = info
		return info, nil
	}

	fieldOffs := make(map[string]uint32, len(def.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range def.Fields {
		fieldLayout, err := c.Calculate(field.Type)
		if err != nil {
			return Info{}, fmt.Errorf("%s.%s: %w", tag, field.Name, err)
		}

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[field.Name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	info := Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
	c.cache[tag] = info
	return info, nil
}

func AlignTo(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
