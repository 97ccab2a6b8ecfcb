// Package ast holds the declarations parsed from an expanded C header.
package ast

import "strings"

type Kind uint8

const (
	Void Kind = iota
	Prim
	Named
	Pointer
	Array
	Func
	Struct
	Enum
)

// Type is a C type. Prim carries a canonical spelling ("int", "ulong",
// "schar"...), Named a typedef name, Struct and Enum their tag.
type Type struct {
	Kind     Kind
	Name     string
	Elem     *Type
	Len      int
	Params   []Param
	Variadic bool
	Const    bool
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Void:
		return "void"
	case Prim, Named:
		return t.Name
	case Pointer:
		return t.Elem.String() + "*"
	case Array:
		return t.Elem.String() + "[]"
	case Func:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Type.String()
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return t.Elem.String() + "(" + strings.Join(parts, ", ") + ")"
	case Struct:
		return "struct " + t.Name
	case Enum:
		return "enum " + t.Name
	}
	return "?"
}

// IsVoidPointer reports whether t is void* with any qualifiers.
func (t *Type) IsVoidPointer() bool {
	return t.Kind == Pointer && t.Elem.Kind == Void
}

type Param struct {
	Name string
	Type *Type
}

type Field struct {
	Name string
	Type *Type
	Line int
}

type EnumValue struct {
	Name  string
	Value int64
	Line  int
}

// Decl is a top-level declaration in source order.
type Decl interface {
	DeclName() string
	DeclLine() int
}

type Typedef struct {
	Name string
	Type *Type
	Line int
}

type StructDef struct {
	Tag    string
	Fields []Field
	Line   int
}

type EnumDef struct {
	Tag    string
	Values []EnumValue
	Line   int
}

type FuncDecl struct {
	Name     string
	Result   *Type
	Params   []Param
	Variadic bool
	Line     int
}

// VarDecl is an object declaration such as `extern T const name;`.
type VarDecl struct {
	Name string
	Type *Type
	Line int
}

func (d *Typedef) DeclName() string   { return d.Name }
func (d *Typedef) DeclLine() int      { return d.Line }
func (d *StructDef) DeclName() string { return d.Tag }
func (d *StructDef) DeclLine() int    { return d.Line }
func (d *EnumDef) DeclName() string   { return d.Tag }
func (d *EnumDef) DeclLine() int      { return d.Line }
func (d *FuncDecl) DeclName() string  { return d.Name }
func (d *FuncDecl) DeclLine() int     { return d.Line }
func (d *VarDecl) DeclName() string   { return d.Name }
func (d *VarDecl) DeclLine() int      { return d.Line }

// Skipped records a declaration the parser could not read. Relevant
// declarations never end up here; the parser fails on them instead.
type Skipped struct {
	Line   int
	Reason string
}

type File struct {
	Decls   []Decl
	Skipped []Skipped
}
