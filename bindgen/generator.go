package bindgen

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/wippyai/ukv-go/bindgen/internal/ast"
	"github.com/wippyai/ukv-go/bindgen/internal/layout"
	"github.com/wippyai/ukv-go/bindgen/internal/parser"
	"github.com/wippyai/ukv-go/bindgen/internal/token"
	"github.com/wippyai/ukv-go/errors"
)

type generator struct {
	calc     *layout.Calculator
	typedefs map[string]*ast.Typedef
	structs  map[string]*ast.StructDef
	enums    map[string]*ast.EnumDef
	// Go type and cgo spelling (without "C.") per struct or enum tag.
	structNames map[string]string
	structC     map[string]string
	enumNames   map[string]string
	enumC       map[string]string
	declared    map[string]string
	emitted     map[string]bool
	opts        Options
	buf         bytes.Buffer
	symbols     int
}

// Generate emits the Go binding source for an expanded header. The output
// depends only on src, opts and Version.
func Generate(src string, opts Options) ([]byte, error) {
	opts.setDefaults()

	file, err := parser.New(token.Tokenize(src), opts.relevant).Parse()
	if err != nil {
		if pe, ok := err.(*parser.Error); ok {
			return nil, errors.BindingFailed(pe.Symbol, pe.Line, pe.Msg)
		}
		return nil, errors.Wrap(errors.PhaseBindgen, errors.KindBindingFailure, err, "parse header")
	}
	for _, s := range file.Skipped {
		Logger().Debug("skipped system declaration", zap.Int("line", s.Line), zap.String("reason", s.Reason))
	}

	g := &generator{
		opts:        opts,
		typedefs:    make(map[string]*ast.Typedef),
		structs:     make(map[string]*ast.StructDef),
		enums:       make(map[string]*ast.EnumDef),
		structNames: make(map[string]string),
		structC:     make(map[string]string),
		enumNames:   make(map[string]string),
		enumC:       make(map[string]string),
		declared:    make(map[string]string),
		emitted:     make(map[string]bool),
	}
	g.calc = layout.NewCalculator(uint32(opts.PointerSize), g)
	g.index(file)

	body, err := g.emit(file)
	if err != nil {
		return nil, err
	}
	if g.symbols == 0 {
		return nil, errors.BindingFailed("", 0,
			fmt.Sprintf("header declares no symbols with prefix %s", strings.Join(opts.Prefixes, ", ")))
	}

	raw := append(g.header(strings.Contains(string(body), "unsafe.")), body...)
	out, err := imports.Process(DefaultOutput, raw, &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, errors.New(errors.PhaseBindgen, errors.KindBindingFailure).
			Detail("format generated source").
			Cause(err).
			Output(string(raw)).
			Build()
	}

	Logger().Info("generated bindings",
		zap.Int("symbols", g.symbols),
		zap.Int("skipped", len(file.Skipped)),
		zap.Int("bytes", len(out)))
	return out, nil
}

// index records every declaration and decides the Go name of each
// exported struct and enum before anything is emitted.
func (g *generator) index(file *ast.File) {
	for _, d := range file.Decls {
		switch d := d.(type) {
		case *ast.Typedef:
			if _, ok := g.typedefs[d.Name]; !ok {
				g.typedefs[d.Name] = d
			}
			if !g.opts.relevant(d.Name) {
				continue
			}
			switch d.Type.Kind {
			case ast.Struct:
				g.claim(g.structNames, g.structC, d.Type.Name, d.Name)
			case ast.Enum:
				g.claim(g.enumNames, g.enumC, d.Type.Name, d.Name)
			}
		case *ast.StructDef:
			if _, ok := g.structs[d.Tag]; !ok {
				g.structs[d.Tag] = d
			}
			if g.opts.relevant(d.Tag) {
				if _, ok := g.structNames[d.Tag]; !ok {
					g.structNames[d.Tag] = g.goName(d.Tag)
					g.structC[d.Tag] = "struct_" + d.Tag
				}
			}
		case *ast.EnumDef:
			if _, ok := g.enums[d.Tag]; !ok {
				g.enums[d.Tag] = d
			}
			if g.opts.relevant(d.Tag) {
				if _, ok := g.enumNames[d.Tag]; !ok {
					g.enumNames[d.Tag] = g.goName(d.Tag)
					g.enumC[d.Tag] = "enum_" + d.Tag
				}
			}
		}
	}
}

// claim names a tagged type after the exported typedef that refers to it,
// unless the tag is exported under a different Go name of its own.
func (g *generator) claim(names, cnames map[string]string, tag, typedef string) {
	goName := g.goName(typedef)
	if existing, ok := names[tag]; ok && existing != goName {
		return
	}
	names[tag] = goName
	cnames[tag] = typedef
}

func (g *generator) goName(cname string) string {
	return exportedName(cname, g.opts.Prefixes)
}

// declare reserves a Go identifier for a C symbol.
func (g *generator) declare(goName, cname string, line int) error {
	if goName == "" {
		return errors.BindingFailed(cname, line, "no Go name after removing the prefix")
	}
	if prev, ok := g.declared[goName]; ok && prev != cname {
		return errors.BindingFailed(cname, line, fmt.Sprintf("Go name %s already used by %s", goName, prev))
	}
	g.declared[goName] = cname
	return nil
}

func (g *generator) header(usesUnsafe bool) []byte {
	var b bytes.Buffer
	b.WriteString("// Code generated by ukvbuild. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "// Generator version %s.\n", Version)
	for _, c := range g.opts.Comment {
		fmt.Fprintf(&b, "// %s\n", c)
	}
	fmt.Fprintf(&b, "\n//go:build %s\n\n", Constraint)
	fmt.Fprintf(&b, "package %s\n\n", g.opts.Package)
	b.WriteString("/*\n")
	if g.opts.CFLAGS != "" {
		fmt.Fprintf(&b, "#cgo CFLAGS: %s\n", g.opts.CFLAGS)
	}
	if g.opts.LDFLAGS != "" {
		fmt.Fprintf(&b, "#cgo LDFLAGS: %s\n", g.opts.LDFLAGS)
	}
	for _, inc := range g.opts.Includes {
		fmt.Fprintf(&b, "#include \"%s\"\n", inc)
	}
	b.WriteString("*/\nimport \"C\"\n\n")
	if usesUnsafe {
		b.WriteString("import \"unsafe\"\n\n")
	}
	return b.Bytes()
}

func (g *generator) emit(file *ast.File) ([]byte, error) {
	for _, d := range file.Decls {
		var err error
		switch d := d.(type) {
		case *ast.StructDef:
			if g.opts.relevant(d.Tag) {
				err = g.emitStruct(d.Tag)
			}
		case *ast.EnumDef:
			err = g.emitEnumDef(d)
		case *ast.Typedef:
			if g.opts.relevant(d.Name) {
				err = g.emitTypedef(d)
			}
		case *ast.FuncDecl:
			if g.opts.relevant(d.Name) {
				err = g.emitFunc(d)
			}
		case *ast.VarDecl:
			if g.opts.relevant(d.Name) {
				err = g.emitVar(d)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return g.buf.Bytes(), nil
}

func (g *generator) emitStruct(tag string) error {
	if g.emitted[tag] {
		return nil
	}
	g.emitted[tag] = true
	def := g.structs[tag]
	name := g.structNames[tag]
	if err := g.declare(name, tag, def.Line); err != nil {
		return err
	}

	fields := make([]string, len(def.Fields))
	types := make([]string, len(def.Fields))
	seen := make(map[string]bool, len(def.Fields))
	for i, f := range def.Fields {
		gt, err := g.goType(f.Type)
		if err != nil {
			return errors.BindingFailed(tag+"."+f.Name, f.Line, err.Error())
		}
		fn := exportedName(f.Name, nil)
		if fn == "" {
			fn = "_"
		}
		for fn != "_" && seen[fn] {
			fn += "_"
		}
		seen[fn] = true
		fields[i] = fn
		types[i] = gt
	}

	info, err := g.calc.Calculate(&ast.Type{Kind: ast.Struct, Name: tag})
	if err != nil {
		return errors.BindingFailed(tag, def.Line, err.Error())
	}

	w := &g.buf
	fmt.Fprintf(w, "// %s mirrors %s.\n", name, strings.Replace(g.structC[tag], "struct_", "struct ", 1))
	fmt.Fprintf(w, "type %s struct {\n", name)
	for i := range fields {
		fmt.Fprintf(w, "\t%s %s\n", fields[i], types[i])
	}
	w.WriteString("}\n\n")

	w.WriteString("var (\n")
	fmt.Fprintf(w, "\t_ = [1]struct{}{}[unsafe.Sizeof(%s{})-%d]\n", name, info.Size)
	fmt.Fprintf(w, "\t_ = [1]struct{}{}[unsafe.Sizeof(%s{})-uintptr(C.sizeof_%s)]\n", name, g.structC[tag])
	for i, f := range def.Fields {
		if fields[i] == "_" {
			continue
		}
		fmt.Fprintf(w, "\t_ = [1]struct{}{}[unsafe.Offsetof(%s{}.%s)-%d]\n", name, fields[i], info.FieldOffs[f.Name])
	}
	w.WriteString(")\n\n")
	g.symbols++
	return nil
}

// emitOpaque declares a struct the header never defines. It is only ever
// handled through pointers.
func (g *generator) emitOpaque(name, cname string, line int) error {
	if err := g.declare(name, cname, line); err != nil {
		return err
	}
	fmt.Fprintf(&g.buf, "// %s is the incomplete type %s.\ntype %s struct{ _ [0]byte }\n\n", name, cname, name)
	g.symbols++
	return nil
}

func (g *generator) emitEnumDef(d *ast.EnumDef) error {
	name, typed := g.enumNames[d.Tag]
	if typed && g.emitted["enum "+d.Tag] {
		return nil
	}
	if !typed {
		var exported []ast.EnumValue
		for _, v := range d.Values {
			if g.opts.relevant(v.Name) {
				exported = append(exported, v)
			}
		}
		if len(exported) == 0 {
			return nil
		}
		return g.emitConsts("", exported)
	}
	g.emitted["enum "+d.Tag] = true

	if err := g.declare(name, d.Tag, d.Line); err != nil {
		return err
	}
	lo, hi := int64(0), int64(0)
	for _, v := range d.Values {
		lo = min(lo, v.Value)
		hi = max(hi, v.Value)
	}
	base := "uint32"
	switch {
	case lo < 0 && (lo < math.MinInt32 || hi > math.MaxInt32):
		return errors.BindingFailed(d.Tag, d.Line, "enum values exceed 32 bits")
	case lo < 0:
		base = "int32"
	case hi > math.MaxUint32:
		return errors.BindingFailed(d.Tag, d.Line, "enum values exceed 32 bits")
	}
	fmt.Fprintf(&g.buf, "// %s mirrors %s.\ntype %s %s\n\n", name, g.enumC[d.Tag], name, base)
	g.symbols++
	return g.emitConsts(name, d.Values)
}

func (g *generator) emitConsts(typeName string, values []ast.EnumValue) error {
	w := &g.buf
	w.WriteString("const (\n")
	for _, v := range values {
		vn := g.goName(v.Name)
		if err := g.declare(vn, v.Name, v.Line); err != nil {
			return err
		}
		if typeName != "" {
			fmt.Fprintf(w, "\t%s %s = %d\n", vn, typeName, v.Value)
		} else {
			fmt.Fprintf(w, "\t%s = %d\n", vn, v.Value)
		}
		g.symbols++
	}
	w.WriteString(")\n\n")
	return nil
}

func (g *generator) emitTypedef(d *ast.Typedef) error {
	name := g.goName(d.Name)
	t := d.Type

	switch {
	case t.Kind == ast.Struct:
		target, ok := g.structNames[t.Name]
		if ok && target == name {
			if _, defined := g.structs[t.Name]; defined {
				return g.emitStruct(t.Name)
			}
			return g.emitOpaque(name, d.Name, d.Line)
		}
		return g.emitAlias(d, target)

	case t.Kind == ast.Enum:
		target, ok := g.enumNames[t.Name]
		if ok && target == name {
			def, defined := g.enums[t.Name]
			if !defined {
				return errors.BindingFailed(d.Name, d.Line, "enum "+t.Name+" has no definition")
			}
			return g.emitEnumDef(def)
		}
		return g.emitAlias(d, target)

	case g.underlying(t).Kind == ast.Func:
		// Function types are only reachable through pointers, which map
		// to unsafe.Pointer.
		return nil

	case t.Kind == ast.Pointer && g.isRawPointer(g.resolve(t.Elem)):
		if err := g.declare(name, d.Name, d.Line); err != nil {
			return err
		}
		what := "an opaque handle"
		if g.underlying(t.Elem).Kind == ast.Func {
			what = "a native callback"
		}
		fmt.Fprintf(&g.buf, "// %s is %s, mirroring %s.\ntype %s unsafe.Pointer\n\n", name, what, d.Name, name)
		g.symbols++
		return nil
	}

	gt, err := g.goType(t)
	if err != nil {
		return errors.BindingFailed(d.Name, d.Line, err.Error())
	}
	if err := g.declare(name, d.Name, d.Line); err != nil {
		return err
	}
	fmt.Fprintf(&g.buf, "// %s mirrors %s.\ntype %s %s\n\n", name, d.Name, name, gt)
	g.symbols++
	return nil
}

func (g *generator) emitAlias(d *ast.Typedef, target string) error {
	name := g.goName(d.Name)
	if target == "" {
		return errors.BindingFailed(d.Name, d.Line, fmt.Sprintf("refers to unexported %s", d.Type))
	}
	if err := g.declare(name, d.Name, d.Line); err != nil {
		return err
	}
	fmt.Fprintf(&g.buf, "// %s mirrors %s.\ntype %s = %s\n\n", name, d.Name, name, target)
	g.symbols++
	return nil
}

func (g *generator) emitFunc(d *ast.FuncDecl) error {
	if d.Variadic {
		return errors.BindingFailed(d.Name, d.Line, "variadic function is not supported")
	}
	name := g.goName(d.Name)
	if err := g.declare(name, d.Name, d.Line); err != nil {
		return err
	}

	used := make(map[string]bool, len(d.Params))
	params := make([]string, len(d.Params))
	args := make([]string, len(d.Params))
	for i, p := range d.Params {
		pn := paramName(p.Name, i, used)
		gt, err := g.goType(p.Type)
		if err != nil {
			return errors.BindingFailed(d.Name, d.Line, fmt.Sprintf("parameter %d: %v", i, err))
		}
		arg, err := g.toC(pn, p.Type)
		if err != nil {
			return errors.BindingFailed(d.Name, d.Line, fmt.Sprintf("parameter %d: %v", i, err))
		}
		params[i] = pn + " " + gt
		args[i] = arg
	}

	w := &g.buf
	call := fmt.Sprintf("C.%s(%s)", d.Name, strings.Join(args, ", "))
	if g.classify(d.Result) == valueVoid {
		fmt.Fprintf(w, "// %s calls %s.\nfunc %s(%s) {\n\t%s\n}\n\n", name, d.Name, name, strings.Join(params, ", "), call)
		g.symbols++
		return nil
	}

	rt, err := g.goType(d.Result)
	if err != nil {
		return errors.BindingFailed(d.Name, d.Line, "result: "+err.Error())
	}
	conv, err := g.fromC("ret", d.Result, rt)
	if err != nil {
		return errors.BindingFailed(d.Name, d.Line, "result: "+err.Error())
	}
	fmt.Fprintf(w, "// %s calls %s.\nfunc %s(%s) %s {\n\tret := %s\n\treturn %s\n}\n\n",
		name, d.Name, name, strings.Join(params, ", "), rt, call, conv)
	g.symbols++
	return nil
}

func (g *generator) emitVar(d *ast.VarDecl) error {
	if k := g.classify(d.Type); k == valueArray || k == valueFunc || k == valueVoid {
		return errors.BindingFailed(d.Name, d.Line, "only scalar, pointer and struct objects are supported")
	}
	name := g.goName(d.Name)
	gt, err := g.goType(d.Type)
	if err != nil {
		return errors.BindingFailed(d.Name, d.Line, err.Error())
	}
	conv, err := g.fromC("C."+d.Name, d.Type, gt)
	if err != nil {
		return errors.BindingFailed(d.Name, d.Line, err.Error())
	}
	if err := g.declare(name, d.Name, d.Line); err != nil {
		return err
	}
	fmt.Fprintf(&g.buf, "// %s returns %s.\nfunc %s() %s {\n\treturn %s\n}\n\n", name, d.Name, name, gt, conv)
	g.symbols++
	return nil
}
