package parser

import (
	"fmt"

	"github.com/wippyai/ukv-go/bindgen/internal/ast"
	"github.com/wippyai/ukv-go/bindgen/internal/token"
)

// Error is a declaration the parser could not read or cannot represent.
type Error struct {
	Symbol      string
	Msg         string
	Line        int
	Unsupported bool
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Symbol, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type Parser struct {
	relevant   func(string) bool
	enumConsts map[string]int64
	tokens     []token.Token
	pending    []ast.Decl
	symbol     string
	pos        int
	line       int
}

// New creates a parser over preprocessed tokens. Declarations that
// mention a relevant identifier must parse; any other declaration that
// fails is recorded as skipped.
func New(tokens []token.Token, relevant func(string) bool) *Parser {
	if relevant == nil {
		relevant = func(string) bool { return true }
	}
	return &Parser{
		tokens:     strip(tokens),
		relevant:   relevant,
		enumConsts: make(map[string]int64),
	}
}

func (p *Parser) Parse() (*ast.File, error) {
	file := &ast.File{}
	for _, c := range split(p.tokens) {
		if len(c.tokens) == 0 {
			continue
		}
		relevant := p.mentionsRelevant(c.tokens)
		if c.body {
			if relevant {
				return nil, &Error{
					Line:        c.tokens[0].Line,
					Symbol:      p.firstRelevant(c.tokens),
					Msg:         "function definitions in headers are not supported",
					Unsupported: true,
				}
			}
			file.Skipped = append(file.Skipped, ast.Skipped{Line: c.tokens[0].Line, Reason: "function definition"})
			continue
		}

		decls, err := p.parseChunk(c.tokens)
		if err != nil {
			if relevant {
				if e, ok := err.(*Error); ok && e.Symbol == "" {
					e.Symbol = p.firstRelevant(c.tokens)
				}
				return nil, err
			}
			file.Skipped = append(file.Skipped, ast.Skipped{Line: c.tokens[0].Line, Reason: err.Error()})
			continue
		}
		file.Decls = append(file.Decls, decls...)
	}
	return file, nil
}

func (p *Parser) mentionsRelevant(tokens []token.Token) bool {
	return p.firstRelevant(tokens) != ""
}

func (p *Parser) firstRelevant(tokens []token.Token) string {
	for _, t := range tokens {
		if t.Type == token.Ident && !keywords[t.Value] && p.relevant(t.Value) {
			return t.Value
		}
	}
	return ""
}

func (p *Parser) parseChunk(tokens []token.Token) ([]ast.Decl, error) {
	p.tokens = tokens
	p.pos = 0
	p.pending = nil
	p.symbol = ""
	p.line = tokens[0].Line

	// Enum constants only become visible once the whole declaration parsed.
	saved := make(map[string]int64, len(p.enumConsts))
	for k, v := range p.enumConsts {
		saved[k] = v
	}

	decls, err := p.parseDecl()
	if err != nil {
		p.enumConsts = saved
		return nil, err
	}
	if t := p.peek(); t != nil {
		p.enumConsts = saved
		return nil, p.errorf("unexpected %q after declaration", t.Value)
	}
	return decls, nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) *token.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	p.line = t.Line
	return t
}

func (p *Parser) accept(v string) bool {
	if t := p.peek(); t != nil && t.Is(v) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(v string) error {
	t := p.next()
	if t == nil {
		return p.errorf("expected %q, got end of declaration", v)
	}
	if !t.Is(v) {
		return p.errorf("expected %q, got %q", v, t.Value)
	}
	return nil
}

func (p *Parser) expectIdent() (string, error) {
	t := p.next()
	if t == nil {
		return "", p.errorf("expected identifier, got end of declaration")
	}
	if t.Type != token.Ident || keywords[t.Value] {
		return "", p.errorf("expected identifier, got %q", t.Value)
	}
	return t.Value, nil
}

func (p *Parser) errorf(format string, args ...any) *Error {
	return &Error{Line: p.line, Symbol: p.symbol, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unsupported(symbol, what string) *Error {
	if symbol == "" {
		symbol = p.symbol
	}
	return &Error{Line: p.line, Symbol: symbol, Msg: what + " is not supported", Unsupported: true}
}

// parseDecl reads one declaration up to and including its semicolon.
func (p *Parser) parseDecl() ([]ast.Decl, error) {
	line := p.line
	isTypedef := false
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident || !storage[t.Value] {
			break
		}
		if t.Value == "typedef" {
			isTypedef = true
		}
		p.next()
	}

	base, err := p.parseSpecifiers()
	if err != nil {
		return nil, err
	}

	if p.accept(";") {
		return p.pending, nil
	}

	decls := p.pending
	p.pending = nil
	first := true
	for {
		name, typ, err := p.parseDeclarator(base)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, p.errorf("declaration without a name")
		}
		p.symbol = name

		// typedef struct { ... } name; takes the typedef name as its tag.
		if first && isTypedef && typ == base && base.Name == "" && (base.Kind == ast.Struct || base.Kind == ast.Enum) {
			base.Name = name
			for _, d := range decls {
				switch d := d.(type) {
				case *ast.StructDef:
					if d.Tag == "" {
						d.Tag = name
					}
				case *ast.EnumDef:
					if d.Tag == "" {
						d.Tag = name
					}
				}
			}
		}
		first = false

		switch {
		case isTypedef:
			decls = append(decls, &ast.Typedef{Name: name, Type: typ, Line: line})
		case typ.Kind == ast.Func:
			decls = append(decls, &ast.FuncDecl{
				Name:     name,
				Result:   typ.Elem,
				Params:   typ.Params,
				Variadic: typ.Variadic,
				Line:     line,
			})
		default:
			decls = append(decls, &ast.VarDecl{Name: name, Type: typ, Line: line})
		}

		if p.accept("=") {
			p.skipInitializer()
		}
		if p.accept(",") {
			continue
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return decls, nil
	}
}

func (p *Parser) skipInitializer() {
	depth := 0
	for t := p.peek(); t != nil; t = p.peek() {
		switch {
		case t.Is("(") || t.Is("{") || t.Is("["):
			depth++
		case t.Is(")") || t.Is("}") || t.Is("]"):
			depth--
		case depth == 0 && (t.Is(",") || t.Is(";")):
			return
		}
		p.next()
	}
}

// parseSpecifiers reads the type specifiers and qualifiers in front of a
// declarator. Struct and enum bodies are appended to p.pending.
func (p *Parser) parseSpecifiers() (*ast.Type, error) {
	var (
		words   []string
		named   string
		record  *ast.Type
		isConst bool
	)

loop:
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		switch {
		case t.Value == "const":
			isConst = true
			p.next()
		case qualifiers[t.Value] || storage[t.Value]:
			p.next()
		case builtins[t.Value]:
			if named != "" || record != nil {
				break loop
			}
			words = append(words, t.Value)
			p.next()
		case t.Value == "struct" || t.Value == "union":
			if named != "" || record != nil || len(words) > 0 {
				break loop
			}
			rt, err := p.parseRecord()
			if err != nil {
				return nil, err
			}
			record = rt
		case t.Value == "enum":
			if named != "" || record != nil || len(words) > 0 {
				break loop
			}
			et, err := p.parseEnum()
			if err != nil {
				return nil, err
			}
			record = et
		case keywords[t.Value]:
			return nil, p.errorf("unexpected keyword %q", t.Value)
		default:
			if named != "" || record != nil || len(words) > 0 {
				break loop
			}
			named = t.Value
			p.next()
		}
	}

	var typ *ast.Type
	switch {
	case record != nil:
		typ = record
	case named != "":
		typ = &ast.Type{Kind: ast.Named, Name: named}
	case len(words) > 0:
		pt, err := p.primitive(words)
		if err != nil {
			return nil, err
		}
		typ = pt
	default:
		t := p.peek()
		if t == nil {
			return nil, p.errorf("expected type, got end of declaration")
		}
		return nil, p.errorf("expected type, got %q", t.Value)
	}
	if isConst {
		typ.Const = true
	}
	return typ, nil
}

func (p *Parser) primitive(words []string) (*ast.Type, error) {
	count := make(map[string]int, len(words))
	for _, w := range words {
		count[w]++
	}
	unsigned := count["unsigned"] > 0
	if unsigned && count["signed"] > 0 {
		return nil, p.errorf("both signed and unsigned")
	}

	name := ""
	switch {
	case count["_Complex"] > 0:
		return nil, p.unsupported("", "complex type")
	case count["void"] > 0:
		return &ast.Type{Kind: ast.Void}, nil
	case count["_Bool"] > 0 || count["bool"] > 0:
		name = "bool"
	case count["float"] > 0:
		name = "float"
	case count["double"] > 0:
		name = "double"
		if count["long"] > 0 {
			name = "longdouble"
		}
	case count["char"] > 0:
		name = "char"
		if unsigned {
			name = "uchar"
		} else if count["signed"] > 0 {
			name = "schar"
		}
	case count["short"] > 0:
		name = "short"
	case count["long"] >= 2:
		name = "longlong"
	case count["long"] == 1:
		name = "long"
	case count["__int128"] > 0:
		return nil, p.unsupported("", "128-bit integer")
	default:
		name = "int"
	}
	if unsigned && name != "uchar" {
		name = "u" + name
	}
	return &ast.Type{Kind: ast.Prim, Name: name}, nil
}

func (p *Parser) parseRecord() (*ast.Type, error) {
	kw := p.next().Value
	tag := ""
	if t := p.peek(); t != nil && t.Type == token.Ident && !keywords[t.Value] {
		tag = p.next().Value
	}
	if kw == "union" {
		return nil, p.unsupported(tag, "union")
	}
	typ := &ast.Type{Kind: ast.Struct, Name: tag}
	if !p.accept("{") {
		if tag == "" {
			return nil, p.errorf("anonymous struct without body")
		}
		return typ, nil
	}

	line := p.line
	if tag != "" {
		p.symbol = tag
	}
	def := &ast.StructDef{Tag: tag, Line: line}
	for !p.accept("}") {
		if p.peek() == nil {
			return nil, p.errorf("unterminated struct %s", tag)
		}
		base, err := p.parseSpecifiers()
		if err != nil {
			return nil, err
		}
		for {
			name, ft, err := p.parseDeclarator(base)
			if err != nil {
				return nil, err
			}
			if name == "" {
				if base.Kind == ast.Struct {
					return nil, p.unsupported(tag, "anonymous struct member")
				}
				return nil, p.errorf("field without a name")
			}
			if tag != "" {
				p.symbol = tag
			}
			if p.accept(":") {
				return nil, p.unsupported(tag+"."+name, "bitfield")
			}
			if ft.Kind == ast.Array && ft.Len < 0 {
				return nil, p.unsupported(tag+"."+name, "flexible array member")
			}
			def.Fields = append(def.Fields, ast.Field{Name: name, Type: ft, Line: p.line})
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	p.pending = append(p.pending, def)
	return typ, nil
}

func (p *Parser) parseEnum() (*ast.Type, error) {
	p.next()
	tag := ""
	if t := p.peek(); t != nil && t.Type == token.Ident && !keywords[t.Value] {
		tag = p.next().Value
	}
	typ := &ast.Type{Kind: ast.Enum, Name: tag}
	if !p.accept("{") {
		if tag == "" {
			return nil, p.errorf("anonymous enum without body")
		}
		return typ, nil
	}

	def := &ast.EnumDef{Tag: tag, Line: p.line}
	next := int64(0)
	for !p.accept("}") {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		value := next
		if p.accept("=") {
			v, err := p.constExpr(0)
			if err != nil {
				return nil, err
			}
			value = v
		}
		def.Values = append(def.Values, ast.EnumValue{Name: name, Value: value, Line: p.line})
		p.enumConsts[name] = value
		next = value + 1
		if !p.accept(",") {
			if err := p.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(def.Values) == 0 {
		return nil, p.errorf("empty enum %s", tag)
	}
	p.pending = append(p.pending, def)
	return typ, nil
}

// parseDeclarator applies pointer, array and function declarators to base.
// The name is empty for abstract declarators.
func (p *Parser) parseDeclarator(base *ast.Type) (string, *ast.Type, error) {
	t := base
	for p.accept("*") {
		t = &ast.Type{Kind: ast.Pointer, Elem: t}
		for {
			q := p.peek()
			if q == nil || q.Type != token.Ident || !(q.Value == "const" || qualifiers[q.Value]) {
				break
			}
			if q.Value == "const" {
				t.Const = true
			}
			p.next()
		}
	}

	if open, inner := p.peek(), p.peekAt(1); open != nil && open.Is("(") && inner != nil && (inner.Is("*") || inner.Is("(")) {
		p.next()
		ph := &ast.Type{}
		name, nested, err := p.parseDeclarator(ph)
		if err != nil {
			return "", nil, err
		}
		if err := p.expect(")"); err != nil {
			return "", nil, err
		}
		outer, err := p.parseSuffixes(t)
		if err != nil {
			return "", nil, err
		}
		*ph = *outer
		return name, nested, nil
	}

	name := ""
	if n := p.peek(); n != nil && n.Type == token.Ident && !keywords[n.Value] {
		name = p.next().Value
		p.symbol = name
	}
	t, err := p.parseSuffixes(t)
	if err != nil {
		return "", nil, err
	}
	return name, t, nil
}

func (p *Parser) parseSuffixes(base *ast.Type) (*ast.Type, error) {
	switch {
	case p.accept("["):
		n := int64(-1)
		if !p.accept("]") {
			v, err := p.constExpr(0)
			if err != nil {
				return nil, err
			}
			if v < 0 {
				return nil, p.errorf("negative array length %d", v)
			}
			n = v
			if err := p.expect("]"); err != nil {
				return nil, err
			}
		}
		elem, err := p.parseSuffixes(base)
		if err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.Array, Elem: elem, Len: int(n)}, nil

	case p.accept("("):
		params, variadic, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.Func, Elem: base, Params: params, Variadic: variadic}, nil
	}
	return base, nil
}

func (p *Parser) parseParams() ([]ast.Param, bool, error) {
	if p.accept(")") {
		return nil, false, nil
	}
	if t, n := p.peek(), p.peekAt(1); t != nil && t.Is("void") && n != nil && n.Is(")") {
		p.next()
		p.next()
		return nil, false, nil
	}

	symbol := p.symbol
	var params []ast.Param
	for {
		if p.accept("...") {
			if err := p.expect(")"); err != nil {
				return nil, false, err
			}
			p.symbol = symbol
			return params, true, nil
		}
		base, err := p.parseSpecifiers()
		if err != nil {
			return nil, false, err
		}
		name, typ, err := p.parseDeclarator(base)
		if err != nil {
			return nil, false, err
		}
		switch typ.Kind {
		case ast.Array:
			typ = &ast.Type{Kind: ast.Pointer, Elem: typ.Elem}
		case ast.Func:
			typ = &ast.Type{Kind: ast.Pointer, Elem: typ}
		}
		params = append(params, ast.Param{Name: name, Type: typ})
		if p.accept(",") {
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, false, err
		}
		p.symbol = symbol
		return params, false, nil
	}
}
