package parser

import (
	"strconv"
	"strings"

	"github.com/wippyai/ukv-go/bindgen/internal/token"
)

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"<<": 7,
	">>": 7,
	"+":  8,
	"-":  8,
	"*":  9,
	"/":  9,
	"%":  9,
}

// constExpr evaluates an integer constant expression by precedence
// climbing. It stops at the first token that is not part of it.
func (p *Parser) constExpr(minPrec int) (int64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t == nil || t.Type != token.Punct {
			return lhs, nil
		}
		prec, ok := precedence[t.Value]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		op := p.next().Value
		rhs, err := p.constExpr(prec + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = p.apply(op, lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func (p *Parser) apply(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, p.errorf("division by zero in constant expression")
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, p.errorf("unsupported operator %q", op)
}

func (p *Parser) unary() (int64, error) {
	t := p.next()
	if t == nil {
		return 0, p.errorf("expected constant, got end of declaration")
	}
	switch {
	case t.Is("-"), t.Is("+"), t.Is("~"), t.Is("!"):
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch t.Value {
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		case "!":
			return boolInt(v == 0), nil
		}
		return v, nil
	case t.Is("("):
		v, err := p.constExpr(0)
		if err != nil {
			return 0, err
		}
		return v, p.expect(")")
	case t.Type == token.Number:
		return parseInt(t.Value, p)
	case t.Type == token.Char:
		return parseChar(t.Value, p)
	case t.Type == token.Ident:
		if v, ok := p.enumConsts[t.Value]; ok {
			return v, nil
		}
		return 0, p.errorf("unknown constant %q", t.Value)
	}
	return 0, p.errorf("unexpected %q in constant expression", t.Value)
}

func parseInt(s string, p *Parser) (int64, error) {
	lit := strings.TrimRight(s, "uUlL")
	v, err := strconv.ParseInt(lit, 0, 64)
	if err == nil {
		return v, nil
	}
	u, uerr := strconv.ParseUint(lit, 0, 64)
	if uerr != nil {
		return 0, p.errorf("invalid integer constant %q", s)
	}
	return int64(u), nil
}

func parseChar(s string, p *Parser) (int64, error) {
	v, _, _, err := strconv.UnquoteChar(s, '\'')
	if err != nil {
		return 0, p.errorf("invalid character constant '%s'", s)
	}
	return int64(v), nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
