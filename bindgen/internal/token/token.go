package token

import (
	"unicode"
)

type Type int

const (
	Ident Type = iota
	Number
	String
	Char
	Punct
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Char:
		return "character"
	case Punct:
		return "punctuator"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

// Is reports whether the token is the punctuator or keyword v.
func (t Token) Is(v string) bool {
	return t.Value == v && (t.Type == Punct || t.Type == Ident)
}

// Tokenize splits preprocessed C source into tokens. Comments are
// dropped. Multi-character punctuators the declaration grammar needs
// ("...", "<<", ">>", "::") are kept together.
func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		// Block comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				if runes[i] == '\n' {
					line++
				}
				i++
			}
			i++
			continue
		}

		// String and character literals
		if r == '"' || r == '\'' {
			quote := r
			start := i + 1
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			typ := String
			if quote == '\'' {
				typ = Char
			}
			end := i
			if end > len(runes) {
				end = len(runes)
			}
			tokens = append(tokens, Token{string(runes[start:end]), typ, line})
			continue
		}

		// Number, including hex, suffixes and floats
		if unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) {
			start := i
			for i < len(runes) {
				c := runes[i]
				if unicode.IsDigit(c) || unicode.IsLetter(c) || c == '.' || c == '_' ||
					((c == '-' || c == '+') && (runes[i-1] == 'e' || runes[i-1] == 'E' || runes[i-1] == 'p' || runes[i-1] == 'P')) {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, line})
			i--
			continue
		}

		// Identifier or keyword
		if unicode.IsLetter(r) || r == '_' || r == '$' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '$') {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		// Punctuators
		if i+2 < len(runes) && string(runes[i:i+3]) == "..." {
			tokens = append(tokens, Token{"...", Punct, line})
			i += 2
			continue
		}
		if i+1 < len(runes) {
			two := string(runes[i : i+2])
			switch two {
			case "<<", ">>", "::", "->", "&&", "||":
				tokens = append(tokens, Token{two, Punct, line})
				i++
				continue
			}
		}
		tokens = append(tokens, Token{string(r), Punct, line})
	}

	return tokens
}
