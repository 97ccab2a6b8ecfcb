package parser

import (
	"github.com/wippyai/ukv-go/bindgen/internal/token"
)

var storage = map[string]bool{
	"typedef":       true,
	"extern":        true,
	"static":        true,
	"register":      true,
	"auto":          true,
	"_Thread_local": true,
	"__thread":      true,
}

var qualifiers = map[string]bool{
	"volatile": true,
	"_Atomic":  true,
}

var builtins = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"signed":   true,
	"unsigned": true,
	"float":    true,
	"double":   true,
	"_Bool":    true,
	"bool":     true,
	"_Complex": true,
	"__int128": true,
}

var keywords = map[string]bool{
	"const":  true,
	"struct": true,
	"union":  true,
	"enum":   true,
	"sizeof": true,
}

func init() {
	for k := range storage {
		keywords[k] = true
	}
	for k := range qualifiers {
		keywords[k] = true
	}
	for k := range builtins {
		keywords[k] = true
	}
}

// dropped are compiler extensions with no effect on the Go mirror.
var dropped = map[string]bool{
	"__extension__": true,
	"__restrict":    true,
	"__restrict__":  true,
	"restrict":      true,
	"__inline":      true,
	"__inline__":    true,
	"inline":        true,
	"_Noreturn":     true,
	"_Nullable":     true,
	"_Nonnull":      true,
	"__nullable":    true,
	"__nonnull":     true,
}

// droppedCalls are extensions followed by a parenthesized argument list.
var droppedCalls = map[string]bool{
	"__attribute__": true,
	"__attribute":   true,
	"__declspec":    true,
	"__asm__":       true,
	"__asm":         true,
	"asm":           true,
	"_Alignas":      true,
}

var renamed = map[string]string{
	"__const":    "const",
	"__const__":  "const",
	"__signed":   "signed",
	"__signed__": "signed",
	"__volatile": "volatile",
}

// strip removes attributes and other extensions from the token stream.
func strip(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Type == token.Ident {
			if dropped[t.Value] {
				continue
			}
			if droppedCalls[t.Value] {
				if i+1 < len(tokens) && tokens[i+1].Is("(") {
					depth := 0
					for i++; i < len(tokens); i++ {
						if tokens[i].Is("(") {
							depth++
						} else if tokens[i].Is(")") {
							depth--
							if depth == 0 {
								break
							}
						}
					}
				}
				continue
			}
			if r, ok := renamed[t.Value]; ok {
				t.Value = r
			}
		}
		out = append(out, t)
	}
	return out
}

type chunk struct {
	tokens []token.Token
	body   bool
}

// split cuts the stream into top-level declarations. extern "C" blocks
// are unwrapped and function definitions are returned as body chunks.
func split(tokens []token.Token) []chunk {
	var chunks []chunk
	depth, start, linkage := 0, 0, 0
	body := false

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if depth == 0 && i == start {
			if t.Is("extern") && i+2 < len(tokens) && tokens[i+1].Type == token.String && tokens[i+2].Is("{") {
				linkage++
				i += 2
				start = i + 1
				continue
			}
			if t.Is("}") && linkage > 0 {
				linkage--
				start = i + 1
				continue
			}
			if t.Is(";") {
				start = i + 1
				continue
			}
		}

		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			if t.Is("{") && depth == 0 && i > start && tokens[i-1].Is(")") {
				body = true
			}
			depth++
		case t.Is(")") || t.Is("]") || t.Is("}"):
			depth--
			if depth == 0 && body && t.Is("}") {
				chunks = append(chunks, chunk{tokens: tokens[start : i+1], body: true})
				start = i + 1
				body = false
			}
		case t.Is(";") && depth == 0:
			chunks = append(chunks, chunk{tokens: tokens[start : i+1]})
			start = i + 1
		}
	}
	if start < len(tokens) {
		chunks = append(chunks, chunk{tokens: tokens[start:]})
	}
	return chunks
}
