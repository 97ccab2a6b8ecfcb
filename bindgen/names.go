package bindgen

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
)

var initialisms = map[string]string{
	"api":  "API",
	"db":   "DB",
	"id":   "ID",
	"io":   "IO",
	"json": "JSON",
	"url":  "URL",
}

// reserved are identifiers the generated code itself uses.
var reserved = map[string]bool{
	"C":      true,
	"unsafe": true,
	"ret":    true,
}

// exportedName turns a C identifier into an exported Go name after
// dropping the first matching prefix: ukv_database_init_t -> DatabaseInitT.
func exportedName(cname string, prefixes []string) string {
	name := cname
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			name = name[len(p):]
			break
		}
	}
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		if up, ok := initialisms[strings.ToLower(part)]; ok {
			b.WriteString(up)
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "X" + out
	}
	return out
}

// paramName turns a C parameter name into a local Go identifier.
func paramName(cname string, index int, used map[string]bool) string {
	name := ""
	parts := strings.Split(cname, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if name == "" {
			name = strings.ToLower(part[:1]) + part[1:]
			continue
		}
		if i > 0 {
			name += strings.ToUpper(part[:1]) + part[1:]
		}
	}
	if name == "" {
		name = "arg" + strconv.Itoa(index)
	}
	if token.IsKeyword(name) || reserved[name] {
		name += "_"
	}
	for used[name] {
		name += strconv.Itoa(index)
	}
	used[name] = true
	return name
}
