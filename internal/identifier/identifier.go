// Package identifier implements the CTF 1.8 TSDL identifier rules: the
// reserved keyword set, syntactic validation, and the leading-underscore
// protection scheme applied to struct member and variant option names.
package identifier

import "strings"

var reserved = map[string]struct{}{
	"align":           {},
	"callsite":        {},
	"const":           {},
	"char":            {},
	"clock":           {},
	"double":          {},
	"enum":            {},
	"env":             {},
	"event":           {},
	"floating_point":  {},
	"float":           {},
	"integer":         {},
	"int":             {},
	"long":            {},
	"short":           {},
	"signed":          {},
	"stream":          {},
	"string":          {},
	"struct":          {},
	"trace":           {},
	"typealias":       {},
	"typedef":         {},
	"unsigned":        {},
	"variant":         {},
	"void":            {},
	"_Bool":           {},
	"_Complex":        {},
	"_Imaginary":      {},
}

// Reserved reports whether name is one of the CTF 1.8 reserved keywords.
func Reserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9')
}

// Valid reports whether name satisfies the four CTF 1.8 identifier rules:
// non-empty, not a reserved keyword, a letter-or-underscore first
// character, and alphanumeric-or-underscore thereafter.
func Valid(name string) bool {
	if name == "" {
		return false
	}
	if Reserved(name) {
		return false
	}
	first := name[0]
	if !isAlpha(first) && first != '_' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isAlnum(c) && c != '_' {
			return false
		}
	}
	return true
}

// MustProtect reports whether name needs protection: it collides with a
// reserved keyword, or it already begins with an underscore. The latter
// case only exists so callers building up a name incrementally (the
// variant-option disambiguation algorithm) can recognize "already
// protected" without a separate flag.
func MustProtect(name string) bool {
	return Reserved(name) || strings.HasPrefix(name, "_")
}

// Protect prepends a single underscore when name collides with a reserved
// keyword. A name that already begins with an underscore is left alone:
// re-protecting an already-protected name is a no-op, never a second
// prepend, which is what makes Protect idempotent (PI8).
func Protect(name string) string {
	if strings.HasPrefix(name, "_") {
		return name
	}
	if Reserved(name) {
		return "_" + name
	}
	return name
}
