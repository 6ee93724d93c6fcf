package gmail

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var entityPattern = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|amp|lt|gt|quot|apos);`)

var namedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",
}

// DecodeHTMLEntities replaces the five XML named entities and decimal or
// hexadecimal character references. Invalid code points decode to U+FFFD.
// Any other named entity is left untouched.
func DecodeHTMLEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityPattern.ReplaceAllStringFunc(s, func(m string) string {
		ref := m[1 : len(m)-1]
		if v, ok := namedEntities[ref]; ok {
			return v
		}

		var (
			code uint64
			err  error
		)
		if strings.HasPrefix(ref, "#x") || strings.HasPrefix(ref, "#X") {
			code, err = strconv.ParseUint(ref[2:], 16, 32)
		} else {
			code, err = strconv.ParseUint(ref[1:], 10, 32)
		}
		if err != nil || code > utf8.MaxRune {
			return string(utf8.RuneError)
		}
		r := rune(code)
		if !utf8.ValidRune(r) {
			return string(utf8.RuneError)
		}
		return string(r)
	})
}
