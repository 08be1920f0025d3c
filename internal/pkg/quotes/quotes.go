// Package quotes renders GraphQL string values.
package quotes

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const quoteByte = '"'

// GraphQLString renders str as a quoted GraphQL string value.
// Block strings are normalized to regular strings so that equal values print equally.
func GraphQLString(str string) string {
	b := strings.Builder{}
	b.Grow(len(str) + 2)
	b.WriteByte(quoteByte)
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				hex := strconv.FormatInt(int64(r), 16)
				if len(hex) == 1 {
					b.WriteByte('0')
				}
				b.WriteString(hex)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte(quoteByte)
	return b.String()
}
