package erlterm

import (
	"fmt"
	"regexp"
	"strings"
)

var unquotedAtom = regexp.MustCompile(`^[a-z][a-zA-Z0-9_@]*$`)

// reserved words must be quoted when used as atoms
var reserved = map[string]struct{}{
	"after": {}, "and": {}, "andalso": {}, "band": {}, "begin": {}, "bnot": {}, "bor": {}, "bsl": {},
	"bsr": {}, "bxor": {}, "case": {}, "catch": {}, "cond": {}, "div": {}, "else": {}, "end": {},
	"fun": {}, "if": {}, "let": {}, "maybe": {}, "not": {}, "of": {}, "or": {}, "orelse": {},
	"receive": {}, "rem": {}, "try": {}, "when": {}, "xor": {},
}

// Format renders terms as a consultable document: one term per line, each terminated by a dot.
// The output is compact rather than pretty.
func Format(terms []Term) []byte {
	var sb strings.Builder
	for _, t := range terms {
		writeTerm(&sb, t)
		sb.WriteString(".\n")
	}
	return []byte(sb.String())
}

// FormatTerm renders a single term without a trailing dot
func FormatTerm(t Term) string {
	var sb strings.Builder
	writeTerm(&sb, t)
	return sb.String()
}

func writeTerm(sb *strings.Builder, t Term) {
	switch v := t.(type) {
	case Atom:
		s := string(v)
		if _, isReserved := reserved[s]; unquotedAtom.MatchString(s) && !isReserved {
			sb.WriteString(s)
		} else {
			writeQuoted(sb, s, '\'')
		}
	case String:
		writeQuoted(sb, string(v), '"')
	case Binary:
		sb.WriteString("<<")
		if v != "" {
			writeQuoted(sb, string(v), '"')
		}
		sb.WriteString(">>")
	case Number:
		sb.WriteString(string(v))
	case Tuple:
		writeSeq(sb, "{", []Term(v), "}")
	case List:
		writeSeq(sb, "[", []Term(v), "]")
	case Map:
		sb.WriteString("#{")
		for i, p := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeTerm(sb, p.Key)
			sb.WriteString(" => ")
			writeTerm(sb, p.Value)
		}
		sb.WriteByte('}')
	default:
		panic(fmt.Sprintf("erlterm: unknown term type %T", t))
	}
}

func writeSeq(sb *strings.Builder, open string, elems []Term, closing string) {
	sb.WriteString(open)
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeTerm(sb, e)
	}
	sb.WriteString(closing)
}

func writeQuoted(sb *strings.Builder, s string, q rune) {
	sb.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(sb, `\x{%X}`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(q)
}
