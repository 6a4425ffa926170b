package erlterm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError describes a malformed term document
type SyntaxError struct {
	Filename string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Msg)
}

// ParseFile reads a file of dot-terminated terms, like file:consult/1 does.
func ParseFile(fn string) ([]Term, error) {
	fc, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return parse(fn, fc)
}

// Parse parses a document of dot-terminated terms.
func Parse(data []byte) ([]Term, error) {
	return parse("", data)
}

func parse(fn string, data []byte) ([]Term, error) {
	p := &parser{lex: &lexer{fn: fn, src: string(data), line: 1}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var res []Term
	for p.tok.kind != tokEOF {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokDot {
			return nil, p.errorf("expected '.' after term, found %s", p.tok)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokAtom
	tokString
	tokNumber
	tokPunct
	tokDot
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokDot:
		return "'.'"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return "'" + t.text + "'"
	}
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() (err error) {
	p.tok, err = p.lex.next()
	return err
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Filename: p.lex.fn, Line: p.tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected '%s', found %s", s, p.tok)
	}
	return p.advance()
}

func (p *parser) term() (Term, error) {
	tok := p.tok
	switch tok.kind {
	case tokAtom:
		return Atom(tok.text), p.advance()
	case tokNumber:
		return Number(tok.text), p.advance()
	case tokString:
		// adjacent string literals concatenate
		var sb strings.Builder
		for p.tok.kind == tokString {
			sb.WriteString(p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return String(sb.String()), nil
	case tokPunct:
	default:
		return nil, p.errorf("unexpected %s", tok)
	}

	switch tok.text {
	case "-", "+":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokNumber {
			return nil, p.errorf("expected number after '%s', found %s", tok.text, p.tok)
		}
		n := p.tok.text
		if tok.text == "-" {
			n = "-" + n
		}
		return Number(n), p.advance()
	case "{":
		elems, err := p.sequence("}")
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil
	case "[":
		elems, err := p.sequence("]")
		if err != nil {
			return nil, err
		}
		return List(elems), nil
	case "<<":
		return p.binary()
	case "#{":
		return p.mapTerm()
	}
	return nil, p.errorf("unexpected %s", tok)
}

// sequence parses comma separated terms up to the closing delimiter. The opening delimiter is the current token.
func (p *parser) sequence(closing string) ([]Term, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	res := []Term{}
	if p.isPunct(closing) {
		return res, p.advance()
	}
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		res = append(res, t)

		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isPunct("|") {
			return nil, p.errorf("improper lists are not supported")
		}
		return res, p.expectPunct(closing)
	}
}

func (p *parser) binary() (Term, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var sb strings.Builder
	if p.isPunct(">>") {
		return Binary(""), p.advance()
	}
	for {
		seg, err := p.term()
		if err != nil {
			return nil, err
		}
		s, ok := seg.(String)
		if !ok {
			return nil, p.errorf("only string segments are supported in binaries")
		}
		sb.WriteString(string(s))

		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		return Binary(sb.String()), p.expectPunct(">>")
	}
}

func (p *parser) mapTerm() (Term, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	res := Map{}
	if p.isPunct("}") {
		return res, p.advance()
	}
	for {
		k, err := p.term()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("=>"); err != nil {
			return nil, err
		}
		v, err := p.term()
		if err != nil {
			return nil, err
		}
		res = append(res, MapPair{Key: k, Value: v})

		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		return res, p.expectPunct("}")
	}
}

type lexer struct {
	fn   string
	src  string
	pos  int
	line int
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Filename: l.fn, Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek() (rune, int) {
	if l.pos >= len(l.src) {
		return -1, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

func (l *lexer) read() rune {
	r, w := l.peek()
	l.pos += w
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *lexer) skipSpace() {
	for {
		r, _ := l.peek()
		switch {
		case r == '%':
			for r != '\n' && r != -1 {
				l.read()
				r, _ = l.peek()
			}
		case r != -1 && unicode.IsSpace(r):
			l.read()
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	line := l.line
	r, _ := l.peek()
	switch {
	case r == -1:
		return token{kind: tokEOF, line: line}, nil
	case r >= 'a' && r <= 'z':
		start := l.pos
		for {
			r, _ := l.peek()
			if r == '_' || r == '@' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				l.read()
				continue
			}
			break
		}
		return token{kind: tokAtom, text: l.src[start:l.pos], line: line}, nil
	case r == '_' || unicode.IsUpper(r):
		return token{}, l.errorf("variables are not allowed in terms")
	case r == '\'':
		l.read()
		s, err := l.quoted('\'')
		return token{kind: tokAtom, text: s, line: line}, err
	case r == '"':
		l.read()
		s, err := l.quoted('"')
		return token{kind: tokString, text: s, line: line}, err
	case r == '$':
		return l.char()
	case r >= '0' && r <= '9':
		return l.number()
	case r == '.':
		l.read()
		nr, _ := l.peek()
		if nr == -1 || nr == '%' || unicode.IsSpace(nr) {
			return token{kind: tokDot, line: line}, nil
		}
		return token{}, l.errorf("unexpected '.'")
	}

	for _, p := range []string{"<<", ">>", "=>", "#{", "{", "}", "[", "]", ",", "|", "-", "+"} {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return token{kind: tokPunct, text: p, line: line}, nil
		}
	}
	return token{}, l.errorf("unexpected character %q", r)
}

func (l *lexer) number() (token, error) {
	line := l.line
	start := l.pos
	digits := func(valid func(rune) bool) int {
		n := 0
		for {
			r, _ := l.peek()
			if !valid(r) && r != '_' {
				return n
			}
			l.read()
			n++
		}
	}
	isDigit := func(r rune) bool { return r >= '0' && r <= '9' }

	digits(isDigit)
	r, _ := l.peek()
	switch {
	case r == '#':
		l.read()
		if digits(func(r rune) bool { return isDigit(r) || unicode.IsLetter(r) }) == 0 {
			return token{}, l.errorf("malformed based integer")
		}
	case r == '.' && l.pos+1 < len(l.src) && isDigit(rune(l.src[l.pos+1])):
		l.read()
		digits(isDigit)
		if r, _ := l.peek(); r == 'e' || r == 'E' {
			l.read()
			if r, _ := l.peek(); r == '+' || r == '-' {
				l.read()
			}
			if digits(isDigit) == 0 {
				return token{}, l.errorf("malformed float exponent")
			}
		}
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: line}, nil
}

func (l *lexer) char() (token, error) {
	line := l.line
	start := l.pos
	l.read()
	r := l.read()
	switch r {
	case -1:
		return token{}, l.errorf("unterminated character literal")
	case '\\':
		if _, err := l.escape(); err != nil {
			return token{}, err
		}
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: line}, nil
}

func (l *lexer) quoted(q rune) (string, error) {
	var sb strings.Builder
	for {
		r := l.read()
		switch r {
		case -1:
			return "", l.errorf("unterminated quoted literal")
		case q:
			return sb.String(), nil
		case '\\':
			e, err := l.escape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(e)
		default:
			sb.WriteRune(r)
		}
	}
}

// escape decodes the escape sequence following a backslash
func (l *lexer) escape() (rune, error) {
	r := l.read()
	switch r {
	case -1:
		return 0, l.errorf("unterminated escape sequence")
	case 'b':
		return '\b', nil
	case 'd':
		return 0x7f, nil
	case 'e':
		return 0x1b, nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 's':
		return ' ', nil
	case 't':
		return '\t', nil
	case 'v':
		return '\v', nil
	case '^':
		c := l.read()
		if c == -1 {
			return 0, l.errorf("unterminated escape sequence")
		}
		return c & 0x1f, nil
	case 'x':
		var hex string
		if nr, _ := l.peek(); nr == '{' {
			l.read()
			end := strings.IndexByte(l.src[l.pos:], '}')
			if end < 0 {
				return 0, l.errorf("unterminated \\x{...} escape")
			}
			hex = l.src[l.pos : l.pos+end]
			l.pos += end + 1
		} else {
			if l.pos+2 > len(l.src) {
				return 0, l.errorf("malformed \\x escape")
			}
			hex = l.src[l.pos : l.pos+2]
			l.pos += 2
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, l.errorf("malformed \\x escape: %v", err)
		}
		return rune(v), nil
	}
	if r >= '0' && r <= '7' {
		v := r - '0'
		for i := 0; i < 2; i++ {
			nr, _ := l.peek()
			if nr < '0' || nr > '7' {
				break
			}
			l.read()
			v = v*8 + (nr - '0')
		}
		return v, nil
	}
	return r, nil
}
