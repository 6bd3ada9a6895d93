package formats

import (
	"fmt"
	"strings"
)

// tokenKind identifies a lexical token in keyvalues text.
type tokenKind int

const (
	tokEOF      tokenKind = iota
	tokString             // "quoted" or """multi-line"""
	tokIdent              // bare word: identifiers, numbers, true/false
	tokLBrace             // {
	tokRBrace             // }
	tokLBracket           // [
	tokRBracket           // ]
	tokComma              // ,
	tokEquals             // =
)

// String returns a human-readable token kind.
func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string"
	case tokIdent:
		return "identifier"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokComma:
		return "','"
	case tokEquals:
		return "'='"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits keyvalues2 (DMX) and KV3 (VMDL) text into tokens. Both
// formats share quoting, bracket and comment rules; "<!-- -->" headers,
// "//" line comments and "/* */" block comments are skipped.
type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", l.line, fmt.Sprintf(format, args...))
}

// skip advances past whitespace and comments.
func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			if err := l.skipPast("*/"); err != nil {
				return err
			}
		case strings.HasPrefix(l.src[l.pos:], "<!--"):
			if err := l.skipPast("-->"); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) skipPast(end string) error {
	idx := strings.Index(l.src[l.pos:], end)
	if idx < 0 {
		return l.errorf("unterminated comment")
	}
	l.line += strings.Count(l.src[l.pos:l.pos+idx], "\n")
	l.pos += idx + len(end)
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	line := l.line
	c := l.src[l.pos]
	switch c {
	case '{':
		l.pos++
		return token{kind: tokLBrace, text: "{", line: line}, nil
	case '}':
		l.pos++
		return token{kind: tokRBrace, text: "}", line: line}, nil
	case '[':
		l.pos++
		return token{kind: tokLBracket, text: "[", line: line}, nil
	case ']':
		l.pos++
		return token{kind: tokRBracket, text: "]", line: line}, nil
	case ',':
		l.pos++
		return token{kind: tokComma, text: ",", line: line}, nil
	case '=':
		l.pos++
		return token{kind: tokEquals, text: "=", line: line}, nil
	case '"':
		if strings.HasPrefix(l.src[l.pos:], `"""`) {
			return l.multiline()
		}
		return l.quoted()
	}

	start := l.pos
	for l.pos < len(l.src) && isBareChar(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		return token{}, l.errorf("unexpected character %q", c)
	}
	return token{kind: tokIdent, text: l.src[start:l.pos], line: line}, nil
}

func isBareChar(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '{', '}', '[', ']', ',', '=', '"':
		return false
	}
	return true
}

// quoted reads a "..." string with backslash escapes.
func (l *lexer) quoted() (token, error) {
	line := l.line
	l.pos++ // opening quote

	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: sb.String(), line: line}, nil
		case '\\':
			if l.pos+1 < len(l.src) {
				l.pos++
				switch e := l.src[l.pos]; e {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				default:
					sb.WriteByte(e)
				}
				l.pos++
				continue
			}
		case '\n':
			l.line++
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, fmt.Errorf("line %d: unterminated string", line)
}

// multiline reads a KV3 """...""" string verbatim.
func (l *lexer) multiline() (token, error) {
	line := l.line
	l.pos += 3
	idx := strings.Index(l.src[l.pos:], `"""`)
	if idx < 0 {
		return token{}, fmt.Errorf("line %d: unterminated multi-line string", line)
	}
	text := l.src[l.pos : l.pos+idx]
	l.line += strings.Count(text, "\n")
	l.pos += idx + 3
	return token{kind: tokString, text: text, line: line}, nil
}

// tokenize returns every token in src, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	l := newLexer(src)
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}
