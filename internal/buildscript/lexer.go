package buildscript

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokComma
	tokDot
	tokSemicolon
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokNewline:
		return "newline"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	case tokSemicolon:
		return "';'"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
}

// SyntaxError describes a lexing or parsing failure at a line.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// lex splits Kotlin-DSL source into tokens. Comments are dropped; string
// literals keep their content verbatim, including ${...} templates.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0

	emit := func(kind tokenKind, text string) {
		toks = append(toks, token{kind: kind, text: text, line: line})
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			emit(tokNewline, "\n")
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			start := line
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &SyntaxError{Line: start, Message: "unterminated block comment"}
			}
			body := src[i : i+2+end+2]
			line += strings.Count(body, "\n")
			i += len(body)
		case strings.HasPrefix(src[i:], `"""`):
			start := line
			end := strings.Index(src[i+3:], `"""`)
			if end < 0 {
				return nil, &SyntaxError{Line: start, Message: "unterminated raw string"}
			}
			body := src[i+3 : i+3+end]
			toks = append(toks, token{kind: tokString, text: body, line: start})
			line += strings.Count(body, "\n")
			i += 3 + end + 3
		case c == '"':
			body, n, err := lexString(src[i:], line)
			if err != nil {
				return nil, err
			}
			emit(tokString, body)
			i += n
		case c == '`':
			end := strings.IndexAny(src[i+1:], "`\n")
			if end < 0 || src[i+1+end] != '`' {
				return nil, &SyntaxError{Line: line, Message: "unterminated backquoted identifier"}
			}
			emit(tokIdent, src[i+1:i+1+end])
			i += end + 2
		case c == '\'':
			// Char literal; kept as punctuation since no declaration uses it.
			j := i + 1
			for j < len(src) && src[j] != '\'' && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) || src[j] != '\'' {
				return nil, &SyntaxError{Line: line, Message: "unterminated character literal"}
			}
			emit(tokPunct, src[i:j+1])
			i = j + 1
		case c == '(':
			emit(tokLParen, "(")
			i++
		case c == ')':
			emit(tokRParen, ")")
			i++
		case c == '{':
			emit(tokLBrace, "{")
			i++
		case c == '}':
			emit(tokRBrace, "}")
			i++
		case c == ',':
			emit(tokComma, ",")
			i++
		case c == '.':
			emit(tokDot, ".")
			i++
		case c == ';':
			emit(tokSemicolon, ";")
			i++
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if isIdentStart(r) || unicode.IsDigit(r) {
				j := i + size
				for j < len(src) {
					r2, s2 := utf8.DecodeRuneInString(src[j:])
					if !isIdentPart(r2) {
						break
					}
					j += s2
				}
				emit(tokIdent, src[i:j])
				i = j
				continue
			}
			emit(tokPunct, src[i:i+size])
			i += size
		}
	}

	emit(tokEOF, "")
	return toks, nil
}

// lexString scans a double-quoted string starting at s[0] and returns its
// content and the number of bytes consumed. Template expressions ${...}
// may contain nested strings and braces.
func lexString(s string, line int) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), i + 1, nil
		case c == '\n':
			return "", 0, &SyntaxError{Line: line, Message: "unterminated string literal"}
		case c == '\\' && i+1 < len(s):
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '$', '"', '\\', '\'':
				b.WriteByte(s[i+1])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
			}
			i += 2
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			depth := 0
			j := i + 1
			for j < len(s) {
				switch s[j] {
				case '{':
					depth++
				case '}':
					depth--
				case '\n':
					return "", 0, &SyntaxError{Line: line, Message: "unterminated string template"}
				case '"':
					_, n, err := lexString(s[j:], line)
					if err != nil {
						return "", 0, err
					}
					j += n - 1
				}
				j++
				if depth == 0 {
					break
				}
			}
			if depth != 0 {
				return "", 0, &SyntaxError{Line: line, Message: "unterminated string template"}
			}
			b.WriteString(s[i:j])
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, &SyntaxError{Line: line, Message: "unterminated string literal"}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
