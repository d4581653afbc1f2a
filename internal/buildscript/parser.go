package buildscript

import (
	"fmt"
	"strings"
)

type nodeKind int

const (
	nodeChain nodeKind = iota
	nodeString
	nodeOther
)

// node is one term of an expression: a call chain such as
// excludePatterns.set(listOf("a")), a string literal, or any other token.
type node struct {
	kind nodeKind
	line int
	segs []segment
	text string
}

// segment is one dotted element of a chain with optional call arguments
// and an optional trailing lambda block.
type segment struct {
	name    string
	called  bool
	args    []expr
	block   []expr
	blocked bool
}

// expr is a sequence of terms, e.g. `"a" + b` or `mainClass = "x"`.
type expr []*node

// head returns the first term of an expression, or nil.
func (e expr) head() *node {
	if len(e) == 0 {
		return nil
	}
	return e[0]
}

// firstString returns the first string literal term in the expression.
func (e expr) firstString() (string, bool) {
	for _, n := range e {
		if n.kind == nodeString {
			return n.text, true
		}
	}
	return "", false
}

// hasAssign reports whether the expression contains a top-level '='.
func (e expr) hasAssign() bool {
	for _, n := range e {
		if n.kind == nodeOther && n.text == "=" {
			return true
		}
	}
	return false
}

// path joins the segment names of a chain: a.b.c
func (n *node) path() string {
	if n == nil || n.kind != nodeChain {
		return ""
	}
	names := make([]string, len(n.segs))
	for i, s := range n.segs {
		names[i] = s.name
	}
	return strings.Join(names, ".")
}

// String renders the node approximately as written, for diagnostics.
func (n *node) String() string {
	switch n.kind {
	case nodeString:
		return fmt.Sprintf("%q", n.text)
	case nodeOther:
		return n.text
	}
	var b strings.Builder
	for i, s := range n.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.name)
		if s.called {
			b.WriteByte('(')
			for j, a := range s.args {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(a.String())
			}
			b.WriteByte(')')
		}
		if s.blocked {
			b.WriteString(" { ... }")
		}
	}
	return b.String()
}

func (e expr) String() string {
	parts := make([]string, len(e))
	for i, n := range e {
		parts[i] = n.String()
	}
	return strings.Join(parts, " ")
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// peekPastNewlines returns the first non-newline token without consuming.
func (p *parser) peekPastNewlines() token {
	for i := p.pos; i < len(p.toks); i++ {
		if p.toks[i].kind != tokNewline {
			return p.toks[i]
		}
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.next()
	}
}

// parseFile parses top-level statements until EOF.
func parseFile(toks []token) ([]expr, error) {
	p := &parser{toks: toks}
	stmts, err := p.parseStatements(false)
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseStatements reads newline/semicolon separated statements. Inside a
// block it stops at the closing brace, which it consumes.
func (p *parser) parseStatements(inBlock bool) ([]expr, error) {
	var stmts []expr
	for {
		t := p.peek()
		switch t.kind {
		case tokNewline, tokSemicolon:
			p.next()
			continue
		case tokEOF:
			if inBlock {
				return nil, &SyntaxError{Line: t.line, Message: "unclosed '{'"}
			}
			return stmts, nil
		case tokRBrace:
			if !inBlock {
				return nil, &SyntaxError{Line: t.line, Message: "unexpected '}'"}
			}
			p.next()
			return stmts, nil
		case tokRParen:
			return nil, &SyntaxError{Line: t.line, Message: "unexpected ')'"}
		case tokIdent:
			if t.text == "import" || t.text == "package" {
				for k := p.peek().kind; k != tokNewline && k != tokEOF; k = p.peek().kind {
					p.next()
				}
				continue
			}
		}

		e, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}
		if len(e) == 0 {
			// A stray separator such as ',' at statement level.
			p.next()
			continue
		}
		stmts = append(stmts, e)
	}
}

// parseExpr reads terms until a separator. Newlines end the expression
// unless inside parentheses or the next line continues with '.'.
func (p *parser) parseExpr(inParens bool) (expr, error) {
	var e expr
	for {
		t := p.peek()
		switch t.kind {
		case tokEOF, tokRParen, tokRBrace, tokComma, tokSemicolon:
			return e, nil
		case tokNewline:
			if inParens {
				p.next()
				continue
			}
			if p.peekPastNewlines().kind == tokDot {
				p.skipNewlines()
				continue
			}
			return e, nil
		case tokIdent:
			n, err := p.parseChain()
			if err != nil {
				return nil, err
			}
			e = append(e, n)
		case tokString:
			p.next()
			e = append(e, &node{kind: nodeString, line: t.line, text: t.text})
		case tokLParen:
			p.next()
			inner, err := p.parseExpr(true)
			if err != nil {
				return nil, err
			}
			if p.peek().kind != tokRParen {
				return nil, &SyntaxError{Line: t.line, Message: "unclosed '('"}
			}
			p.next()
			e = append(e, inner...)
		case tokLBrace:
			p.next()
			block, err := p.parseStatements(true)
			if err != nil {
				return nil, err
			}
			e = append(e, &node{kind: nodeChain, line: t.line, segs: []segment{{name: "", block: block, blocked: true}}})
		case tokDot:
			// Continuation of the previous chain across a line break.
			p.next()
			if len(e) > 0 && e[len(e)-1].kind == nodeChain && p.peek().kind == tokIdent {
				last := e[len(e)-1]
				n, err := p.parseChain()
				if err != nil {
					return nil, err
				}
				last.segs = append(last.segs, n.segs...)
				continue
			}
			e = append(e, &node{kind: nodeOther, line: t.line, text: "."})
		default:
			p.next()
			e = append(e, &node{kind: nodeOther, line: t.line, text: t.text})
		}
	}
}

// parseChain reads ident ( '(' args ')' )? ( '{' block '}' )? ( '.' ident ... )*
func (p *parser) parseChain() (*node, error) {
	first := p.next()
	n := &node{kind: nodeChain, line: first.line}
	seg := segment{name: first.text}

	for {
		t := p.peek()
		switch {
		case t.kind == tokLParen && !seg.blocked:
			p.next()
			args, err := p.parseArgs(t.line)
			if err != nil {
				return nil, err
			}
			seg.called = true
			seg.args = append(seg.args, args...)
		case t.kind == tokLBrace && !seg.blocked:
			p.next()
			block, err := p.parseStatements(true)
			if err != nil {
				return nil, err
			}
			seg.block = block
			seg.blocked = true
		case t.kind == tokDot:
			// Only continue if an identifier follows.
			if p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokIdent {
				p.next()
				n.segs = append(n.segs, seg)
				nt := p.next()
				seg = segment{name: nt.text}
				continue
			}
			n.segs = append(n.segs, seg)
			return n, nil
		default:
			n.segs = append(n.segs, seg)
			return n, nil
		}
	}
}

// parseArgs reads comma separated expressions up to the closing paren.
func (p *parser) parseArgs(openLine int) ([]expr, error) {
	var args []expr
	for {
		p.skipNewlines()
		t := p.peek()
		switch t.kind {
		case tokRParen:
			p.next()
			return args, nil
		case tokEOF:
			return nil, &SyntaxError{Line: openLine, Message: "unclosed '('"}
		case tokRBrace:
			return nil, &SyntaxError{Line: t.line, Message: "unexpected '}' in argument list"}
		case tokComma:
			p.next()
			continue
		}
		e, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}
		if len(e) > 0 {
			args = append(args, e)
		}
		if k := p.peek().kind; k == tokSemicolon {
			return nil, &SyntaxError{Line: p.peek().line, Message: "unexpected ';' in argument list"}
		}
	}
}
