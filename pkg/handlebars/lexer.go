package handlebars

// The lexer scans template source in two modes: text mode between tags, and
// expression mode between an opening delimiter and its matching closer. Raw
// blocks and comments are captured whole in text mode.

import "strings"

type lexer struct {
	src  string
	i, n int
	line int
	col  int

	inExpr    bool
	unescaped bool // current expression was opened with {{{
	pending   []token
}

func newLexer(src string) *lexer {
	return &lexer{src: src, n: len(src), line: 1, col: 1}
}

func (l *lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.i:], s)
}

func (l *lexer) advance(k int) {
	for j := 0; j < k && l.i < l.n; j++ {
		if l.src[l.i] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.i++
	}
}

// next returns the next token in the stream.
func (l *lexer) next() token {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}
	if l.i >= l.n {
		return token{kind: tokEOF, line: l.line, col: l.col}
	}
	if l.inExpr {
		return l.nextExpr()
	}
	return l.nextText()
}

// nextText scans in text mode and emits either a text token up to the next
// opening delimiter, an opening delimiter token, a captured comment or raw
// block, or EOF.
func (l *lexer) nextText() token {
	line, col := l.line, l.col
	var b strings.Builder
	for l.i < l.n {
		c := l.src[l.i]
		// \{{ emits a literal mustache open; \\{{ emits a single backslash
		// followed by a real open. Distinguished by the second character back.
		if c == '\\' && strings.HasPrefix(l.src[l.i+1:], "\\{{") {
			b.WriteByte('\\')
			l.advance(2)
			continue
		}
		if c == '\\' && strings.HasPrefix(l.src[l.i+1:], "{{") {
			b.WriteString("{{")
			l.advance(3)
			continue
		}
		if l.hasPrefix("{{") {
			if b.Len() > 0 {
				return token{kind: tokText, text: b.String(), line: line, col: col}
			}
			return l.openDelimiter()
		}
		b.WriteByte(c)
		l.advance(1)
	}
	if b.Len() > 0 {
		return token{kind: tokText, text: b.String(), line: line, col: col}
	}
	return token{kind: tokEOF, line: l.line, col: l.col}
}

// openDelimiter classifies an opening delimiter, most specific first.
func (l *lexer) openDelimiter() token {
	line, col := l.line, l.col
	open := func(kind tokenKind, lit string, unescaped bool) token {
		l.advance(len(lit))
		l.inExpr = true
		l.unescaped = unescaped
		return token{kind: kind, text: lit, line: line, col: col}
	}
	switch {
	case l.hasPrefix("{{{{"):
		return l.lexRawBlock(line, col)
	case l.hasPrefix("{{{"):
		return open(tokOpenUnescaped, "{{{", true)
	case l.hasPrefix("{{!--"):
		l.advance(5)
		return l.lexComment(line, col, true, false)
	case l.hasPrefix("{{!"):
		l.advance(3)
		return l.lexComment(line, col, false, false)
	case l.hasPrefix("{{~!--"):
		l.advance(6)
		return l.lexComment(line, col, true, true)
	case l.hasPrefix("{{~!"):
		l.advance(4)
		return l.lexComment(line, col, false, true)
	case l.hasPrefix("{{~#"):
		return open(tokOpenBlock, "{{~#", false)
	case l.hasPrefix("{{#>"):
		return open(tokOpenPartialBlock, "{{#>", false)
	case l.hasPrefix("{{#*"):
		return open(tokOpenInlinePartial, "{{#*", false)
	case l.hasPrefix("{{#"):
		return open(tokOpenBlock, "{{#", false)
	case l.hasPrefix("{{~/"):
		return open(tokOpenEndBlock, "{{~/", false)
	case l.hasPrefix("{{/"):
		return open(tokOpenEndBlock, "{{/", false)
	case l.hasPrefix("{{~>"):
		return open(tokOpenPartial, "{{~>", false)
	case l.hasPrefix("{{>"):
		return open(tokOpenPartial, "{{>", false)
	case l.hasPrefix("{{~^"):
		return open(tokOpenInverse, "{{~^", false)
	case l.hasPrefix("{{^"):
		return open(tokOpenInverse, "{{^", false)
	case l.hasPrefix("{{~&"):
		return open(tokOpenAmp, "{{~&", false)
	case l.hasPrefix("{{&"):
		return open(tokOpenAmp, "{{&", false)
	case l.hasPrefix("{{~"):
		return open(tokOpen, "{{~", false)
	default:
		return open(tokOpen, "{{", false)
	}
}

// lexComment captures a comment's raw interior. Strip markers survive in the
// token text (leading/trailing '~') for the parser to post-process.
func (l *lexer) lexComment(line, col int, long, openStrip bool) token {
	var content string
	if long {
		end := strings.Index(l.src[l.i:], "--}}")
		endStrip := strings.Index(l.src[l.i:], "--~}}")
		if endStrip >= 0 && (end < 0 || endStrip < end) {
			content = l.src[l.i:l.i+endStrip] + "~"
			l.advance(endStrip + 5)
		} else if end >= 0 {
			content = l.src[l.i : l.i+end]
			l.advance(end + 4)
		} else {
			content = l.src[l.i:]
			l.advance(l.n - l.i)
		}
	} else {
		if idx := strings.Index(l.src[l.i:], "}}"); idx >= 0 {
			content = l.src[l.i : l.i+idx]
			l.advance(idx + 2)
		} else {
			content = l.src[l.i:]
			l.advance(l.n - l.i)
		}
	}
	if openStrip {
		content = "~" + content
	}
	return token{kind: tokComment, text: content, line: line, col: col}
}

// lexRawBlock captures {{{{name}}}}...{{{{/name}}}} without tokenizing the
// interior. The verbatim content and an end marker are queued behind the
// opening token; a missing end marker means the block was unterminated.
func (l *lexer) lexRawBlock(line, col int) token {
	l.advance(4)
	l.skipSpaces()
	name := l.scanIdent()
	l.skipSpaces()
	open := token{kind: tokRawBlock, text: name, line: line, col: col}
	if name == "" || !l.hasPrefix("}}}}") {
		return open
	}
	l.advance(4)
	cline, ccol := l.line, l.col
	closeTag := "{{{{/" + name + "}}}}"
	idx := strings.Index(l.src[l.i:], closeTag)
	if idx < 0 {
		l.pending = append(l.pending, token{kind: tokRawContent, text: l.src[l.i:], line: cline, col: ccol})
		l.advance(l.n - l.i)
		return open
	}
	content := l.src[l.i : l.i+idx]
	l.advance(idx + len(closeTag))
	l.pending = append(l.pending,
		token{kind: tokRawContent, text: content, line: cline, col: ccol},
		token{kind: tokRawEnd, line: l.line, col: l.col})
	return open
}

// nextExpr scans inside a tag. Unknown characters are skipped; unterminated
// tags surface as EOF, which the parser reports.
func (l *lexer) nextExpr() token {
	for l.i < l.n {
		line, col := l.line, l.col
		c := l.src[l.i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case l.unescaped && l.hasPrefix("~}}}"):
			l.advance(4)
			l.inExpr = false
			return token{kind: tokCloseUnescaped, text: "~}}}", line: line, col: col}
		case l.unescaped && l.hasPrefix("}}}"):
			l.advance(3)
			l.inExpr = false
			return token{kind: tokCloseUnescaped, text: "}}}", line: line, col: col}
		case !l.unescaped && l.hasPrefix("~}}"):
			l.advance(3)
			l.inExpr = false
			return token{kind: tokClose, text: "~}}", line: line, col: col}
		case !l.unescaped && l.hasPrefix("}}"):
			l.advance(2)
			l.inExpr = false
			return token{kind: tokClose, text: "}}", line: line, col: col}
		case c == '(':
			l.advance(1)
			return token{kind: tokLParen, text: "(", line: line, col: col}
		case c == ')':
			l.advance(1)
			return token{kind: tokRParen, text: ")", line: line, col: col}
		case c == '=':
			l.advance(1)
			return token{kind: tokEquals, text: "=", line: line, col: col}
		case c == '|':
			l.advance(1)
			return token{kind: tokPipe, text: "|", line: line, col: col}
		case c == '@':
			l.advance(1)
			return token{kind: tokData, text: "@", line: line, col: col}
		case c == '"' || c == '\'':
			return l.lexString(c, line, col)
		case isDigit(c) || (c == '-' && l.i+1 < l.n && isDigit(l.src[l.i+1])):
			return l.lexNumber(line, col)
		case isIdentByte(c):
			id := l.scanPathIdent()
			switch id {
			case "true", "false":
				return token{kind: tokBool, text: id, line: line, col: col}
			case "as":
				return token{kind: tokAs, text: id, line: line, col: col}
			}
			return token{kind: tokID, text: id, line: line, col: col}
		default:
			l.advance(1)
		}
	}
	return token{kind: tokEOF, line: l.line, col: l.col}
}

// lexString scans a quoted literal, decoding \n, \t, \r, \\ and quote escapes.
func (l *lexer) lexString(quote byte, line, col int) token {
	l.advance(1)
	var b strings.Builder
	for l.i < l.n {
		c := l.src[l.i]
		if c == '\\' && l.i+1 < l.n {
			switch l.src[l.i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(l.src[l.i+1])
			}
			l.advance(2)
			continue
		}
		if c == quote {
			l.advance(1)
			break
		}
		b.WriteByte(c)
		l.advance(1)
	}
	return token{kind: tokString, text: b.String(), line: line, col: col}
}

// lexNumber scans an optional leading '-', digits, and at most one decimal
// point.
func (l *lexer) lexNumber(line, col int) token {
	start := l.i
	if l.src[l.i] == '-' {
		l.advance(1)
	}
	dot := false
	for l.i < l.n {
		c := l.src[l.i]
		if isDigit(c) {
			l.advance(1)
			continue
		}
		if c == '.' && !dot && l.i+1 < l.n && isDigit(l.src[l.i+1]) {
			dot = true
			l.advance(1)
			continue
		}
		break
	}
	return token{kind: tokNumber, text: l.src[start:l.i], line: line, col: col}
}

func (l *lexer) skipSpaces() {
	for l.i < l.n && (l.src[l.i] == ' ' || l.src[l.i] == '\t') {
		l.advance(1)
	}
}

// scanIdent scans a bare identifier (no path shorthand), used for raw block
// names.
func (l *lexer) scanIdent() string {
	start := l.i
	for l.i < l.n {
		c := l.src[l.i]
		if isAlnum(c) || c == '_' || c == '$' || c == '-' {
			l.advance(1)
			continue
		}
		break
	}
	return l.src[start:l.i]
}

// scanPathIdent scans an identifier, allowing embedded '.', '/', and '-' so a
// dotted or slashed path arrives as a single token.
func (l *lexer) scanPathIdent() string {
	start := l.i
	for l.i < l.n {
		c := l.src[l.i]
		if c == '}' && l.hasPrefix("}}") {
			break
		}
		if isIdentByte(c) {
			l.advance(1)
			continue
		}
		break
	}
	return l.src[start:l.i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isAlnum(c) || c == '_' || c == '$' || c == '.' || c == '/' || c == '-'
}
