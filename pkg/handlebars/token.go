package handlebars

// tokenKind identifies the kind of a lexed token. Tokens are produced by the
// lexer and consumed immediately by the parser; they are never persisted.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText

	// Text-mode opening delimiters. The token text carries the literal
	// delimiter so the parser can inspect it for strip markers.
	tokOpen              // {{ or {{~
	tokOpenUnescaped     // {{{
	tokOpenAmp           // {{& or {{~&
	tokOpenBlock         // {{# or {{~#
	tokOpenEndBlock      // {{/ or {{~/
	tokOpenInverse       // {{^ or {{~^
	tokOpenPartial       // {{> or {{~>
	tokOpenPartialBlock  // {{#>
	tokOpenInlinePartial // {{#*

	// Raw blocks are captured entirely by the lexer: the name, the verbatim
	// interior, and an end marker confirming the closing tag was found.
	tokRawBlock   // text = block name
	tokRawContent // text = verbatim interior
	tokRawEnd

	tokComment // text = raw interior, strip markers included

	// Expression-mode tokens.
	tokClose          // }} or ~}}
	tokCloseUnescaped // }}} or ~}}}
	tokID             // identifier, possibly with embedded . / - path shorthand
	tokString         // decoded string literal
	tokNumber
	tokBool
	tokData // @
	tokLParen
	tokRParen
	tokEquals
	tokPipe
	tokAs
)

type token struct {
	kind tokenKind
	text string
	line int // 1-based
	col  int // 1-based
}

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "eof"
	case tokText:
		return "text"
	case tokOpen:
		return "{{"
	case tokOpenUnescaped:
		return "{{{"
	case tokOpenAmp:
		return "{{&"
	case tokOpenBlock:
		return "{{#"
	case tokOpenEndBlock:
		return "{{/"
	case tokOpenInverse:
		return "{{^"
	case tokOpenPartial:
		return "{{>"
	case tokOpenPartialBlock:
		return "{{#>"
	case tokOpenInlinePartial:
		return "{{#*"
	case tokRawBlock:
		return "{{{{"
	case tokRawContent:
		return "raw content"
	case tokRawEnd:
		return "{{{{/"
	case tokComment:
		return "comment"
	case tokClose:
		return "}}"
	case tokCloseUnescaped:
		return "}}}"
	case tokID:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokBool:
		return "boolean"
	case tokData:
		return "@"
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	case tokEquals:
		return "="
	case tokPipe:
		return "|"
	case tokAs:
		return "as"
	default:
		return "unknown"
	}
}
