package handlebars

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses template source into a Program and applies whitespace control.
// Parsing is all-or-nothing: any syntax error aborts with no partial AST.
func Parse(src string) (*Program, error) {
	prog, err := parse(src)
	if err != nil {
		return nil, err
	}
	controlWhitespace(prog)
	return prog, nil
}

func parse(src string) (*Program, error) {
	p := &parser{lx: newLexer(src)}
	p.cur = p.lx.next()
	p.peek = p.lx.next()
	prog, _, err := p.parseProgram(false)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

type parser struct {
	lx   *lexer
	cur  token
	peek token
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lx.next()
}

func (p *parser) errAt(tok token, format string, args ...any) error {
	return &SyntaxError{Line: tok.line, Col: tok.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.cur.kind != kind {
		return p.cur, p.errAt(p.cur, "expected %s, got %s", kind, p.cur.kind)
	}
	t := p.cur
	p.next()
	return t, nil
}

func hasTilde(s string) bool { return strings.Contains(s, "~") }

type endKind int

const (
	endEOF endKind = iota
	endClose
	endElse
)

// bodyEnd describes the tag that terminated a program: EOF, a {{/name}}
// close, or an {{else}} / {{^}} marker (with a parsed expression for
// else-if chains).
type bodyEnd struct {
	kind       endKind
	tok        token
	name       string
	openTilde  bool
	closeTilde bool
	line       int
	call       *callParts // non-nil for {{else helper ...}}
}

type callParts struct {
	path        *Path
	params      []Expr
	hash        []HashPair
	blockParams []string
}

// parseProgram parses statements until EOF or, when inBlock is set, an end
// tag or else marker belonging to the enclosing block.
func (p *parser) parseProgram(inBlock bool) (*Program, bodyEnd, error) {
	prog := &Program{}
	var none bodyEnd
	for {
		switch p.cur.kind {
		case tokEOF:
			return prog, bodyEnd{kind: endEOF, tok: p.cur}, nil

		case tokText:
			prog.Body = append(prog.Body, &Text{Value: p.cur.text, original: p.cur.text})
			p.next()

		case tokComment:
			c := &Comment{Value: p.cur.text}
			if strings.HasPrefix(c.Value, "~") {
				c.OpenStrip = true
				c.Value = c.Value[1:]
			}
			if strings.HasSuffix(c.Value, "~") {
				c.CloseStrip = true
				c.Value = c.Value[:len(c.Value)-1]
			}
			prog.Body = append(prog.Body, c)
			p.next()

		case tokOpen:
			openTok := p.cur
			p.next()
			if p.cur.kind == tokID && p.cur.text == "else" {
				if !inBlock {
					return prog, none, p.errAt(openTok, "{{else}} outside of a block")
				}
				p.next()
				var call *callParts
				if p.cur.kind != tokClose {
					c, err := p.parseCall(true)
					if err != nil {
						return prog, none, err
					}
					call = c
				}
				closeTok, err := p.expect(tokClose)
				if err != nil {
					return prog, none, err
				}
				return prog, bodyEnd{
					kind:       endElse,
					tok:        openTok,
					openTilde:  hasTilde(openTok.text),
					closeTilde: hasTilde(closeTok.text),
					line:       openTok.line,
					call:       call,
				}, nil
			}
			m, err := p.finishMustache(openTok, true, tokClose)
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, m)

		case tokOpenAmp:
			openTok := p.cur
			p.next()
			m, err := p.finishMustache(openTok, false, tokClose)
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, m)

		case tokOpenUnescaped:
			openTok := p.cur
			p.next()
			m, err := p.finishMustache(openTok, false, tokCloseUnescaped)
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, m)

		case tokOpenBlock:
			openTok := p.cur
			p.next()
			n, err := p.parseBlockRest(openTok, false)
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		case tokOpenInverse:
			openTok := p.cur
			p.next()
			if p.cur.kind == tokClose {
				if !inBlock {
					return prog, none, p.errAt(openTok, "{{^}} outside of a block")
				}
				closeTok := p.cur
				p.next()
				return prog, bodyEnd{
					kind:       endElse,
					tok:        openTok,
					openTilde:  hasTilde(openTok.text),
					closeTilde: hasTilde(closeTok.text),
					line:       openTok.line,
				}, nil
			}
			n, err := p.parseBlockRest(openTok, true)
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		case tokOpenEndBlock:
			openTok := p.cur
			p.next()
			if p.cur.kind != tokID {
				return prog, none, p.errAt(p.cur, "expected block name after %s", openTok.text)
			}
			name := p.cur.text
			p.next()
			closeTok, err := p.expect(tokClose)
			if err != nil {
				return prog, none, err
			}
			if !inBlock {
				return prog, none, p.errAt(openTok, "unexpected closing tag {{/%s}}", name)
			}
			return prog, bodyEnd{
				kind:       endClose,
				tok:        openTok,
				name:       name,
				openTilde:  hasTilde(openTok.text),
				closeTilde: hasTilde(closeTok.text),
				line:       openTok.line,
			}, nil

		case tokOpenPartial:
			n, err := p.parsePartial()
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		case tokOpenPartialBlock:
			n, err := p.parsePartialBlock()
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		case tokOpenInlinePartial:
			n, err := p.parseInlinePartial()
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		case tokRawBlock:
			n, err := p.parseRawBlock()
			if err != nil {
				return prog, none, err
			}
			prog.Body = append(prog.Body, n)

		default:
			return prog, none, p.errAt(p.cur, "unexpected %s", p.cur.kind)
		}
	}
}

func (p *parser) finishMustache(openTok token, escaped bool, closeKind tokenKind) (*Mustache, error) {
	call, err := p.parseCall(false)
	if err != nil {
		return nil, err
	}
	closeTok, err := p.expect(closeKind)
	if err != nil {
		return nil, err
	}
	return &Mustache{
		Path:       call.path,
		Params:     call.params,
		Hash:       call.hash,
		Escaped:    escaped,
		OpenStrip:  hasTilde(openTok.text),
		CloseStrip: hasTilde(closeTok.text),
	}, nil
}

// parseCall parses `path param* hash*`, optionally followed by block params
// (`as |a b|`) when allowBlockParams is set. It stops at any closing token.
func (p *parser) parseCall(allowBlockParams bool) (*callParts, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	cp := &callParts{path: path}
loop:
	for {
		switch p.cur.kind {
		case tokClose, tokCloseUnescaped, tokRParen, tokAs, tokEOF:
			break loop
		case tokID:
			if p.peek.kind == tokEquals {
				key := p.cur.text
				p.next()
				p.next()
				v, err := p.parseParam()
				if err != nil {
					return nil, err
				}
				cp.hash = append(cp.hash, HashPair{Key: key, Value: v})
				continue
			}
			if len(cp.hash) > 0 {
				return nil, p.errAt(p.cur, "positional argument after named argument")
			}
			v, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			cp.params = append(cp.params, v)
		case tokString, tokNumber, tokBool, tokData, tokLParen:
			if len(cp.hash) > 0 {
				return nil, p.errAt(p.cur, "positional argument after named argument")
			}
			v, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			cp.params = append(cp.params, v)
		default:
			return nil, p.errAt(p.cur, "unexpected %s in expression", p.cur.kind)
		}
	}
	if p.cur.kind == tokAs {
		if !allowBlockParams {
			return nil, p.errAt(p.cur, "block parameters are only valid on block helpers")
		}
		p.next()
		if _, err := p.expect(tokPipe); err != nil {
			return nil, err
		}
		for p.cur.kind == tokID {
			cp.blockParams = append(cp.blockParams, p.cur.text)
			p.next()
		}
		if _, err := p.expect(tokPipe); err != nil {
			return nil, err
		}
		if len(cp.blockParams) == 0 {
			return nil, p.errAt(p.cur, "empty block parameter list")
		}
	}
	return cp, nil
}

func (p *parser) parseParam() (Expr, error) {
	switch p.cur.kind {
	case tokID, tokData:
		return p.parsePath()
	case tokString:
		v := &StringLit{Value: p.cur.text}
		p.next()
		return v, nil
	case tokNumber:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.errAt(p.cur, "invalid number literal %q", p.cur.text)
		}
		v := &NumberLit{Value: f}
		p.next()
		return v, nil
	case tokBool:
		v := &BoolLit{Value: p.cur.text == "true"}
		p.next()
		return v, nil
	case tokLParen:
		p.next()
		call, err := p.parseCall(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return &SubExpression{Path: call.path, Params: call.params, Hash: call.hash}, nil
	default:
		return nil, p.errAt(p.cur, "expected expression, got %s", p.cur.kind)
	}
}

func (p *parser) parsePath() (*Path, error) {
	data := false
	if p.cur.kind == tokData {
		data = true
		p.next()
	}
	if p.cur.kind != tokID {
		return nil, p.errAt(p.cur, "expected path, got %s", p.cur.kind)
	}
	orig := p.cur.text
	if data {
		orig = "@" + orig
	}
	parts, depth := splitPath(p.cur.text)
	p.next()
	return &Path{Parts: parts, Depth: depth, Data: data, Original: orig}, nil
}

// splitPath breaks path shorthand into segments: leading '..' entries become
// depth, '.'/'this' prefixes are dropped, and the rest splits on '.' and '/'.
func splitPath(s string) (parts []string, depth int) {
	rest := s
	for {
		if rest == ".." {
			return nil, depth + 1
		}
		if strings.HasPrefix(rest, "../") {
			depth++
			rest = rest[3:]
			continue
		}
		break
	}
	if rest == "" || rest == "." || rest == "this" {
		return nil, depth
	}
	if strings.HasPrefix(rest, "./") {
		rest = rest[2:]
	} else if strings.HasPrefix(rest, "this.") || strings.HasPrefix(rest, "this/") {
		rest = rest[5:]
	}
	parts = strings.FieldsFunc(rest, func(r rune) bool { return r == '.' || r == '/' })
	return parts, depth
}

func (p *parser) parseBlockRest(openTok token, inverted bool) (Node, error) {
	call, err := p.parseCall(true)
	if err != nil {
		return nil, err
	}
	closeTok, err := p.expect(tokClose)
	if err != nil {
		return nil, err
	}
	b := &Block{
		Path:              call.path,
		Params:            call.params,
		Hash:              call.hash,
		BlockParams:       call.blockParams,
		Inverted:          inverted,
		OpenStrip:         hasTilde(openTok.text),
		ContentStartStrip: hasTilde(closeTok.text),
	}
	end, err := p.finishBlock(b, openTok)
	if err != nil {
		return nil, err
	}
	if !closeNameMatches(end.name, b.Path) {
		return nil, p.errAt(end.tok, "closing tag {{/%s}} does not match {{#%s}}", end.name, b.Path.Original)
	}
	return b, nil
}

func closeNameMatches(name string, path *Path) bool {
	if name == path.Original {
		return true
	}
	return len(path.Parts) > 0 && name == path.Parts[0]
}

// finishBlock parses the block body after its opening tag, handling
// {{else}} branches. An {{else helper ...}} chains a nested Block as the
// sole element of the inverse program; the chain shares a single closing tag.
func (p *parser) finishBlock(b *Block, openTok token) (bodyEnd, error) {
	prog, end, err := p.parseProgram(true)
	if err != nil {
		return end, err
	}
	b.Program = prog
	if end.kind == endElse {
		b.InverseOpenStrip = end.openTilde
		if end.call != nil {
			nested := &Block{
				Path:              end.call.path,
				Params:            end.call.params,
				Hash:              end.call.hash,
				BlockParams:       end.call.blockParams,
				OpenStrip:         end.openTilde,
				ContentStartStrip: end.closeTilde,
			}
			end, err = p.finishBlock(nested, end.tok)
			if err != nil {
				return end, err
			}
			b.Inverse = &Program{Body: []Node{nested}, chained: true}
		} else {
			b.InverseCloseStrip = end.closeTilde
			var inv *Program
			inv, end, err = p.parseProgram(true)
			if err != nil {
				return end, err
			}
			if end.kind == endElse {
				return end, p.errAt(end.tok, "unexpected {{else}}: block already has an else branch")
			}
			b.Inverse = inv
			if end.kind == endClose {
				b.ContentEndStrip = end.openTilde
			}
		}
	} else if end.kind == endClose {
		b.ContentEndStrip = end.openTilde
	}
	if end.kind != endClose {
		return end, p.errAt(end.tok, "unterminated block {{#%s}}: reached end of template", b.Path.Original)
	}
	b.CloseStrip = end.closeTilde
	b.Inline = openTok.line == end.line
	return end, nil
}

func (p *parser) parsePartialName() (string, error) {
	switch p.cur.kind {
	case tokID, tokString:
		name := p.cur.text
		p.next()
		return name, nil
	case tokData:
		// {{> @partial-block}}
		p.next()
		if p.cur.kind != tokID {
			return "", p.errAt(p.cur, "expected partial name, got %s", p.cur.kind)
		}
		name := "@" + p.cur.text
		p.next()
		return name, nil
	default:
		return "", p.errAt(p.cur, "expected partial name, got %s", p.cur.kind)
	}
}

// parsePartialArgs parses the optional context expression and hash arguments
// shared by {{> name}} and {{#> name}}.
func (p *parser) parsePartialArgs() (Expr, []HashPair, error) {
	var ctx Expr
	var hash []HashPair
	for {
		switch p.cur.kind {
		case tokClose, tokEOF:
			return ctx, hash, nil
		case tokID:
			if p.peek.kind == tokEquals {
				key := p.cur.text
				p.next()
				p.next()
				v, err := p.parseParam()
				if err != nil {
					return nil, nil, err
				}
				hash = append(hash, HashPair{Key: key, Value: v})
				continue
			}
			fallthrough
		case tokString, tokNumber, tokBool, tokData, tokLParen:
			if ctx != nil {
				return nil, nil, p.errAt(p.cur, "partial accepts a single context argument")
			}
			v, err := p.parseParam()
			if err != nil {
				return nil, nil, err
			}
			ctx = v
		default:
			return nil, nil, p.errAt(p.cur, "unexpected %s in partial", p.cur.kind)
		}
	}
}

func (p *parser) parsePartial() (Node, error) {
	openTok := p.cur
	p.next()
	name, err := p.parsePartialName()
	if err != nil {
		return nil, err
	}
	ctx, hash, err := p.parsePartialArgs()
	if err != nil {
		return nil, err
	}
	closeTok, err := p.expect(tokClose)
	if err != nil {
		return nil, err
	}
	return &Partial{
		Name:       name,
		Context:    ctx,
		Hash:       hash,
		OpenStrip:  hasTilde(openTok.text),
		CloseStrip: hasTilde(closeTok.text),
	}, nil
}

func (p *parser) parsePartialBlock() (Node, error) {
	openTok := p.cur
	p.next()
	name, err := p.parsePartialName()
	if err != nil {
		return nil, err
	}
	ctx, hash, err := p.parsePartialArgs()
	if err != nil {
		return nil, err
	}
	closeTok, err := p.expect(tokClose)
	if err != nil {
		return nil, err
	}
	prog, end, err := p.parseProgram(true)
	if err != nil {
		return nil, err
	}
	if end.kind == endElse {
		return nil, p.errAt(end.tok, "unexpected {{else}} in partial block")
	}
	if end.kind != endClose {
		return nil, p.errAt(end.tok, "unterminated partial block {{#> %s}}", name)
	}
	if end.name != name {
		return nil, p.errAt(end.tok, "closing tag {{/%s}} does not match {{#> %s}}", end.name, name)
	}
	return &PartialBlock{
		Name:              name,
		Context:           ctx,
		Hash:              hash,
		Program:           prog,
		OpenStrip:         hasTilde(openTok.text),
		ContentStartStrip: hasTilde(closeTok.text),
		ContentEndStrip:   end.openTilde,
		CloseStrip:        end.closeTilde,
		Inline:            openTok.line == end.line,
	}, nil
}

func (p *parser) parseInlinePartial() (Node, error) {
	openTok := p.cur
	p.next()
	if p.cur.kind != tokID || p.cur.text != "inline" {
		return nil, p.errAt(p.cur, "expected 'inline' after {{#*")
	}
	p.next()
	if p.cur.kind != tokString {
		return nil, p.errAt(p.cur, "inline partial name must be a string literal")
	}
	name := p.cur.text
	p.next()
	closeTok, err := p.expect(tokClose)
	if err != nil {
		return nil, err
	}
	prog, end, err := p.parseProgram(true)
	if err != nil {
		return nil, err
	}
	if end.kind == endElse {
		return nil, p.errAt(end.tok, "unexpected {{else}} in inline partial")
	}
	if end.kind != endClose {
		return nil, p.errAt(end.tok, "unterminated inline partial %q", name)
	}
	if end.name != "inline" {
		return nil, p.errAt(end.tok, "closing tag {{/%s}} does not match {{#*inline}}", end.name)
	}
	return &InlinePartial{
		Name:              name,
		Program:           prog,
		OpenStrip:         hasTilde(openTok.text),
		ContentStartStrip: hasTilde(closeTok.text),
		ContentEndStrip:   end.openTilde,
		CloseStrip:        end.closeTilde,
		Inline:            openTok.line == end.line,
	}, nil
}

func (p *parser) parseRawBlock() (Node, error) {
	open := p.cur
	p.next()
	if open.text == "" {
		return nil, p.errAt(open, "raw block requires a name")
	}
	if p.cur.kind != tokRawContent {
		return nil, p.errAt(open, "unterminated raw block {{{{%s}}}}", open.text)
	}
	content := p.cur.text
	p.next()
	if p.cur.kind != tokRawEnd {
		return nil, p.errAt(open, "unterminated raw block {{{{%s}}}}", open.text)
	}
	p.next()
	return &RawBlock{Name: open.text, Content: content}, nil
}
