package handlebars

import (
	"bytes"
	"fmt"
	"strings"
)

// maxPartialDepth bounds partial recursion so a self-referential partial
// fails with an error instead of exhausting the stack.
const maxPartialDepth = 64

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// renderer holds per-render state: scoped inline partial frames, block
// parameter frames and the partial recursion depth. The context stack and
// data frame travel as arguments instead so branches cannot leak frames.
type renderer struct {
	tpl    *Template
	inline []map[string]*Program
	bps    []map[string]any
	depth  int
}

func (r *renderer) renderProgram(buf *bytes.Buffer, prog *Program, stack []any, data map[string]any) error {
	if prog == nil {
		return nil
	}
	// Inline partial definitions are hoisted: they are visible to the whole
	// program, including statements written before the definition.
	var frame map[string]*Program
	for _, n := range prog.Body {
		if ip, ok := n.(*InlinePartial); ok {
			if frame == nil {
				frame = map[string]*Program{}
			}
			frame[ip.Name] = ip.Program
		}
	}
	if frame != nil {
		r.inline = append(r.inline, frame)
		defer func() { r.inline = r.inline[:len(r.inline)-1] }()
	}
	for _, n := range prog.Body {
		if err := r.renderNode(buf, n, stack, data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderNode(buf *bytes.Buffer, n Node, stack []any, data map[string]any) error {
	switch n := n.(type) {
	case *Text:
		buf.WriteString(n.Value)
	case *RawBlock:
		buf.WriteString(n.Content)
	case *Comment, *InlinePartial:
		// no output
	case *Mustache:
		return r.renderMustache(buf, n, stack, data)
	case *Block:
		return r.renderBlock(buf, n, stack, data)
	case *Partial:
		return r.renderPartial(buf, n, stack, data)
	case *PartialBlock:
		return r.renderPartialBlock(buf, n, stack, data)
	default:
		return fmt.Errorf("unhandled node type %T", n)
	}
	return nil
}

// helper resolves a dispatch name against the engine registry, then the
// builtins. Dotted and data paths never dispatch as helpers.
func (r *renderer) helper(name string) HelperFn {
	if name == "" {
		return nil
	}
	if fn, ok := r.tpl.eng.helpers[name]; ok {
		return fn
	}
	if fn, ok := builtinHelpers[name]; ok {
		return fn
	}
	return nil
}

func (r *renderer) renderMustache(buf *bytes.Buffer, m *Mustache, stack []any, data map[string]any) error {
	name := headName(m.Path)
	if fn := r.helper(name); fn != nil {
		res, err := r.callHelper(fn, name, m.Params, m.Hash, nil, stack, data)
		if err != nil {
			return err
		}
		r.write(buf, res, m.Escaped)
		return nil
	}
	if len(m.Params) > 0 || len(m.Hash) > 0 {
		return fmt.Errorf("unknown helper %q", m.Path.Original)
	}
	v, err := r.resolvePath(m.Path, stack, data)
	if err != nil {
		return err
	}
	r.write(buf, v, m.Escaped)
	return nil
}

func (r *renderer) write(buf *bytes.Buffer, v any, escape bool) {
	if s, ok := v.(SafeString); ok {
		buf.WriteString(string(s))
		return
	}
	out := Stringify(v)
	if escape && r.tpl.eng.EscapeHTML {
		out = htmlEscaper.Replace(out)
	}
	buf.WriteString(out)
}

func (r *renderer) renderBlock(buf *bytes.Buffer, b *Block, stack []any, data map[string]any) error {
	name := headName(b.Path)
	if fn, ok := r.tpl.eng.helpers[name]; ok && name != "" {
		return r.renderHelperBlock(buf, fn, name, b, stack, data)
	}
	switch name {
	case "if":
		return r.renderIf(buf, b, false, stack, data)
	case "unless":
		return r.renderIf(buf, b, true, stack, data)
	case "each":
		return r.renderEach(buf, b, stack, data)
	case "with":
		return r.renderWith(buf, b, stack, data)
	}
	if fn := r.helper(name); fn != nil {
		return r.renderHelperBlock(buf, fn, name, b, stack, data)
	}
	return r.renderSection(buf, b, stack, data)
}

// renderHelperBlock dispatches a block to a registered helper. Block helper
// results are appended unescaped; the helper escapes what it must.
func (r *renderer) renderHelperBlock(buf *bytes.Buffer, fn HelperFn, name string, b *Block, stack []any, data map[string]any) error {
	res, err := r.callHelper(fn, name, b.Params, b.Hash, b, stack, data)
	if err != nil {
		return err
	}
	if res != nil {
		buf.WriteString(Stringify(res))
	}
	return nil
}

func (r *renderer) callHelper(fn HelperFn, name string, params []Expr, hash []HashPair, blk *Block, stack []any, data map[string]any) (any, error) {
	args := make([]any, len(params))
	for i, pe := range params {
		v, err := r.evalExpr(pe, stack, data)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	opts := &Options{
		Name:    name,
		Context: stack[len(stack)-1],
		Data:    data,
	}
	if len(hash) > 0 {
		opts.Hash = make(map[string]any, len(hash))
		for _, hp := range hash {
			v, err := r.evalExpr(hp.Value, stack, data)
			if err != nil {
				return nil, err
			}
			opts.Hash[hp.Key] = v
		}
	}
	if blk != nil {
		fnProg, invProg := blk.Program, blk.Inverse
		if blk.Inverted {
			fnProg, invProg = invProg, fnProg
		}
		opts.fn = r.branchFn(fnProg, stack, data)
		opts.inverse = r.branchFn(invProg, stack, data)
	}
	return fn(opts, args...)
}

func (r *renderer) branchFn(prog *Program, stack []any, data map[string]any) blockFn {
	if prog == nil {
		return nil
	}
	return func(ctx any, push bool) (string, error) {
		s := stack
		if push {
			s = append(stack[:len(stack):len(stack)], ctx)
		}
		var buf bytes.Buffer
		if err := r.renderProgram(&buf, prog, s, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

func (r *renderer) renderIf(buf *bytes.Buffer, b *Block, invert bool, stack []any, data map[string]any) error {
	name := "if"
	if invert {
		name = "unless"
	}
	if len(b.Params) != 1 {
		return fmt.Errorf("#%s requires exactly one argument", name)
	}
	v, err := r.evalExpr(b.Params[0], stack, data)
	if err != nil {
		return err
	}
	cond := Truthy(v)
	if !cond && !invert && isZeroNumber(v) {
		iz, err := r.hashValue(b.Hash, "includeZero", stack, data)
		if err != nil {
			return err
		}
		cond = Truthy(iz)
	}
	if invert != b.Inverted { // exactly one flips the branch
		cond = !cond
	}
	if cond {
		return r.renderProgram(buf, b.Program, stack, data)
	}
	return r.renderProgram(buf, b.Inverse, stack, data)
}

func (r *renderer) hashValue(hash []HashPair, key string, stack []any, data map[string]any) (any, error) {
	for _, hp := range hash {
		if hp.Key == key {
			return r.evalExpr(hp.Value, stack, data)
		}
	}
	return nil, nil
}

func isZeroNumber(v any) bool {
	switch v := v.(type) {
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case float32:
		return v == 0
	case uint64:
		return v == 0
	}
	return false
}

func (r *renderer) renderWith(buf *bytes.Buffer, b *Block, stack []any, data map[string]any) error {
	if len(b.Params) != 1 {
		return fmt.Errorf("#with requires exactly one argument")
	}
	v, err := r.evalExpr(b.Params[0], stack, data)
	if err != nil {
		return err
	}
	body, alt := b.Program, b.Inverse
	if b.Inverted {
		body, alt = alt, body
	}
	if !Truthy(v) {
		return r.renderProgram(buf, alt, stack, data)
	}
	s := append(stack[:len(stack):len(stack)], v)
	if len(b.BlockParams) > 0 {
		r.bps = append(r.bps, map[string]any{b.BlockParams[0]: v})
		defer func() { r.bps = r.bps[:len(r.bps)-1] }()
	}
	return r.renderProgram(buf, body, s, data)
}

func (r *renderer) renderEach(buf *bytes.Buffer, b *Block, stack []any, data map[string]any) error {
	if len(b.Params) != 1 {
		return fmt.Errorf("#each requires exactly one argument")
	}
	v, err := r.evalExpr(b.Params[0], stack, data)
	if err != nil {
		return err
	}
	body, alt := b.Program, b.Inverse
	if b.Inverted {
		body, alt = alt, body
	}
	items, isList, ok := iterateValue(v)
	if !ok || len(items) == 0 {
		return r.renderProgram(buf, alt, stack, data)
	}
	for i, it := range items {
		child := make(map[string]any, len(data)+4)
		for k, dv := range data {
			child[k] = dv
		}
		child["index"] = i
		child["first"] = i == 0
		child["last"] = i == len(items)-1
		if !isList {
			child["key"] = it.key
		}
		s := append(stack[:len(stack):len(stack)], it.val)
		var frame map[string]any
		if len(b.BlockParams) > 0 {
			frame = map[string]any{b.BlockParams[0]: it.val}
			if len(b.BlockParams) > 1 {
				if isList {
					frame[b.BlockParams[1]] = i
				} else {
					frame[b.BlockParams[1]] = it.key
				}
			}
			r.bps = append(r.bps, frame)
		}
		err := r.renderProgram(buf, body, s, child)
		if frame != nil {
			r.bps = r.bps[:len(r.bps)-1]
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// renderSection handles a block whose head is a plain value, mustache-style:
// truthy renders the body with the value as context (except bare true, which
// keeps the current context), falsy renders the else branch. Lists are not
// implicitly iterated; that is what #each is for.
func (r *renderer) renderSection(buf *bytes.Buffer, b *Block, stack []any, data map[string]any) error {
	if len(b.Params) > 0 || len(b.Hash) > 0 {
		return fmt.Errorf("unknown helper %q", b.Path.Original)
	}
	v, err := r.resolvePath(b.Path, stack, data)
	if err != nil {
		return err
	}
	body, alt := b.Program, b.Inverse
	if b.Inverted {
		body, alt = alt, body
	}
	if !Truthy(v) {
		return r.renderProgram(buf, alt, stack, data)
	}
	if vb, isBool := v.(bool); isBool && vb {
		return r.renderProgram(buf, body, stack, data)
	}
	s := append(stack[:len(stack):len(stack)], v)
	return r.renderProgram(buf, body, s, data)
}

func (r *renderer) renderPartial(buf *bytes.Buffer, pt *Partial, stack []any, data map[string]any) error {
	prog, err := r.lookupPartial(pt.Name)
	if err != nil {
		return err
	}
	if prog == nil {
		return ErrPartialNotFound{Name: pt.Name}
	}
	return r.execPartial(buf, prog, pt.Context, pt.Hash, pt.Indent, stack, data)
}

// renderPartialBlock resolves {{#> name}}: a registered or inline partial
// wins, the block body is the fallback. While the partial renders, the body
// is reachable as {{> @partial-block}}.
func (r *renderer) renderPartialBlock(buf *bytes.Buffer, pb *PartialBlock, stack []any, data map[string]any) error {
	prog, err := r.lookupPartial(pb.Name)
	if err != nil {
		return err
	}
	if prog == nil {
		return r.renderProgram(buf, pb.Program, stack, data)
	}
	r.inline = append(r.inline, map[string]*Program{"@partial-block": pb.Program})
	err = r.execPartial(buf, prog, pb.Context, pb.Hash, "", stack, data)
	r.inline = r.inline[:len(r.inline)-1]
	return err
}

func (r *renderer) lookupPartial(name string) (*Program, error) {
	for i := len(r.inline) - 1; i >= 0; i-- {
		if p, ok := r.inline[i][name]; ok {
			return p, nil
		}
	}
	return r.tpl.eng.compiledPartial(name)
}

func (r *renderer) execPartial(buf *bytes.Buffer, prog *Program, ctxExpr Expr, hash []HashPair, indent string, stack []any, data map[string]any) error {
	if r.depth >= maxPartialDepth {
		return fmt.Errorf("partial recursion exceeds %d levels", maxPartialDepth)
	}
	base := stack[len(stack)-1]
	pushed := false
	if ctxExpr != nil {
		v, err := r.evalExpr(ctxExpr, stack, data)
		if err != nil {
			return err
		}
		base = v
		pushed = true
	}
	if len(hash) > 0 {
		merged := map[string]any{}
		if items, isList, ok := iterateValue(base); ok && !isList {
			for _, it := range items {
				merged[it.key] = it.val
			}
		}
		for _, hp := range hash {
			v, err := r.evalExpr(hp.Value, stack, data)
			if err != nil {
				return err
			}
			merged[hp.Key] = v
		}
		base = merged
		pushed = true
	}
	s := stack
	if pushed {
		s = append(stack[:len(stack):len(stack)], base)
	}

	out := buf
	var tmp bytes.Buffer
	if indent != "" {
		out = &tmp
	}
	r.depth++
	err := r.renderProgram(out, prog, s, data)
	r.depth--
	if err != nil {
		return err
	}
	if indent != "" {
		writeIndented(buf, tmp.String(), indent)
	}
	return nil
}

// writeIndented prefixes every line of s with indent, the way a standalone
// partial inherits the indentation of its line.
func writeIndented(buf *bytes.Buffer, s, indent string) {
	for len(s) > 0 {
		buf.WriteString(indent)
		nl := strings.IndexByte(s, '\n')
		if nl < 0 {
			buf.WriteString(s)
			return
		}
		buf.WriteString(s[:nl+1])
		s = s[nl+1:]
	}
}

func (r *renderer) evalExpr(e Expr, stack []any, data map[string]any) (any, error) {
	switch e := e.(type) {
	case *StringLit:
		return e.Value, nil
	case *NumberLit:
		return e.Value, nil
	case *BoolLit:
		return e.Value, nil
	case *Path:
		return r.resolvePath(e, stack, data)
	case *SubExpression:
		name := headName(e.Path)
		fn := r.helper(name)
		if fn == nil {
			return nil, fmt.Errorf("unknown helper %q", e.Path.Original)
		}
		return r.callHelper(fn, name, e.Params, e.Hash, nil, stack, data)
	default:
		return nil, fmt.Errorf("unhandled expression type %T", e)
	}
}

// resolvePath evaluates a path against the context stack and data frame.
// Missing segments yield nil, or a PathError when the engine is strict.
func (r *renderer) resolvePath(p *Path, stack []any, data map[string]any) (any, error) {
	if p.Data {
		return r.resolveData(p, data)
	}
	if p.Depth >= len(stack) {
		return r.missing(p)
	}
	ctx := stack[len(stack)-1-p.Depth]
	if len(p.Parts) == 0 {
		return ctx, nil
	}
	// Block parameters shadow context properties, innermost first.
	if p.Depth == 0 {
		for i := len(r.bps) - 1; i >= 0; i-- {
			if v, ok := r.bps[i][p.Parts[0]]; ok {
				return r.walkPath(v, p.Parts[1:], p)
			}
		}
	}
	v, ok := lookupKey(ctx, p.Parts[0])
	if !ok {
		return r.missing(p)
	}
	return r.walkPath(v, p.Parts[1:], p)
}

func (r *renderer) resolveData(p *Path, data map[string]any) (any, error) {
	if len(p.Parts) == 0 {
		return nil, nil
	}
	v, ok := data[p.Parts[0]]
	if !ok {
		return r.missing(p)
	}
	return r.walkPath(v, p.Parts[1:], p)
}

func (r *renderer) walkPath(v any, parts []string, p *Path) (any, error) {
	for _, part := range parts {
		next, ok := lookupKey(v, part)
		if !ok {
			return r.missing(p)
		}
		v = next
	}
	return v, nil
}

func (r *renderer) missing(p *Path) (any, error) {
	if r.tpl.eng.Strict {
		return nil, &PathError{Path: p.Original}
	}
	return nil, nil
}
