package handlebars

import (
	"bytes"
	"errors"
	"fmt"
)

// Engine holds the helper and partial registries plus the render options
// shared by templates compiled from it. Registries are read at render time,
// so partials registered after Compile are still visible; an Engine is not
// safe for concurrent mutation.
type Engine struct {
	helpers  map[string]HelperFn
	partials map[string]string
	compiled map[string]*partialEntry
	loader   Loader

	// EscapeHTML controls whether {{expr}} output is HTML-escaped. On by
	// default; {{{expr}}} and SafeString always bypass it.
	EscapeHTML bool
	// Strict turns unresolved paths into render errors instead of empty
	// output.
	Strict bool
}

// partialEntry memoizes one partial compilation, error included: a malformed
// partial fails every render that reaches it, without re-parsing.
type partialEntry struct {
	prog *Program
	err  error
}

// New returns an engine with the builtin helpers and HTML escaping enabled.
func New() *Engine {
	return &Engine{
		helpers:    map[string]HelperFn{},
		partials:   map[string]string{},
		compiled:   map[string]*partialEntry{},
		EscapeHTML: true,
	}
}

// RegisterHelper makes fn callable from templates as name. It replaces any
// same-named helper, builtins included.
func (e *Engine) RegisterHelper(name string, fn HelperFn) {
	e.helpers[name] = fn
}

// RegisterPartial registers raw template source under name. The source is
// compiled the first time a render references it; a malformed partial errors
// there, not here.
func (e *Engine) RegisterPartial(name, src string) {
	e.partials[name] = src
	delete(e.compiled, name)
}

// SetLoader attaches a loader consulted for partial names that were never
// registered directly.
func (e *Engine) SetLoader(l Loader) {
	e.loader = l
}

// compiledPartial resolves a partial name to its parsed program. A nil
// program with nil error means the name is unknown, which lets partial
// blocks fall back to their body.
func (e *Engine) compiledPartial(name string) (*Program, error) {
	if pe, ok := e.compiled[name]; ok {
		return pe.prog, pe.err
	}
	src, ok := e.partials[name]
	if !ok {
		if e.loader == nil {
			return nil, nil
		}
		s, err := e.loader.Load(name)
		if err != nil {
			var notFound ErrPartialNotFound
			if errors.As(err, &notFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("load partial %q: %w", name, err)
		}
		src = s
	}
	pe := &partialEntry{}
	prog, err := Parse(src)
	if err != nil {
		pe.err = fmt.Errorf("partial %q: %w", name, err)
	} else {
		pe.prog = prog
	}
	e.compiled[name] = pe
	return pe.prog, pe.err
}

// Compile parses src into a reusable template bound to the engine.
func (e *Engine) Compile(src string) (*Template, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Template{prog: prog, eng: e}, nil
}

// Render is Compile followed by a single render.
func (e *Engine) Render(src string, ctx any) (string, error) {
	t, err := e.Compile(src)
	if err != nil {
		return "", err
	}
	return t.Render(ctx)
}

// Template is a parsed template ready to render any number of contexts.
type Template struct {
	prog *Program
	eng  *Engine
}

// AST exposes the parsed program, after whitespace control, for tooling.
func (t *Template) AST() *Program {
	return t.prog
}

// Render executes the template against ctx. @root refers to ctx throughout,
// however deep the context stack grows.
func (t *Template) Render(ctx any) (string, error) {
	return t.RenderData(ctx, nil)
}

// RenderData is Render with extra entries seeded into the root @-data frame,
// for callers that thread request metadata through templates.
func (t *Template) RenderData(ctx any, extra map[string]any) (string, error) {
	data := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		data[k] = v
	}
	data["root"] = ctx
	r := &renderer{tpl: t}
	var buf bytes.Buffer
	if err := r.renderProgram(&buf, t.prog, []any{ctx}, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
