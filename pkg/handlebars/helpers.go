package handlebars

import (
	"log/slog"
	"strings"
)

// HelperFn is a template helper. Positional arguments arrive evaluated in
// params; named arguments, block bodies and the current context come in
// opts. Returning a SafeString suppresses escaping of the result.
type HelperFn func(opts *Options, params ...any) (any, error)

// Options carries the invocation context of a single helper call.
type Options struct {
	// Name is the helper name as written in the template.
	Name string
	// Hash holds the evaluated named arguments.
	Hash map[string]any
	// Context is the value the surrounding template renders against.
	Context any
	// Data is the current @-data frame (@root, @index, ...).
	Data map[string]any

	fn      blockFn
	inverse blockFn
}

type blockFn func(ctx any, push bool) (string, error)

// IsBlock reports whether the helper was called in block form.
func (o *Options) IsBlock() bool { return o.fn != nil }

// Fn renders the block body. With no argument the body renders against the
// current context; with one, that value becomes a new context frame. For a
// non-block call Fn renders "".
func (o *Options) Fn(ctx ...any) (string, error) {
	return renderBranch(o.fn, ctx)
}

// Inverse renders the {{else}} branch under the same context rules as Fn.
func (o *Options) Inverse(ctx ...any) (string, error) {
	return renderBranch(o.inverse, ctx)
}

func renderBranch(fn blockFn, ctx []any) (string, error) {
	if fn == nil {
		return "", nil
	}
	if len(ctx) > 0 {
		return fn(ctx[0], true)
	}
	return fn(nil, false)
}

// builtinHelpers are available in every engine. RegisterHelper shadows them,
// as it does the block builtins if, unless, each and with.
var builtinHelpers = map[string]HelperFn{
	"lookup": helperLookup,
	"log":    helperLog,
}

// helperLookup resolves a dynamic property: {{lookup obj key}}.
func helperLookup(_ *Options, params ...any) (any, error) {
	if len(params) < 2 {
		return nil, nil
	}
	v, _ := lookupKey(params[0], Stringify(params[1]))
	return v, nil
}

// helperLog writes its arguments to the process log and renders nothing.
func helperLog(_ *Options, params ...any) (any, error) {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = Stringify(p)
	}
	slog.Info("template log", "message", strings.Join(parts, " "))
	return nil, nil
}
