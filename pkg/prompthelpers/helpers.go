// Package prompthelpers provides the helpers used in LLM prompt templates:
// JSON serialization and the role/history/section/media markers that a
// prompt renderer later splits into structured messages.
package prompthelpers

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/neurodesk/hbars/pkg/handlebars"
)

// Register installs the prompt helpers on an engine.
func Register(e *handlebars.Engine) {
	e.RegisterHelper("json", jsonHelper)
	e.RegisterHelper("role", roleHelper)
	e.RegisterHelper("history", historyHelper)
	e.RegisterHelper("section", sectionHelper)
	e.RegisterHelper("media", mediaHelper)
	e.RegisterHelper("ifEquals", ifEqualsHelper)
	e.RegisterHelper("unlessEquals", unlessEqualsHelper)
}

// jsonHelper serializes its argument: {{json value}} or
// {{json value indent=2}}. The result is emitted without HTML escaping.
func jsonHelper(opts *handlebars.Options, params ...any) (any, error) {
	if len(params) == 0 {
		return handlebars.SafeString("null"), nil
	}
	var b []byte
	var err error
	if indent, ok := opts.Hash["indent"]; ok {
		b, err = json.MarshalIndent(params[0], "", indentString(indent))
	} else {
		b, err = json.Marshal(params[0])
	}
	if err != nil {
		return nil, fmt.Errorf("json helper: %w", err)
	}
	return handlebars.SafeString(b), nil
}

// indentString accepts either a count of spaces or a literal indent string.
func indentString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strings.Repeat(" ", v)
	case float64:
		return strings.Repeat(" ", int(v))
	}
	return ""
}

func roleHelper(_ *handlebars.Options, params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("role requires exactly one argument")
	}
	name := handlebars.Stringify(params[0])
	return handlebars.SafeString("<<<dotprompt:role:" + name + ">>>"), nil
}

func historyHelper(_ *handlebars.Options, _ ...any) (any, error) {
	return handlebars.SafeString("<<<dotprompt:history>>>"), nil
}

func sectionHelper(_ *handlebars.Options, params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("section requires exactly one argument")
	}
	name := handlebars.Stringify(params[0])
	return handlebars.SafeString("<<<dotprompt:section " + name + ">>>"), nil
}

// mediaHelper emits a media marker: {{media url="..." contentType="..."}}.
// The content type is optional.
func mediaHelper(opts *handlebars.Options, _ ...any) (any, error) {
	url, ok := opts.Hash["url"]
	if !ok {
		return nil, fmt.Errorf("media requires a url argument")
	}
	out := "<<<dotprompt:media:url " + handlebars.Stringify(url)
	if ct, ok := opts.Hash["contentType"]; ok {
		out += " " + handlebars.Stringify(ct)
	}
	return handlebars.SafeString(out + ">>>"), nil
}

func ifEqualsHelper(opts *handlebars.Options, params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("ifEquals requires exactly two arguments")
	}
	if equalValues(params[0], params[1]) {
		return opts.Fn()
	}
	return opts.Inverse()
}

func unlessEqualsHelper(opts *handlebars.Options, params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("unlessEquals requires exactly two arguments")
	}
	if equalValues(params[0], params[1]) {
		return opts.Inverse()
	}
	return opts.Fn()
}

// equalValues compares deeply but lets numeric types mix, so a template
// literal 2 matches an int 2 from the context.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
