package handlebars

import (
	"errors"
	"strings"
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func renderString(t *testing.T, src string, ctx any) string {
	t.Helper()
	out, err := New().Render(src, ctx)
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}
	return out
}

func TestRenderVariables(t *testing.T) {
	cases := []struct {
		tpl  string
		ctx  any
		want string
	}{
		{"Hello {{name}}!", map[string]any{"name": "World"}, "Hello World!"},
		{"{{user.name}}", map[string]any{"user": map[string]any{"name": "n"}}, "n"},
		{"{{missing}}", map[string]any{}, ""},
		{"{{a.b.c}}", map[string]any{"a": 1}, ""},
		{"{{.}}", "self", "self"},
		{"{{this}}", "self", "self"},
		{"{{n}}", map[string]any{"n": 3}, "3"},
		{"{{n}}", map[string]any{"n": 2.5}, "2.5"},
		{"{{ok}}", map[string]any{"ok": true}, "true"},
		{"{{xs.1}}", map[string]any{"xs": []any{"a", "b"}}, "b"},
	}
	for _, tc := range cases {
		if got := renderString(t, tc.tpl, tc.ctx); got != tc.want {
			t.Errorf("render %q = %q, want %q", tc.tpl, got, tc.want)
		}
	}
}

func TestRenderEscaping(t *testing.T) {
	ctx := map[string]any{"v": `<a href="x">'&'</a>`}
	got := renderString(t, "{{v}}", ctx)
	want := "&lt;a href&#x3D;&quot;x&quot;&gt;&#x27;&amp;&#x27;&lt;/a&gt;"
	if got != want {
		t.Fatalf("escaped = %q, want %q", got, want)
	}
	if got := renderString(t, "{{{v}}}", ctx); got != `<a href="x">'&'</a>` {
		t.Fatalf("triple stash = %q", got)
	}
	if got := renderString(t, "{{&v}}", ctx); got != `<a href="x">'&'</a>` {
		t.Fatalf("ampersand = %q", got)
	}
}

func TestRenderEscapingDisabled(t *testing.T) {
	eng := New()
	eng.EscapeHTML = false
	out, err := eng.Render("{{v}}", map[string]any{"v": "<b>"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "<b>" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderSafeString(t *testing.T) {
	eng := New()
	eng.RegisterHelper("tag", func(_ *Options, params ...any) (any, error) {
		return SafeString("<" + Stringify(params[0]) + ">"), nil
	})
	out, err := eng.Render("{{tag name}}", map[string]any{"name": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "<b>" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderIfChain(t *testing.T) {
	tpl := "{{#if a}}A{{else if b}}B{{else}}C{{/if}}"
	cases := []struct {
		ctx  map[string]any
		want string
	}{
		{map[string]any{"a": true}, "A"},
		{map[string]any{"b": true}, "B"},
		{map[string]any{}, "C"},
	}
	for _, tc := range cases {
		if got := renderString(t, tpl, tc.ctx); got != tc.want {
			t.Errorf("ctx %v: got %q, want %q", tc.ctx, got, tc.want)
		}
	}
}

func TestRenderTruthiness(t *testing.T) {
	tpl := "{{#if v}}T{{else}}F{{/if}}"
	cases := []struct {
		v    any
		want string
	}{
		{nil, "F"},
		{false, "F"},
		{0, "F"},
		{"", "F"},
		{[]any{}, "F"},
		{map[string]any{}, "T"},
		{"0", "T"},
		{1, "T"},
		{[]any{0}, "T"},
	}
	for _, tc := range cases {
		got := renderString(t, tpl, map[string]any{"v": tc.v})
		if got != tc.want {
			t.Errorf("if %#v = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestRenderIfIncludeZero(t *testing.T) {
	ctx := map[string]any{"n": 0}
	if got := renderString(t, "{{#if n}}T{{else}}F{{/if}}", ctx); got != "F" {
		t.Fatalf("plain zero = %q", got)
	}
	if got := renderString(t, "{{#if n includeZero=true}}T{{else}}F{{/if}}", ctx); got != "T" {
		t.Fatalf("includeZero = %q", got)
	}
}

func TestRenderUnless(t *testing.T) {
	tpl := "{{#unless v}}empty{{else}}present{{/unless}}"
	if got := renderString(t, tpl, map[string]any{"v": nil}); got != "empty" {
		t.Fatalf("got %q", got)
	}
	if got := renderString(t, tpl, map[string]any{"v": 1}); got != "present" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderEachList(t *testing.T) {
	tpl := "{{#each xs}}{{@index}}:{{this}}{{#unless @last}},{{/unless}}{{/each}}"
	got := renderString(t, tpl, map[string]any{"xs": []any{"a", "b", "c"}})
	if got != "0:a,1:b,2:c" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderEachFirstLast(t *testing.T) {
	tpl := "{{#each xs}}{{#if @first}}[{{/if}}{{this}}{{#if @last}}]{{/if}}{{/each}}"
	got := renderString(t, tpl, map[string]any{"xs": []any{1, 2, 3}})
	if got != "[123]" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderEachMapSorted(t *testing.T) {
	got := renderString(t, "{{#each m}}{{@key}}={{this}};{{/each}}",
		map[string]any{"m": map[string]any{"b": 2, "a": 1, "c": 3}})
	if got != "a=1;b=2;c=3;" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderEachOrderedMap(t *testing.T) {
	om := orderedmap.New[string, any]()
	om.Set("z", 1)
	om.Set("a", 2)
	got := renderString(t, "{{#each m}}{{@key}}={{this}};{{/each}}", map[string]any{"m": om})
	if got != "z=1;a=2;" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderEachElse(t *testing.T) {
	tpl := "{{#each xs}}{{this}}{{else}}none{{/each}}"
	if got := renderString(t, tpl, map[string]any{"xs": []any{}}); got != "none" {
		t.Fatalf("empty list = %q", got)
	}
	if got := renderString(t, tpl, map[string]any{}); got != "none" {
		t.Fatalf("missing list = %q", got)
	}
}

func TestRenderEachBlockParams(t *testing.T) {
	tpl := "{{#each xs as |x i|}}{{i}}:{{x}};{{/each}}"
	got := renderString(t, tpl, map[string]any{"xs": []any{"a", "b"}})
	if got != "0:a;1:b;" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderNestedEachParentPaths(t *testing.T) {
	tpl := "{{#each groups}}{{#each ../names}}{{this}}@{{/each}}{{this}};{{/each}}"
	ctx := map[string]any{
		"groups": []any{"g1", "g2"},
		"names":  []any{"n"},
	}
	got := renderString(t, tpl, ctx)
	if got != "n@g1;n@g2;" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderWith(t *testing.T) {
	ctx := map[string]any{"user": map[string]any{"name": "n"}, "title": "t"}
	got := renderString(t, "{{#with user}}{{name}} ({{../title}}){{/with}}", ctx)
	if got != "n (t)" {
		t.Fatalf("got %q", got)
	}
	got = renderString(t, "{{#with missing}}X{{else}}no user{{/with}}", ctx)
	if got != "no user" {
		t.Fatalf("got %q", got)
	}
	got = renderString(t, "{{#with user as |u|}}{{u.name}}{{/with}}", ctx)
	if got != "n" {
		t.Fatalf("block param = %q", got)
	}
}

func TestRenderNakedSection(t *testing.T) {
	// A truthy non-bool value becomes the context; bare true keeps it.
	ctx := map[string]any{
		"user": map[string]any{"name": "n"},
		"flag": true,
		"name": "outer",
	}
	if got := renderString(t, "{{#user}}{{name}}{{/user}}", ctx); got != "n" {
		t.Fatalf("map section = %q", got)
	}
	if got := renderString(t, "{{#flag}}{{name}}{{/flag}}", ctx); got != "outer" {
		t.Fatalf("bool section = %q", got)
	}
	if got := renderString(t, "{{#missing}}X{{else}}Y{{/missing}}", ctx); got != "Y" {
		t.Fatalf("falsy section = %q", got)
	}
}

func TestRenderInvertedSection(t *testing.T) {
	if got := renderString(t, "{{^xs}}empty{{/xs}}", map[string]any{"xs": []any{}}); got != "empty" {
		t.Fatalf("got %q", got)
	}
	if got := renderString(t, "{{^xs}}empty{{/xs}}", map[string]any{"xs": []any{1}}); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderRootData(t *testing.T) {
	ctx := map[string]any{"title": "T", "user": map[string]any{"name": "n"}}
	got := renderString(t, "{{#with user}}{{@root.title}}/{{name}}{{/with}}", ctx)
	if got != "T/n" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderCustomHelper(t *testing.T) {
	eng := New()
	eng.RegisterHelper("shout", func(_ *Options, params ...any) (any, error) {
		return strings.ToUpper(Stringify(params[0])) + "!", nil
	})
	out, err := eng.Render("{{shout name}}", map[string]any{"name": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "HI!" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderHelperHashAndLiterals(t *testing.T) {
	eng := New()
	eng.RegisterHelper("join", func(opts *Options, params ...any) (any, error) {
		sep := Stringify(opts.Hash["sep"])
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = Stringify(p)
		}
		return strings.Join(parts, sep), nil
	})
	out, err := eng.Render(`{{join "a" 1 true sep="-"}}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "a-1-true" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderBlockHelper(t *testing.T) {
	eng := New()
	eng.RegisterHelper("bold", func(opts *Options, _ ...any) (any, error) {
		body, err := opts.Fn()
		if err != nil {
			return nil, err
		}
		return "<b>" + body + "</b>", nil
	})
	out, err := eng.Render("{{#bold}}{{name}}{{/bold}}", map[string]any{"name": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "<b>x</b>" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderBlockHelperBranches(t *testing.T) {
	eng := New()
	eng.RegisterHelper("pick", func(opts *Options, params ...any) (any, error) {
		if Truthy(params[0]) {
			return opts.Fn(params[1])
		}
		return opts.Inverse()
	})
	tpl := "{{#pick ok user}}{{name}}{{else}}nobody{{/pick}}"
	ctx := map[string]any{"ok": true, "user": map[string]any{"name": "n"}}
	out, err := eng.Render(tpl, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != "n" {
		t.Fatalf("out = %q", out)
	}
	ctx["ok"] = false
	out, err = eng.Render(tpl, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != "nobody" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderSubexpression(t *testing.T) {
	eng := New()
	eng.RegisterHelper("eq", func(_ *Options, params ...any) (any, error) {
		return Stringify(params[0]) == Stringify(params[1]), nil
	})
	out, err := eng.Render(`{{#if (eq kind "admin")}}yes{{else}}no{{/if}}`, map[string]any{"kind": "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "yes" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderHelperOverridesBuiltin(t *testing.T) {
	eng := New()
	eng.RegisterHelper("if", func(_ *Options, _ ...any) (any, error) {
		return "overridden", nil
	})
	out, err := eng.Render("{{#if x}}body{{/if}}", map[string]any{"x": true})
	if err != nil {
		t.Fatal(err)
	}
	if out != "overridden" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderLookupHelper(t *testing.T) {
	ctx := map[string]any{"xs": []any{"a", "b"}, "i": 1, "m": map[string]any{"k": "v"}}
	if got := renderString(t, "{{lookup xs i}}", ctx); got != "b" {
		t.Fatalf("list lookup = %q", got)
	}
	if got := renderString(t, `{{lookup m "k"}}`, ctx); got != "v" {
		t.Fatalf("map lookup = %q", got)
	}
}

func TestRenderUnknownHelperWithArgs(t *testing.T) {
	_, err := New().Render("{{nope 1}}", nil)
	if err == nil || !strings.Contains(err.Error(), `unknown helper "nope"`) {
		t.Fatalf("err = %v", err)
	}
	_, err = New().Render("{{#nope 1}}x{{/nope}}", nil)
	if err == nil || !strings.Contains(err.Error(), `unknown helper "nope"`) {
		t.Fatalf("block err = %v", err)
	}
}

func TestRenderStrictMode(t *testing.T) {
	eng := New()
	eng.Strict = true
	_, err := eng.Render("{{missing}}", map[string]any{})
	var pe *PathError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PathError", err)
	}
	if pe.Path != "missing" {
		t.Fatalf("path = %q", pe.Path)
	}

	_, err = eng.Render("{{user.name}}", map[string]any{"user": map[string]any{}})
	if !errors.As(err, &pe) {
		t.Fatalf("nested err = %v, want *PathError", err)
	}

	out, err := eng.Render("{{name}}", map[string]any{"name": "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderRawBlock(t *testing.T) {
	got := renderString(t, "{{{{raw}}}}{{x}} {{#if y}}{{{{/raw}}}}", map[string]any{"x": "no"})
	if got != "{{x}} {{#if y}}" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderHelperError(t *testing.T) {
	eng := New()
	eng.RegisterHelper("boom", func(_ *Options, _ ...any) (any, error) {
		return nil, errors.New("boom failed")
	})
	_, err := eng.Render("a{{boom}}b", nil)
	if err == nil || !strings.Contains(err.Error(), "boom failed") {
		t.Fatalf("err = %v", err)
	}
}
