package prompthelpers

import (
	"testing"

	"github.com/neurodesk/hbars/pkg/handlebars"
)

func render(t *testing.T, tpl string, ctx any) string {
	t.Helper()
	eng := handlebars.New()
	Register(eng)
	out, err := eng.Render(tpl, ctx)
	if err != nil {
		t.Fatalf("render %q: %v", tpl, err)
	}
	return out
}

func TestRoleMarker(t *testing.T) {
	got := render(t, `{{role "system"}}`, nil)
	if got != "<<<dotprompt:role:system>>>" {
		t.Fatalf("got %q", got)
	}
}

func TestHistoryMarker(t *testing.T) {
	got := render(t, "{{history}}", nil)
	if got != "<<<dotprompt:history>>>" {
		t.Fatalf("got %q", got)
	}
}

func TestSectionMarker(t *testing.T) {
	got := render(t, `{{section "output"}}`, nil)
	if got != "<<<dotprompt:section output>>>" {
		t.Fatalf("got %q", got)
	}
}

func TestMediaMarker(t *testing.T) {
	got := render(t, `{{media url="https://example.com/a.png"}}`, nil)
	if got != "<<<dotprompt:media:url https://example.com/a.png>>>" {
		t.Fatalf("got %q", got)
	}
	got = render(t, `{{media url=img contentType="image/png"}}`, map[string]any{"img": "https://example.com/a.png"})
	if got != "<<<dotprompt:media:url https://example.com/a.png image/png>>>" {
		t.Fatalf("got %q", got)
	}
}

func TestMediaRequiresURL(t *testing.T) {
	eng := handlebars.New()
	Register(eng)
	if _, err := eng.Render("{{media}}", nil); err == nil {
		t.Fatal("expected error for media without url")
	}
}

func TestJSONHelper(t *testing.T) {
	ctx := map[string]any{"v": map[string]any{"b": 1, "a": "x"}}
	got := render(t, "{{json v}}", ctx)
	if got != `{"a":"x","b":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestJSONHelperIndent(t *testing.T) {
	ctx := map[string]any{"v": map[string]any{"a": 1}}
	got := render(t, "{{json v indent=2}}", ctx)
	want := "{\n  \"a\": 1\n}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = render(t, `{{json v indent="	"}}`, ctx)
	want = "{\n\t\"a\": 1\n}"
	if got != want {
		t.Fatalf("tab indent: got %q, want %q", got, want)
	}
}

func TestIfEquals(t *testing.T) {
	tpl := `{{#ifEquals kind "admin"}}yes{{else}}no{{/ifEquals}}`
	if got := render(t, tpl, map[string]any{"kind": "admin"}); got != "yes" {
		t.Fatalf("got %q", got)
	}
	if got := render(t, tpl, map[string]any{"kind": "user"}); got != "no" {
		t.Fatalf("got %q", got)
	}
}

func TestIfEqualsNumericMix(t *testing.T) {
	// Template number literals are floats; context integers still compare.
	tpl := "{{#ifEquals n 2}}eq{{else}}ne{{/ifEquals}}"
	if got := render(t, tpl, map[string]any{"n": 2}); got != "eq" {
		t.Fatalf("got %q", got)
	}
}

func TestUnlessEquals(t *testing.T) {
	tpl := `{{#unlessEquals kind "admin"}}restricted{{else}}full{{/unlessEquals}}`
	if got := render(t, tpl, map[string]any{"kind": "user"}); got != "restricted" {
		t.Fatalf("got %q", got)
	}
	if got := render(t, tpl, map[string]any{"kind": "admin"}); got != "full" {
		t.Fatalf("got %q", got)
	}
}

func TestPromptTemplate(t *testing.T) {
	tpl := `{{role "system"}}You help with {{topic}}.
{{history}}
{{role "user"}}{{question}}`
	ctx := map[string]any{"topic": "maps", "question": "where?"}
	want := "<<<dotprompt:role:system>>>You help with maps.\n" +
		"<<<dotprompt:history>>>\n" +
		"<<<dotprompt:role:user>>>where?"
	if got := render(t, tpl, ctx); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
