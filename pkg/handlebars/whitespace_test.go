package handlebars

import "testing"

func TestStandaloneStripping(t *testing.T) {
	cases := []struct {
		name string
		tpl  string
		ctx  any
		want string
	}{
		{
			name: "block tags on own lines",
			tpl:  "{{#if t}}\nA\n{{/if}}\n",
			ctx:  map[string]any{"t": true},
			want: "A\n",
		},
		{
			name: "inline block keeps spacing",
			tpl:  "x {{#if t}}A{{/if}} y",
			ctx:  map[string]any{"t": true},
			want: "x A y",
		},
		{
			name: "standalone else",
			tpl:  "{{#if f}}\nA\n{{else}}\nB\n{{/if}}\n",
			ctx:  map[string]any{"f": false},
			want: "B\n",
		},
		{
			name: "standalone else taking main branch",
			tpl:  "{{#if f}}\nA\n{{else}}\nB\n{{/if}}\n",
			ctx:  map[string]any{"f": true},
			want: "A\n",
		},
		{
			name: "indented block tags",
			tpl:  "  {{#if t}}\n  A\n  {{/if}}\n",
			ctx:  map[string]any{"t": true},
			want: "  A\n",
		},
		{
			name: "close tag on own line",
			tpl:  "{{#if t}}A\n{{/if}}\n",
			ctx:  map[string]any{"t": true},
			want: "A\n",
		},
		{
			name: "standalone comment",
			tpl:  "a\n{{! note }}\nb",
			ctx:  nil,
			want: "a\nb",
		},
		{
			name: "inline comment",
			tpl:  "a {{! note }} b",
			ctx:  nil,
			want: "a  b",
		},
		{
			name: "mustache lines are kept",
			tpl:  "{{x}}\n{{y}}",
			ctx:  map[string]any{"x": "X", "y": "Y"},
			want: "X\nY",
		},
		{
			name: "tilde strips both sides",
			tpl:  "a \n{{~x~}} \nb",
			ctx:  map[string]any{"x": "X"},
			want: "aXb",
		},
		{
			name: "tilde open only",
			tpl:  "a\n\n{{~x}}",
			ctx:  map[string]any{"x": "X"},
			want: "aX",
		},
		{
			name: "tilde close only",
			tpl:  "{{x~}} \n\nb",
			ctx:  map[string]any{"x": "X"},
			want: "Xb",
		},
		{
			name: "tilde on block tags",
			tpl:  "a\n{{~#if t}} A {{/if~}} \nb",
			ctx:  map[string]any{"t": true},
			want: "a A b",
		},
		{
			name: "each with standalone tags",
			tpl:  "{{#each xs}}\n{{this}}\n{{/each}}\n",
			ctx:  map[string]any{"xs": []any{1, 2}},
			want: "1\n2\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderString(t, tc.tpl, tc.ctx)
			if got != tc.want {
				t.Fatalf("template %q:\ngot  %q\nwant %q", tc.tpl, got, tc.want)
			}
		})
	}
}
