package logview_test

import (
	"html/template"
	"testing"

	"admin-history/internal/logview"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want template.HTML
	}{
		{
			name: "not json",
			in:   "not valid json",
			want: "not valid json",
		},
		{
			name: "plain text is escaped",
			in:   "Changed <b>title</b>.",
			want: "Changed &lt;b&gt;title&lt;/b&gt;.",
		},
		{
			name: "broken json falls back to text",
			in:   `[{"changed": `,
			want: `[{&#34;changed&#34;: `,
		},
		{
			name: "empty list",
			in:   `[]`,
			want: ``,
		},
		{
			name: "summary",
			in:   `[{"changed": {"fields": ["Title", "Pages"]}}]`,
			want: `<table border="1"><thead><tr><th>changed</th></tr></thead><tbody><tr><td>` +
				`<table border="1"><tr><th>fields</th><td><ul><li>Title</li><li>Pages</li></ul></td></tr></table>` +
				`</td></tr></tbody></table>`,
		},
		{
			name: "keys keep their order",
			in:   `[{"title": {"old": {"value": "a"}, "new": {"value": null}}}, {"added": {}}]`,
			want: `<ul><li><table border="1"><tr><th>title</th><td><table border="1">` +
				`<tr><th>old</th><td><table border="1"><tr><th>value</th><td>a</td></tr></table></td></tr>` +
				`<tr><th>new</th><td><table border="1"><tr><th>value</th><td>null</td></tr></table></td></tr>` +
				`</table></td></tr></table></li>` +
				`<li><table border="1"><tr><th>added</th><td></td></tr></table></li></ul>`,
		},
		{
			name: "values are escaped",
			in:   `[{"<k>": "<script>"}]`,
			want: `<table border="1"><thead><tr><th>&lt;k&gt;</th></tr></thead><tbody><tr><td>&lt;script&gt;</td></tr></tbody></table>`,
		},
		{
			name: "numbers",
			in:   `[1, 2.5]`,
			want: `<ul><li>1</li><li>2.5</li></ul>`,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := logview.Render(tc.in); got != tc.want {
				t.Fatalf("Render(%q)\n got: %s\nwant: %s", tc.in, got, tc.want)
			}
		})
	}
}
