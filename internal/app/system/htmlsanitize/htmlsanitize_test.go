package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/residencyhub/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Hello, World!", "Hello, World!"},
		{"safe html", "<p><strong>Bold</strong> and <em>italic</em></p>", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"script removed", "<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
		{"lists", "<ul><li>Item 1</li><li>Item 2</li></ul>", "<ul><li>Item 1</li><li>Item 2</li></ul>"},
		{"table", "<table><thead><tr><th>H</th></tr></thead><tbody><tr><td>C</td></tr></tbody></table>", "<table><thead><tr><th>H</th></tr></thead><tbody><tr><td>C</td></tr></tbody></table>"},
		{"code", "<pre><code>x := 1</code></pre>", "<pre><code>x := 1</code></pre>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_StripsDangerousMarkup(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		forbidden string
	}{
		{"onclick", `<button onclick="alert('xss')">Click</button>`, "onclick"},
		{"javascript href", `<a href="javascript:alert('xss')">Click</a>`, "javascript:"},
		{"iframe", `<p>Content</p><iframe src="https://evil.example"></iframe>`, "iframe"},
		{"style tag", `<style>body { color: red; }</style><p>Text</p>`, "<style>"},
		{"onerror", `<img src="x" onerror="alert('xss')">`, "onerror"},
		{"form", `<form action="/submit"><input type="text" name="data"></form>`, "<form"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tt.input)
			if strings.Contains(got, tt.forbidden) {
				t.Errorf("Sanitize(%q) = %q, still contains %q", tt.input, got, tt.forbidden)
			}
		})
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.com/slides">Slides</a>`)
	if !strings.Contains(got, "https://example.com/slides") {
		t.Errorf("expected link preserved, got %q", got)
	}
}

func TestSanitize_TableSpans(t *testing.T) {
	got := htmlsanitize.Sanitize(`<table><tr><td colspan="2" rowspan="2">Cell</td></tr></table>`)
	if !strings.Contains(got, `colspan="2"`) || !strings.Contains(got, `rowspan="2"`) {
		t.Errorf("expected colspan/rowspan preserved, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hello, World!", "<p>Hello, World!</p>"},
		{"Line 1\nLine 2\r\nLine 3", "<p>Line 1<br>Line 2<br>Line 3</p>"},
		{"A & B", "<p>A &amp; B</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PlainTextToHTML(tt.in); got != tt.want {
			t.Errorf("PlainTextToHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML_Escapes(t *testing.T) {
	got := htmlsanitize.PlainTextToHTML("<script>alert('xss')</script>")
	if strings.Contains(got, "<script>") {
		t.Errorf("expected markup escaped, got %q", got)
	}
}

func TestNotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"blank", "   ", ""},
		{"plain", "  Bring case files\nRoom 4 ", "<p>Bring case files<br>Room 4</p>"},
		{"markup", "<p>Hi</p><script>x()</script>", "<p>Hi</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Notes(tt.in); got != tt.want {
				t.Errorf("Notes(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"<p>Bring cases<br>Room 4</p>", "Bring cases\nRoom 4"},
		{"<p>A &amp; B</p><p>C</p>", "A & B\nC"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.ToText(tt.in); got != tt.want {
			t.Errorf("ToText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
