package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const stamped = "# System Design\n\n> **Docs**\n>\n> @project Acme\n> @type architecture\n> @version 2.1.0\n> @created 2024-03-01\n> @updated 2024-03-02\n> @author Acme Team\n> @url https://example.com\n\nBody text.\n"

func TestHeadingText(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"# Title", "Title", true},
		{"#\tTabbed", "Tabbed", true},
		{"#  Padded  ", "Padded", true},
		{"## Sub", "", false},
		{"#NoSpace", "", false},
		{"# ", "", false},
		{"plain", "", false},
	}
	for _, c := range cases {
		got, ok := HeadingText(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("HeadingText(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestTitle_SkipsFencedCode(t *testing.T) {
	content := "intro\n```bash\n# not a title\n```\n# Real Title\n"
	if got := Title(content); got != "Real Title" {
		t.Errorf("title = %q, want %q", got, "Real Title")
	}
}

func TestTitle_None(t *testing.T) {
	if got := Title("no heading\n## only h2\n"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}

func TestFields_FirstNonEmptyWins(t *testing.T) {
	content := "> @version\n> @version 1.2.0\n * @created 2024-01-02\n@version 9.9.9\n"
	got := Fields(content)
	want := map[string]string{"version": "1.2.0", "created": "2024-01-02"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFields_IgnoresCodeBlocks(t *testing.T) {
	content := "```js\n/**\n * @version 3.0.0\n */\n```\n"
	if got := Fields(content); len(got) != 0 {
		t.Errorf("expected no fields, got %v", got)
	}
}

func TestFields_EmptyValueStillPresent(t *testing.T) {
	got := Fields("> @url\n")
	v, ok := got["url"]
	if !ok || v != "" {
		t.Errorf("url = %q, %v; want present and empty", v, ok)
	}
}

func TestLocateHeader_Stamped(t *testing.T) {
	h, ok := LocateHeader(stamped)
	if !ok {
		t.Fatal("expected header")
	}
	if h.Title != "System Design" {
		t.Errorf("title = %q", h.Title)
	}
	if got := stamped[h.End:]; got != "Body text.\n" {
		t.Errorf("rest = %q, want %q", got, "Body text.\n")
	}
	if h.Fields["version"] != "2.1.0" || h.Fields["created"] != "2024-03-01" {
		t.Errorf("fields = %v", h.Fields)
	}
	if _, ok := h.Fields["project"]; !ok {
		t.Error("expected @project field")
	}
}

func TestLocateHeader_AtEndOfContent(t *testing.T) {
	content := "# T\n\n> @url https://x"
	h, ok := LocateHeader(content)
	if !ok {
		t.Fatal("expected header")
	}
	if h.End != len(content) {
		t.Errorf("end = %d, want %d", h.End, len(content))
	}
}

func TestLocateHeader_CRLF(t *testing.T) {
	content := "# T\r\n\r\n> @url https://x\r\n\r\nBody\r\n"
	h, ok := LocateHeader(content)
	if !ok {
		t.Fatal("expected header")
	}
	if got := content[h.End:]; got != "Body\r\n" {
		t.Errorf("rest = %q", got)
	}
}

func TestLocateHeader_Rejects(t *testing.T) {
	cases := map[string]string{
		"no heading":             "Intro\n> @url x\n\n",
		"paragraph before url":   "# T\n\nParagraph\n\n> @url x\n\n",
		"url not followed blank": "# T\n> @url x\nBody\n",
		"no url":                 "# T\n\n> @project x\n\nBody\n",
		"h2 start":               "## T\n> @url x\n\n",
		"empty":                  "",
	}
	for name, content := range cases {
		if _, ok := LocateHeader(content); ok {
			t.Errorf("%s: expected no header", name)
		}
	}
}

func TestStripLeadingTitle(t *testing.T) {
	if got := StripLeadingTitle("# System Design\n\nBody text."); got != "\nBody text." {
		t.Errorf("got %q", got)
	}
	if got := StripLeadingTitle("Intro\n# Title\n"); got != "Intro\n# Title\n" {
		t.Errorf("non-leading heading should stay, got %q", got)
	}
	if got := StripLeadingTitle("# Only"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	content := "---\ntitle: From FM\ntags: [a]\n---\n# Heading\nBody\n"
	front, rest, fm := SplitFrontmatter(content)
	if front != "---\ntitle: From FM\ntags: [a]\n---\n" {
		t.Errorf("front = %q", front)
	}
	if rest != "# Heading\nBody\n" {
		t.Errorf("rest = %q", rest)
	}
	if FrontmatterTitle(fm) != "From FM" {
		t.Errorf("frontmatter title = %q", FrontmatterTitle(fm))
	}
	if front+rest != content {
		t.Error("front+rest must reproduce content")
	}
}

func TestSplitFrontmatter_InvalidYAMLFallback(t *testing.T) {
	content := "---\n: invalid: yaml: {{{\n---\nBody\n"
	front, rest, fm := SplitFrontmatter(content)
	if front != "" || rest != content || fm != nil {
		t.Errorf("expected fallback, got front=%q fm=%v", front, fm)
	}
}

func TestSplitFrontmatter_Unclosed(t *testing.T) {
	content := "---\ntitle: x\nBody\n"
	if front, rest, _ := SplitFrontmatter(content); front != "" || rest != content {
		t.Errorf("unclosed frontmatter should be body, got front=%q", front)
	}
}

func TestLineEnding(t *testing.T) {
	cases := map[string]string{
		"":              "\n",
		"one line":      "\n",
		"a\nb\n":        "\n",
		"a\r\nb\r\n":    "\r\n",
		"a\r\nb\r\nc\n": "\r\n",
		"a\nb\nc\r\n":   "\n",
	}
	for in, want := range cases {
		if got := LineEnding(in); got != want {
			t.Errorf("LineEnding(%q) = %q, want %q", in, got, want)
		}
	}
}
