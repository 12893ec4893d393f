// Package parser scans Markdown documents for titles, "@field value" metadata
// lines, the leading header block, and YAML frontmatter.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// fieldRe matches a metadata line such as "> @version 1.2.0" or " * @created 2024-01-02".
var fieldRe = regexp.MustCompile(`^\s*(?:[>*]\s*)*@([A-Za-z][A-Za-z0-9_-]*)(?:[ \t]+(.*?))?\s*$`)

// HeaderEndField is the field that closes a header block.
const HeaderEndField = "url"

// Header describes a header block found at the start of a document.
type Header struct {
	Title  string
	End    int // byte offset just past the block, including its trailing blank line
	Fields map[string]string
}

type line struct {
	text  string // without the line terminator
	start int
	end   int // offset just past the terminator
}

func splitLines(content string) []line {
	var out []line
	start := 0
	for start < len(content) {
		i := strings.IndexByte(content[start:], '\n')
		if i < 0 {
			out = append(out, line{text: strings.TrimSuffix(content[start:], "\r"), start: start, end: len(content)})
			break
		}
		end := start + i + 1
		out = append(out, line{text: strings.TrimSuffix(content[start:start+i], "\r"), start: start, end: end})
		start = end
	}
	return out
}

// LineEnding returns "\r\n" when most line breaks in content are CRLF and
// "\n" otherwise.
func LineEnding(content string) string {
	crlf := strings.Count(content, "\r\n")
	if crlf > 0 && crlf >= strings.Count(content, "\n")-crlf {
		return "\r\n"
	}
	return "\n"
}

// HeadingText returns the text of a top-level heading line ("# Title").
// Deeper headings ("## ...") and empty headings are rejected.
func HeadingText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '#' || (s[1] != ' ' && s[1] != '\t') {
		return "", false
	}
	text := strings.TrimSpace(s[1:])
	if text == "" {
		return "", false
	}
	return text, true
}

// FieldLine parses a single "@name value" line. Names are lower-cased.
func FieldLine(s string) (name, value string, ok bool) {
	m := fieldRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), m[2], true
}

func isFence(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}

// Title returns the first top-level heading outside fenced code blocks, or "".
func Title(content string) string {
	inFence := false
	for _, l := range splitLines(content) {
		if isFence(l.text) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if t, ok := HeadingText(l.text); ok {
			return t
		}
	}
	return ""
}

// Fields collects "@name value" lines outside fenced code blocks. The first
// non-empty value wins; a field that only ever appears without a value is
// still present with an empty value.
func Fields(content string) map[string]string {
	out := make(map[string]string)
	inFence := false
	for _, l := range splitLines(content) {
		if isFence(l.text) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		name, value, ok := FieldLine(l.text)
		if !ok {
			continue
		}
		if existing, seen := out[name]; !seen || (existing == "" && value != "") {
			out[name] = value
		}
	}
	return out
}

// LocateHeader finds a header block at the very start of content: a top-level
// heading on the first line, then only blank or blockquote lines up to the
// "@url" field, which must be followed by a blank line or the end of content.
func LocateHeader(content string) (Header, bool) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return Header{}, false
	}
	title, ok := HeadingText(lines[0].text)
	if !ok || strings.HasPrefix(lines[0].text, " ") {
		return Header{}, false
	}

	fields := make(map[string]string)
	for i := 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i].text)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ">") {
			return Header{}, false
		}
		name, value, ok := FieldLine(t)
		if !ok {
			continue
		}
		if _, seen := fields[name]; !seen {
			fields[name] = value
		}
		if name != HeaderEndField {
			continue
		}
		switch {
		case i+1 == len(lines):
			return Header{Title: title, End: lines[i].end, Fields: fields}, true
		case strings.TrimSpace(lines[i+1].text) == "":
			return Header{Title: title, End: lines[i+1].end, Fields: fields}, true
		default:
			return Header{}, false
		}
	}
	return Header{}, false
}

// StripLeadingTitle removes the first line of content when it is a top-level
// heading. Everything after that line is returned untouched.
func StripLeadingTitle(content string) string {
	lines := splitLines(content)
	if len(lines) == 0 {
		return content
	}
	if _, ok := HeadingText(lines[0].text); !ok || strings.HasPrefix(lines[0].text, " ") {
		return content
	}
	return content[lines[0].end:]
}

// SplitFrontmatter separates a leading YAML frontmatter block (between "---"
// delimiter lines) from the rest of the document. front holds the block
// verbatim, delimiters included. Invalid YAML is treated as no frontmatter.
func SplitFrontmatter(content string) (front, rest string, fm map[string]any) {
	const delim = "---"
	lines := splitLines(content)
	if len(lines) < 2 || lines[0].text != delim {
		return "", content, nil
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].text != delim {
			continue
		}
		block := content[lines[0].end:lines[i].start]
		if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
			return "", content, nil
		}
		return content[:lines[i].end], content[lines[i].end:], fm
	}
	return "", content, nil
}

// FrontmatterTitle returns the string "title" field of parsed frontmatter.
func FrontmatterTitle(fm map[string]any) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm["title"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
