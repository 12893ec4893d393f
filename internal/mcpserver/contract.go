package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
)

// HeaderFormatURI is the resource URI of the header contract.
const HeaderFormatURI = "ansuz://header-format"

const contractIntro = `# Document Header Contract

Every Markdown document in the tree starts with a header block. The block is
rebuilt by the normalizer; edit the body, not the header.

## Structure

`

const contractRules = `
## Rules

1. The header is the first thing in the file. Optional YAML frontmatter may
   precede it and is kept as is.
2. The first line is a single top-level heading (` + "`# Title`" + `); it holds the document title.
3. Every line between the title and ` + "`@url`" + ` is blank or starts with ` + "`>`" + `.
4. ` + "`@url`" + ` closes the block and is followed by one blank line.
5. ` + "`@version`" + ` and ` + "`@created`" + ` are kept once set; ` + "`@updated`" + ` is the date of the last
   normalization (YYYY-MM-DD).
6. ` + "`@type`" + ` is derived from the document path; see the classification table.
`

// HeaderContract renders the header contract for the configured project,
// classification rules and required fields.
func HeaderContract(p normalizer.Project, rules []normalizer.Rule, required []string) string {
	var b strings.Builder
	b.WriteString(contractIntro)

	example := normalizer.BuildHeader(p, exampleMetadata())
	b.WriteString("```markdown\n")
	b.WriteString(example)
	b.WriteString("Body text in standard Markdown.\n```\n")
	b.WriteString(contractRules)

	b.WriteString("\n## Classification\n\nThe first rule with a keyword contained in the lower-cased path wins.\n\n")
	b.WriteString("| type | path keywords |\n|---|---|\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "| %s | %s |\n", r.Type, strings.Join(r.Keywords, ", "))
	}
	b.WriteString("| technical-document | (no match) |\n")

	if len(required) > 0 {
		b.WriteString("\n## Required fields\n\n")
		for _, f := range required {
			fmt.Fprintf(&b, "- `@%s`\n", f)
		}
	}
	return b.String()
}

func exampleMetadata() models.Metadata {
	return models.Metadata{
		Title:   "System Design",
		Type:    "architecture",
		Version: normalizer.DefaultVersion,
		Created: "2025-01-15",
		Updated: "2025-01-20",
	}
}
