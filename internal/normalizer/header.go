package normalizer

import (
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

// DateLayout is the format of @created and @updated values.
const DateLayout = "2006-01-02"

// UntitledTitle is the title of a document whose name yields no title.
const UntitledTitle = "未命名文档"

// DefaultVersion is used when a document carries no @version field.
const DefaultVersion = "1.0.0"

// HeaderTemplate is the canonical header block. Slots in braces are filled by
// BuildHeader; the block always ends with a blank line.
const HeaderTemplate = "# {title}\n" +
	"\n" +
	"> **{banner}**\n" +
	">\n" +
	"> @project {project}\n" +
	"> @type {type}\n" +
	"> @version {version}\n" +
	"> @created {created}\n" +
	"> @updated {updated}\n" +
	"> @author {author}\n" +
	"> @url {url}\n" +
	"\n"

// Project identifies the documentation set. It is the same for every document
// in a run.
type Project struct {
	Name   string `yaml:"name" json:"name"`
	Banner string `yaml:"banner" json:"banner"`
	Author string `yaml:"author" json:"author"`
	URL    string `yaml:"url" json:"url"`
}

// Validate validates the project record.
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Author, validation.Required),
		validation.Field(&p.URL, validation.Required),
	)
}

// BuildHeader fills HeaderTemplate. Values are flattened to a single line.
func BuildHeader(p Project, m models.Metadata) string {
	r := strings.NewReplacer(
		"{title}", oneLine(m.Title),
		"{banner}", oneLine(p.Banner),
		"{project}", oneLine(p.Name),
		"{type}", oneLine(string(m.Type)),
		"{version}", oneLine(m.Version),
		"{created}", oneLine(m.Created),
		"{updated}", oneLine(m.Updated),
		"{author}", oneLine(p.Author),
		"{url}", oneLine(p.URL),
	)
	return r.Replace(HeaderTemplate)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractMetadata infers title, version and creation date from content. Each
// field is scanned independently; a missing field falls back to a default:
// the file name for the title, defaultVersion, and today's date.
func ExtractMetadata(content, docPath string, today time.Time, defaultVersion string) models.Metadata {
	_, rest, fm := parser.SplitFrontmatter(content)

	title := parser.Title(rest)
	if oneLine(title) == "" {
		title = parser.FrontmatterTitle(fm)
	}
	if oneLine(title) == "" {
		title = fileTitle(docPath)
	}

	fields := parser.Fields(rest)
	version := fields["version"]
	if version == "" {
		version = defaultVersion
	}
	created := fields["created"]
	if created == "" {
		created = today.Format(DateLayout)
	}

	return models.Metadata{
		Title:   title,
		Version: version,
		Created: created,
	}
}

// fileTitle never returns an empty title: an empty heading is not
// recognized as a header start, so it would be stamped again on every run.
func fileTitle(docPath string) string {
	base := path.Base(strings.ReplaceAll(docPath, "\\", "/"))
	if t := oneLine(strings.TrimSuffix(base, path.Ext(base))); t != "" {
		return t
	}
	return UntitledTitle
}
