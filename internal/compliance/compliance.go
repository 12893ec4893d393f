// Package compliance verifies that a documentation tree follows the prescribed
// layout: section directories, required documents, and required header fields.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Kind classifies an issue.
type Kind string

const (
	KindDirectoryMissing Kind = "directory_missing"
	KindDocumentMissing  Kind = "document_missing"
	KindFieldMissing     Kind = "field_missing"
	KindFileUnreadable   Kind = "file_unreadable"
)

// Section is a required directory under the docs directory with the
// documents it must contain.
type Section struct {
	Dir   string   `yaml:"dir" json:"dir"`
	Files []string `yaml:"files" json:"files"`
}

// Validate validates a section.
func (s Section) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Dir, validation.Required),
		validation.Field(&s.Files, validation.Each(validation.Required)),
	)
}

// Config describes the prescribed layout.
type Config struct {
	DocsDir        string    `yaml:"docs_dir" json:"docs_dir"`
	Sections       []Section `yaml:"sections" json:"sections"`
	RequiredFields []string  `yaml:"required_fields" json:"required_fields"`
}

// Validate validates the layout configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DocsDir, validation.Required),
		validation.Field(&c.Sections),
		validation.Field(&c.RequiredFields, validation.Required, validation.Each(validation.Required)),
	)
}

// DefaultSections returns the built-in section layout.
func DefaultSections() []Section {
	return []Section{
		{Dir: "getting-started", Files: []string{"README.md", "project-summary-report.md"}},
		{Dir: "architecture", Files: []string{"技术架构文档.md", "技术选型与依赖管理.md"}},
		{Dir: "development", Files: []string{"前端界面设计规范.md", "开发规范与最佳实践.md"}},
		{Dir: "api-reference", Files: []string{"API架构设计文档.md"}},
		{Dir: "deployment", Files: []string{"运维部署与监控文档.md"}},
		{Dir: "testing", Files: []string{"testing-strategy.md"}},
	}
}

// DefaultRequiredFields returns the header fields every document must carry.
func DefaultRequiredFields() []string {
	return []string{"project", "type", "version", "created", "updated", "author", "url"}
}

// DefaultConfig returns the built-in layout rooted at "docs".
func DefaultConfig() Config {
	return Config{
		DocsDir:        "docs",
		Sections:       DefaultSections(),
		RequiredFields: DefaultRequiredFields(),
	}
}

// Issue is a single compliance finding.
type Issue struct {
	Kind    Kind     `json:"kind"`
	Path    string   `json:"path"`
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// Report lists every issue found by a check.
type Report struct {
	Root   string  `json:"root"`
	Issues []Issue `json:"issues"`
}

// OK reports whether the tree is compliant.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Err returns apperr.ErrNonCompliant wrapped with the issue count, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("compliance: %d issues: %w", len(r.Issues), apperr.ErrNonCompliant)
}

// Checker runs structural-compliance checks. It never modifies the tree.
type Checker struct {
	store  storage.Provider
	cfg    Config
	logger *slog.Logger
}

// New creates a Checker. Empty config fields fall back to the defaults.
func New(store storage.Provider, cfg Config, logger *slog.Logger) *Checker {
	if cfg.DocsDir == "" {
		cfg.DocsDir = "docs"
	}
	if cfg.Sections == nil {
		cfg.Sections = DefaultSections()
	}
	if cfg.RequiredFields == nil {
		cfg.RequiredFields = DefaultRequiredFields()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{store: store, cfg: cfg, logger: logger}
}

// Check accumulates issues in order: missing directories, missing documents,
// missing header fields and unreadable documents. A missing docs directory
// ends the check after the first issue.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	rep := &Report{Root: c.store.Root(), Issues: []Issue{}}
	docsDir := path.Clean(c.cfg.DocsDir)

	if !c.isDir(docsDir) {
		rep.add(Issue{
			Kind:    KindDirectoryMissing,
			Path:    docsDir,
			Message: "missing docs directory " + docsDir,
		})
		return rep, nil
	}

	present := make(map[string]bool, len(c.cfg.Sections))
	for _, s := range c.cfg.Sections {
		dir := path.Join(docsDir, s.Dir)
		present[s.Dir] = c.isDir(dir)
		if !present[s.Dir] {
			rep.add(Issue{Kind: KindDirectoryMissing, Path: dir, Message: "missing section directory " + dir})
		}
	}

	for _, s := range c.cfg.Sections {
		if !present[s.Dir] {
			continue
		}
		for _, f := range s.Files {
			p := path.Join(docsDir, s.Dir, f)
			if _, err := c.store.Stat(p); err != nil {
				rep.add(Issue{Kind: KindDocumentMissing, Path: p, Message: "missing required document " + p})
			}
		}
	}

	for p, err := range c.store.Discover(docsDir) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, fmt.Errorf("compliance: check interrupted: %w", ctxErr)
		}
		if err != nil {
			rep.add(Issue{Kind: KindFileUnreadable, Path: p, Message: err.Error()})
			continue
		}
		c.checkFields(rep, p)
	}

	c.logger.Info("check: finished",
		slog.String("root", rep.Root),
		slog.Int("issues", len(rep.Issues)))
	return rep, nil
}

func (c *Checker) checkFields(rep *Report, p string) {
	f, err := c.store.Read(p)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			msg = "document disappeared during check: " + p
		}
		rep.add(Issue{Kind: KindFileUnreadable, Path: p, Message: msg})
		return
	}
	fields := parser.Fields(f.Content)
	var missing []string
	for _, name := range c.cfg.RequiredFields {
		if _, ok := fields[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		rep.add(Issue{
			Kind:    KindFieldMissing,
			Path:    p,
			Fields:  missing,
			Message: fmt.Sprintf("%s lacks header fields @%s", p, strings.Join(missing, ", @")),
		})
	}
}

func (c *Checker) isDir(p string) bool {
	info, err := c.store.Stat(p)
	return err == nil && info.IsDir()
}

func (r *Report) add(i Issue) {
	r.Issues = append(r.Issues, i)
}
