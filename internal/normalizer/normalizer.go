// Package normalizer brings the header block of every document in a tree to
// the canonical template while leaving document bodies intact.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Mode selects what happens to a document that already carries a header.
type Mode string

const (
	// ModeRefresh rebuilds an existing header, keeping @version and @created
	// and stamping @updated with today's date.
	ModeRefresh Mode = "refresh"
	// ModeSkip leaves documents already stamped with the project's @project
	// field untouched.
	ModeSkip Mode = "skip"
)

// Replacement is a literal substitution applied to every rewritten document.
type Replacement struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Validate rejects replacements that would not converge: a replacement whose
// target contains its source rewrites the document again on every run.
func (r Replacement) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.By(func(any) error {
			if r.From != "" && strings.Contains(r.To, r.From) {
				return errors.New("must not contain the replaced text")
			}
			return nil
		})),
	)
}

// Config holds the normalization policy.
type Config struct {
	Project        Project
	Mode           Mode
	DefaultVersion string
	Rules          []Rule
	Replacements   []Replacement
	DryRun         bool
}

// Recorder persists run results. Recording errors are logged and ignored.
type Recorder interface {
	BeginRun(root, mode string, started time.Time) (int64, error)
	RecordOutcome(runID int64, o models.Outcome) error
	FinishRun(runID int64, finished time.Time, s models.Summary) error
}

// Result is the outcome of a full run.
type Result struct {
	RunID    int64            `json:"run_id,omitempty"`
	Summary  models.Summary   `json:"summary"`
	Outcomes []models.Outcome `json:"outcomes"`
}

// Normalizer rewrites document headers in a storage tree.
type Normalizer struct {
	store     storage.Provider
	cfg       Config
	replacer  *strings.Replacer
	logger    *slog.Logger
	now       func() time.Time
	recorder  Recorder
	observers []func(models.Outcome)
	onRun     []func(*Result)

	// mu serializes document processing between callers (CLI run, watcher, API).
	mu sync.Mutex
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithClock overrides the time source used for @created and @updated.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithRecorder sets the run recorder.
func WithRecorder(r Recorder) Option {
	return func(n *Normalizer) { n.recorder = r }
}

// WithObserver registers a callback invoked after each processed document.
func WithObserver(fn func(models.Outcome)) Option {
	return func(n *Normalizer) { n.observers = append(n.observers, fn) }
}

// WithRunObserver registers a callback invoked once a full run ends,
// including an interrupted one.
func WithRunObserver(fn func(*Result)) Option {
	return func(n *Normalizer) { n.onRun = append(n.onRun, fn) }
}

// New creates a Normalizer over store.
func New(store storage.Provider, cfg Config, opts ...Option) *Normalizer {
	if cfg.Mode == "" {
		cfg.Mode = ModeRefresh
	}
	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = DefaultVersion
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	n := &Normalizer{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	var pairs []string
	for _, r := range cfg.Replacements {
		if r.From != "" {
			pairs = append(pairs, r.From, r.To)
		}
	}
	if len(pairs) > 0 {
		n.replacer = strings.NewReplacer(pairs...)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Config returns the normalization policy.
func (n *Normalizer) Config() Config { return n.cfg }

// Classify returns the document type for a tree path.
func (n *Normalizer) Classify(docPath string) models.DocType {
	return Classify(docPath, n.cfg.Rules)
}

// Apply computes the normalized content of a document without touching
// storage. Optional YAML frontmatter stays in front of the header.
func (n *Normalizer) Apply(docPath, content string) (string, models.Metadata, models.Status) {
	today := n.now().Format(DateLayout)
	front, rest, _ := parser.SplitFrontmatter(content)

	meta := ExtractMetadata(content, docPath, n.now(), n.cfg.DefaultVersion)
	meta.Type = n.Classify(docPath)
	meta.Updated = today

	var body string
	if h, ok := parser.LocateHeader(rest); ok {
		if n.cfg.Mode == ModeSkip && h.Fields["project"] == n.cfg.Project.Name {
			meta.Updated = h.Fields["updated"]
			if t, ok := h.Fields["type"]; ok && t != "" {
				meta.Type = models.DocType(t)
			}
			return content, meta, models.StatusSkipped
		}
		body = rest[h.End:]
	} else {
		body = parser.StripLeadingTitle(rest)
	}

	header := BuildHeader(n.cfg.Project, meta)
	if eol := parser.LineEnding(rest); eol != "\n" {
		header = strings.ReplaceAll(header, "\n", eol)
	}
	out := front + header + body
	if n.replacer != nil {
		out = n.replacer.Replace(out)
	}
	if out == content {
		return content, meta, models.StatusUnchanged
	}
	return out, meta, models.StatusUpdated
}

// Preview returns the content a document would have after normalization.
func (n *Normalizer) Preview(docPath string) (string, models.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	f, err := n.store.Read(docPath)
	if err != nil {
		return "", failed(docPath, err)
	}
	out, meta, status := n.Apply(docPath, f.Content)
	return out, models.Outcome{
		Path:           docPath,
		Status:         status,
		Metadata:       meta,
		ChecksumBefore: checksum.Sum(f.Raw),
	}
}

// NormalizeFile processes a single document.
func (n *Normalizer) NormalizeFile(_ context.Context, docPath string) models.Outcome {
	n.mu.Lock()
	o := n.normalize(docPath, n.cfg.DryRun)
	n.mu.Unlock()
	n.notify(o)
	return o
}

// Run processes every document discovered under dir. Document failures are
// counted, never returned; the only error is context cancellation, in which
// case the partial result is returned as well.
func (n *Normalizer) Run(ctx context.Context, dir string) (*Result, error) {
	return n.run(ctx, dir, n.cfg.DryRun)
}

// DryRun computes the outcomes of Run without writing any document.
func (n *Normalizer) DryRun(ctx context.Context, dir string) (*Result, error) {
	return n.run(ctx, dir, true)
}

func (n *Normalizer) run(ctx context.Context, dir string, dryRun bool) (*Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := &Result{Summary: models.Summary{DryRun: dryRun}}
	res.RunID = n.beginRun(dir)

	n.logger.Info("normalize: run started",
		slog.String("root", n.store.Root()),
		slog.String("dir", dir),
		slog.String("mode", string(n.cfg.Mode)),
		slog.Bool("dry_run", dryRun))

	for p, walkErr := range n.store.Discover(dir) {
		if err := ctx.Err(); err != nil {
			n.finishRun(res)
			return res, fmt.Errorf("normalize: interrupted after %d documents: %w", res.Summary.Processed, err)
		}
		var o models.Outcome
		if walkErr != nil {
			n.logger.Warn("normalize: walk failed", slog.String("path", p), slog.String("error", walkErr.Error()))
			o = failed(p, walkErr)
		} else {
			o = n.normalize(p, dryRun)
		}
		res.Summary.Add(o)
		res.Outcomes = append(res.Outcomes, o)
		n.record(res.RunID, o)
		n.notify(o)
	}

	n.finishRun(res)
	n.logger.Info("normalize: run finished",
		slog.Int("processed", res.Summary.Processed),
		slog.Int("updated", res.Summary.Updated),
		slog.Int("failed", res.Summary.Failed))
	return res, nil
}

// normalize reads, rewrites and writes one document. Callers hold n.mu.
func (n *Normalizer) normalize(docPath string, dryRun bool) models.Outcome {
	f, err := n.store.Read(docPath)
	if err != nil {
		n.logger.Warn("normalize: read failed", slog.String("path", docPath), slog.String("error", err.Error()))
		return failed(docPath, err)
	}
	out, meta, status := n.Apply(docPath, f.Content)
	o := models.Outcome{
		Path:           docPath,
		Status:         status,
		Metadata:       meta,
		ChecksumBefore: checksum.Sum(f.Raw),
		ChecksumAfter:  checksum.Sum(f.Raw),
	}
	if status != models.StatusUpdated || dryRun {
		n.logger.Debug("normalize: no write", slog.String("path", docPath), slog.String("status", string(status)))
		return o
	}
	if err := n.store.Write(docPath, out, f.Encoding); err != nil {
		n.logger.Warn("normalize: write failed", slog.String("path", docPath), slog.String("error", err.Error()))
		o.Status = models.StatusFailed
		o.Error = err.Error()
		return o
	}
	if data, err := storage.Encode(out, f.Encoding); err == nil {
		o.ChecksumAfter = checksum.Sum(data)
	}
	n.logger.Debug("normalize: updated", slog.String("path", docPath), slog.String("type", string(meta.Type)))
	return o
}

func failed(docPath string, err error) models.Outcome {
	return models.Outcome{Path: docPath, Status: models.StatusFailed, Error: err.Error()}
}

func (n *Normalizer) notify(o models.Outcome) {
	for _, fn := range n.observers {
		fn(o)
	}
}

func (n *Normalizer) beginRun(dir string) int64 {
	if n.recorder == nil {
		return 0
	}
	root := n.store.Root()
	if dir != "" {
		root = root + "/" + dir
	}
	id, err := n.recorder.BeginRun(root, string(n.cfg.Mode), n.now())
	if err != nil {
		n.logger.Warn("history: begin run failed", slog.String("error", err.Error()))
		return 0
	}
	return id
}

func (n *Normalizer) record(runID int64, o models.Outcome) {
	if n.recorder == nil || runID == 0 {
		return
	}
	if err := n.recorder.RecordOutcome(runID, o); err != nil {
		n.logger.Warn("history: record outcome failed", slog.String("path", o.Path), slog.String("error", err.Error()))
	}
}

func (n *Normalizer) finishRun(res *Result) {
	for _, fn := range n.onRun {
		fn(res)
	}
	if n.recorder == nil || res.RunID == 0 {
		return
	}
	if err := n.recorder.FinishRun(res.RunID, n.now(), res.Summary); err != nil {
		n.logger.Warn("history: finish run failed", slog.String("error", err.Error()))
	}
}
