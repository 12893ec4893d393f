// Package docservice coordinates the normalizer, the compliance checker and
// the run history for the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
	"github.com/starford/ansuz/internal/storage"
)

// Preview is a document as it would look after normalization.
type Preview struct {
	Outcome models.Outcome `json:"outcome"`
	Content string         `json:"content"`
}

// RunDetail is a recorded run with its document outcomes.
type RunDetail struct {
	Run       models.Run       `json:"run"`
	Documents []models.Outcome `json:"documents"`
}

// Service exposes document operations to the outer surfaces.
type Service struct {
	store   storage.Provider
	norm    *normalizer.Normalizer
	checker *compliance.Checker
	history history.Store // nil when history is disabled
}

// NewService creates a new document service. hist may be nil.
func NewService(store storage.Provider, norm *normalizer.Normalizer, checker *compliance.Checker, hist history.Store) *Service {
	return &Service{store: store, norm: norm, checker: checker, history: hist}
}

// Normalizer returns the underlying normalizer.
func (s *Service) Normalizer() *normalizer.Normalizer { return s.norm }

// NormalizeTree normalizes every document under dir (relative to the root).
func (s *Service) NormalizeTree(ctx context.Context, dir string, dryRun bool) (*normalizer.Result, error) {
	dir, err := cleanRel(dir, true)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		if info, statErr := s.store.Stat(dir); statErr != nil || !info.IsDir() {
			return nil, fmt.Errorf("docservice: %s: %w", dir, apperr.ErrDirectoryMissing)
		}
	}
	if dryRun {
		return s.norm.DryRun(ctx, dir)
	}
	return s.norm.Run(ctx, dir)
}

// NormalizeDocument normalizes a single document.
func (s *Service) NormalizeDocument(ctx context.Context, docPath string) (models.Outcome, error) {
	p, err := s.document(docPath)
	if err != nil {
		return models.Outcome{}, err
	}
	return s.norm.NormalizeFile(ctx, p), nil
}

// PreviewDocument returns the normalized content of a document without writing it.
func (s *Service) PreviewDocument(_ context.Context, docPath string) (*Preview, error) {
	p, err := s.document(docPath)
	if err != nil {
		return nil, err
	}
	content, o := s.norm.Preview(p)
	if o.Failed() {
		return nil, fmt.Errorf("docservice: preview %s: %w: %s", p, apperr.ErrFileUnreadable, o.Error)
	}
	return &Preview{Outcome: o, Content: content}, nil
}

// Check runs the structural-compliance check.
func (s *Service) Check(ctx context.Context) (*compliance.Report, error) {
	return s.checker.Check(ctx)
}

// Classify returns the document type for a path. The path need not exist.
func (s *Service) Classify(docPath string) models.DocType {
	return s.norm.Classify(docPath)
}

// ListRuns returns recent runs from the history.
func (s *Service) ListRuns(_ context.Context, limit int) ([]models.Run, error) {
	if s.history == nil {
		return nil, apperr.ErrHistoryDisabled
	}
	return s.history.ListRuns(limit)
}

// GetRun returns a recorded run with its document outcomes.
func (s *Service) GetRun(_ context.Context, id int64) (*RunDetail, error) {
	if s.history == nil {
		return nil, apperr.ErrHistoryDisabled
	}
	run, docs, err := s.history.GetRun(id)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: *run, Documents: docs}, nil
}

// document validates that docPath names an existing document in the tree.
func (s *Service) document(docPath string) (string, error) {
	p, err := cleanRel(docPath, false)
	if err != nil {
		return "", err
	}
	if !s.store.IsDocument(p) {
		return "", fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotDocument)
	}
	info, err := s.store.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotFound)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotDocument)
	}
	return p, nil
}

func cleanRel(p string, allowEmpty bool) (string, error) {
	p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" || p == "." {
		if allowEmpty {
			return "", nil
		}
		return "", fmt.Errorf("docservice: path is required: %w", apperr.ErrNotFound)
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("docservice: path escapes tree root: %w", apperr.ErrNotFound)
	}
	return p, nil
}
