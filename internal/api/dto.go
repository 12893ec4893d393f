package api

import (
	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
)

// NormalizeRequest is the request body for POST /api/normalize.
type NormalizeRequest struct {
	Dir    string `json:"dir" example:"docs/architecture"`
	DryRun bool   `json:"dry_run"`
}

// NormalizeResponse is the result of a tree normalization.
type NormalizeResponse = normalizer.Result

// OutcomeResponse is the result of a single-document normalization.
type OutcomeResponse = models.Outcome

// PreviewResponse is a document as it would look after normalization.
type PreviewResponse = docservice.Preview

// CheckResponse is the compliance report.
type CheckResponse = compliance.Report

// ClassifyResponse is the classification of a path.
type ClassifyResponse struct {
	Path string         `json:"path" example:"docs/api/overview.md"`
	Type models.DocType `json:"type" example:"api-reference"`
}

// RunListResponse wraps recorded runs.
type RunListResponse struct {
	Runs []models.Run `json:"runs"`
}

// RunDetailResponse is a recorded run with its document outcomes.
type RunDetailResponse = docservice.RunDetail
