package api

import (
	"encoding/json"

	"github.com/ddlconv/ddlconv/internal/compare"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/dictionary"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/report"
	"github.com/ddlconv/ddlconv/internal/state"
)

// UploadResponse is the response of POST /api/upload.
type UploadResponse struct {
	Uploaded []engine.Upload `json:"uploaded_files"`
	Skipped  []string        `json:"skipped_files"`
	Rejected []RejectedFile  `json:"rejected_files,omitempty"`
	Message  string          `json:"message"`
}

// RejectedFile is an upload refused by the extension or size rules.
type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ProcessRequest is the request body of POST /api/process.
type ProcessRequest struct {
	Files []engine.Upload `json:"files"`
}

// ProcessResponse is the response of POST /api/process.
type ProcessResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// HistoryResponse is the response of GET /api/history.
type HistoryResponse struct {
	History []state.Entry `json:"history"`
}

// CompareResponse is the response of POST /api/compare.
type CompareResponse struct {
	Table   string                   `json:"table"`
	Rows    []dictionary.Entry       `json:"rows"`
	Removed []string                 `json:"removed"`
	Counts  compare.Counts           `json:"counts"`
	Report  *report.ComparisonReport `json:"report"`
	CSV     string                   `json:"csv"`
}

// GenerateResponse is the response of POST /api/generate.
type GenerateResponse struct {
	Table    string          `json:"table"`
	JSON     string          `json:"json"`
	Warnings []diag.Warning  `json:"warnings,omitempty"`
	Document json.RawMessage `json:"document"`
}

// ArtifactsResponse is the response of GET /api/artifacts.
type ArtifactsResponse struct {
	Artifacts []string `json:"artifacts"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
