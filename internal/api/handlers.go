package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ddlconv/ddlconv/internal/compare"
	"github.com/ddlconv/ddlconv/internal/ddl"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/ws"
)

// multipartMemory is the in-memory part of a parsed multipart form; larger
// uploads spill to temporary files.
const multipartMemory = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		errorResponse(w, http.StatusBadRequest, "no files in request")
		return
	}

	resp := UploadResponse{Uploaded: []engine.Upload{}, Skipped: []string{}}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.fail(w, r, err)
			return
		}

		up, skipped, err := s.engine.SaveUpload(fh.Filename, data)
		switch {
		case diag.KindOf(err) == diag.KindValidation:
			resp.Rejected = append(resp.Rejected, RejectedFile{Filename: fh.Filename, Reason: err.Error()})
		case err != nil:
			s.fail(w, r, err)
			return
		case skipped:
			resp.Skipped = append(resp.Skipped, up.Filename)
		default:
			resp.Uploaded = append(resp.Uploaded, up)
		}
	}

	resp.Message = fmt.Sprintf("%d file(s) uploaded", len(resp.Uploaded))
	if n := len(resp.Skipped); n > 0 {
		resp.Message += fmt.Sprintf(", %d already processed", n)
	}
	status := http.StatusOK
	if len(resp.Uploaded) == 0 && len(resp.Skipped) == 0 {
		status = http.StatusUnprocessableEntity
	}
	jsonResponse(w, status, resp)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Files) == 0 {
		errorResponse(w, http.StatusBadRequest, "no files to process")
		return
	}

	files := make([]engine.Upload, 0, len(req.Files))
	for _, f := range req.Files {
		up, err := s.engine.ResolveUpload(f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		files = append(files, up)
	}

	id, err := s.engine.StartJob(r.Context(), files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusAccepted, ProcessResponse{JobID: id, Message: "processing started"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.Job(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, err := s.engine.ArtifactPath(r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := path[strings.LastIndexAny(path, `/\`)+1:]
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.engine.Bundle(&buf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		errorResponse(w, http.StatusNotFound, "no files to download")
		return
	}

	name := fmt.Sprintf("ddl_converted_files_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("writing bundle", "error", err)
	}
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.Artifacts()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	jsonResponse(w, http.StatusOK, ArtifactsResponse{Artifacts: names})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, HistoryResponse{History: s.engine.History()})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearCache(); err != nil {
		s.fail(w, r, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastJSON(ws.MsgCacheCleared, nil)
	}
	jsonResponse(w, http.StatusOK, MessageResponse{Message: "cache cleared"})
}

// handleCompare reconciles an uploaded DDL against a prior configuration,
// either uploaded as the "prior" part or fetched from the registry when the
// "prior_registry" field is set.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	source, text, ok := s.readDDLPart(w, r)
	if !ok {
		return
	}

	var (
		prior     []byte
		priorName string
		err       error
	)
	if r.FormValue("prior_registry") != "" {
		extracted, xerr := ddl.ExtractWith(text, s.engine.Catalog)
		if xerr != nil {
			s.fail(w, r, xerr)
			return
		}
		priorName = "registry:" + registry.Key(extracted.Table.Name)
		prior, err = s.engine.LoadPrior(r.Context(), extracted.Table.Name)
	} else {
		priorName, prior, err = readPart(r, "prior")
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.engine.Reconcile(r.Context(), source, text, prior, priorName)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows := rec.Result.Report()
	removed := rec.Result.Columns(compare.Removed)
	if removed == nil {
		removed = []string{}
	}
	jsonResponse(w, http.StatusOK, CompareResponse{
		Table:   rec.Result.Table,
		Rows:    rows,
		Removed: removed,
		Counts:  rec.Result.Counts(),
		Report:  rec.Report,
		CSV:     rec.CSVPath,
	})
}

// handleGenerate synthesizes a configuration from an uploaded DDL and a
// curated dictionary, with an optional prior configuration for audit field
// inheritance.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	source, text, ok := s.readDDLPart(w, r)
	if !ok {
		return
	}
	_, dict, err := readPart(r, "dictionary")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var prior []byte
	if len(r.MultipartForm.File["prior"]) > 0 {
		if _, prior, err = readPart(r, "prior"); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	out, err := s.engine.Generate(r.Context(), source, text, dict, prior)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := out.Document.EncodeJSON()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, GenerateResponse{
		Table:    out.TableName(),
		JSON:     out.JSONPath,
		Warnings: out.Warnings,
		Document: json.RawMessage(doc),
	})
}

func (s *Server) handleRegistryList(w http.ResponseWriter, r *http.Request) {
	if s.engine.Registry == nil {
		errorResponse(w, http.StatusNotFound, "no registry configured")
		return
	}
	records, err := s.engine.Registry.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []registry.Record{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"records": records})
}

// readDDLPart reads and decodes the "ddl" part. It writes the error response
// itself and reports whether the handler may continue.
func (s *Server) readDDLPart(w http.ResponseWriter, r *http.Request) (source, text string, ok bool) {
	source, data, err := readPart(r, "ddl")
	if err != nil {
		s.fail(w, r, err)
		return "", "", false
	}
	text, err = engine.DecodeText(data)
	if err != nil {
		s.fail(w, r, err)
		return "", "", false
	}
	return source, text, true
}

// readPart returns the file name and content of a multipart file part.
func readPart(r *http.Request, field string) (string, []byte, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, diag.Validationf(field, 0, "missing file part %q", field)
	}
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", field, err)
	}
	return fh.Filename, data, nil
}

// limitBody caps the request body at the configured upload limit plus room
// for the multipart framing.
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	limit := s.engine.Config.Server.MaxUploadBytes
	if limit <= 0 {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit*4+1<<20)
}
