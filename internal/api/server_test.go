package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/logging"
	"github.com/ddlconv/ddlconv/internal/registry"
)

const clienteDDL = `CREATE TABLE DB2ADM.TBCLIENTE
  (CD_CLIENTE  INTEGER NOT NULL,
   NM_CLIENTE  VARCHAR(120) NOT NULL,
   DT_CADASTRO DATE)
  IN DBCLI.TSCLI;

LABEL ON DB2ADM.TBCLIENTE
  (CD_CLIENTE  IS 'Codigo do cliente',
   NM_CLIENTE  IS 'Nome do cliente');
`

// clienteV2 drops DT_CADASTRO and adds DS_EMAIL.
const clienteV2 = `CREATE TABLE DB2ADM.TBCLIENTE
  (CD_CLIENTE  INTEGER NOT NULL,
   NM_CLIENTE  VARCHAR(120) NOT NULL,
   DS_EMAIL    VARCHAR(200))
  IN DBCLI.TSCLI;
`

func newTestServer(t *testing.T, opts ...Option) (*Server, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Directory = filepath.Join(dir, "output")
	cfg.Output.UploadDirectory = filepath.Join(dir, "uploads")
	eng, err := engine.New(cfg, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(eng, logging.Discard(), 0, opts...), eng
}

type part struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, target string, parts []part, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(p.content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]string](t, w)["status"]; got != "ok" {
		t.Errorf("status = %q", got)
	}
}

func TestUploadProcessDownload(t *testing.T) {
	s, eng := newTestServer(t)

	w := serve(s, multipartRequest(t, "/api/upload", []part{
		{"files", "cliente.txt", clienteDDL},
		{"files", "notes.pdf", "nope"},
	}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body)
	}
	up := decode[UploadResponse](t, w)
	if len(up.Uploaded) != 1 || up.Uploaded[0].Filename != "cliente.txt" {
		t.Fatalf("uploaded = %+v", up.Uploaded)
	}
	if len(up.Rejected) != 1 || up.Rejected[0].Filename != "notes.pdf" {
		t.Errorf("rejected = %+v", up.Rejected)
	}

	body, _ := json.Marshal(ProcessRequest{Files: up.Uploaded})
	w = serve(s, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("process status = %d: %s", w.Code, w.Body)
	}
	proc := decode[ProcessResponse](t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := eng.WaitJob(ctx, proc.JobID); err != nil {
		t.Fatalf("WaitJob: %v", err)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/status/"+proc.JobID, nil))
	job := decode[engine.Job](t, w)
	if job.Status != engine.JobCompleted || job.Completed != 1 || len(job.Results) != 1 {
		t.Fatalf("job = %+v", job)
	}
	res := job.Results[0]
	if res.Table != "TBCLIENTE" || res.Columns != 3 {
		t.Errorf("result = %+v", res)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/download/"+res.JSON, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), `"TBCLIENTE"`) {
		t.Errorf("download body = %s", w.Body)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "tbcliente.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/download-all", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download-all status = %d", w.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("zip entries = %d, want 2", len(zr.File))
	}

	// Same content again is skipped.
	w = serve(s, multipartRequest(t, "/api/upload", []part{{"files", "copy.txt", clienteDDL}}, nil))
	up = decode[UploadResponse](t, w)
	if len(up.Skipped) != 1 || len(up.Uploaded) != 0 {
		t.Errorf("second upload = %+v", up)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if hist := decode[HistoryResponse](t, w); len(hist.History) != 1 {
		t.Errorf("history = %+v", hist.History)
	}
}

func TestUploadAllRejected(t *testing.T) {
	s, _ := newTestServer(t)
	w := serve(s, multipartRequest(t, "/api/upload", []part{{"files", "x.exe", "MZ"}}, nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	s, _ := newTestServer(t)
	w := serve(s, multipartRequest(t, "/api/upload", nil, map[string]string{"x": "y"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProcessUnknownUpload(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"files":[{"filename":"ghost.txt","path":"/etc/passwd"}]}`
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(body)))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown job", http.MethodGet, "/api/status/nope", http.StatusNotFound},
		{"missing artifact", http.MethodGet, "/api/download/json/none.json", http.StatusNotFound},
		{"empty bundle", http.MethodGet, "/api/download-all", http.StatusNotFound},
		{"no registry", http.MethodGet, "/api/registry", http.StatusNotFound},
		{"bad process body", http.MethodPost, "/api/process", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{")))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestCompareWithUploadedPrior(t *testing.T) {
	s, eng := newTestServer(t)
	out, err := eng.Convert(context.Background(), "cliente.txt", clienteDDL)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	prior, err := eng.ReadArtifact(out.JSONPath)
	if err != nil {
		t.Fatal(err)
	}

	w := serve(s, multipartRequest(t, "/api/compare", []part{
		{"ddl", "cliente_v2.txt", clienteV2},
		{"prior", "tbcliente.json", string(prior)},
	}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decode[CompareResponse](t, w)
	if resp.Counts.Carried != 2 || resp.Counts.New != 1 || resp.Counts.Removed != 1 {
		t.Errorf("counts = %+v", resp.Counts)
	}
	if len(resp.Removed) != 1 || resp.Removed[0] != "DT_CADASTRO" {
		t.Errorf("removed = %v", resp.Removed)
	}
	if resp.CSV != engine.DictionaryFile("TBCLIENTE") {
		t.Errorf("csv = %q", resp.CSV)
	}
	if resp.Report == nil || resp.Report.Prior != "tbcliente.json" {
		t.Errorf("report = %+v", resp.Report)
	}
	if len(resp.Rows) != 4 {
		t.Errorf("rows = %d, want 4", len(resp.Rows))
	}

	dl := serve(s, httptest.NewRequest(http.MethodGet, "/api/download/"+resp.CSV, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", dl.Code, dl.Body)
	}
	if !strings.Contains(dl.Body.String(), "DT_CADASTRO [REMOVIDA]") {
		t.Errorf("reconciled CSV lacks the removed row:\n%s", dl.Body)
	}
}

func TestCompareFromRegistry(t *testing.T) {
	s, eng := newTestServer(t)
	store := registry.NewMemoryStore()
	eng.Registry = store
	out, err := eng.Convert(context.Background(), "cliente.txt", clienteDDL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Publish(context.Background(), store, out.Document, "cliente.txt"); err != nil {
		t.Fatal(err)
	}

	w := serve(s, multipartRequest(t, "/api/compare", []part{{"ddl", "v2.txt", clienteV2}},
		map[string]string{"prior_registry": "1"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decode[CompareResponse](t, w)
	if resp.Report.Prior != "registry:TBCLIENTE" {
		t.Errorf("prior = %q", resp.Report.Prior)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/registry", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "TBCLIENTE") {
		t.Errorf("registry list = %d %s", w.Code, w.Body)
	}
}

func TestCompareMissingPrior(t *testing.T) {
	s, _ := newTestServer(t)
	w := serve(s, multipartRequest(t, "/api/compare", []part{{"ddl", "v2.txt", clienteV2}}, nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestGenerate(t *testing.T) {
	s, _ := newTestServer(t)
	dict := "tabela;descricao_mf;coluna_mf;rename_to;descricao_coluna_mf;descricao_oficial;tipo_original\n" +
		"TBCLIENTE;Clientes;CD_CLIENTE;id_cliente;Codigo;Codigo do cliente;INTEGER\n" +
		"TBCLIENTE;Clientes;NM_CLIENTE;nome;Nome;Nome do cliente;VARCHAR\n" +
		"TBCLIENTE;Clientes;DT_CADASTRO;data_cadastro;Cadastro;Data de cadastro;DATE\n"

	w := serve(s, multipartRequest(t, "/api/generate", []part{
		{"ddl", "cliente.txt", clienteDDL},
		{"dictionary", "TBCLIENTE.csv", dict},
	}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decode[GenerateResponse](t, w)
	if resp.Table != "TBCLIENTE" || resp.JSON != engine.ConfigFile("TBCLIENTE") {
		t.Errorf("resp = %+v", resp)
	}
	if !bytes.Contains(resp.Document, []byte(`"id_cliente"`)) {
		t.Errorf("document = %s", resp.Document)
	}
}

func TestGenerateParseError(t *testing.T) {
	s, _ := newTestServer(t)
	w := serve(s, multipartRequest(t, "/api/generate", []part{
		{"ddl", "bad.txt", "SELECT 1;"},
		{"dictionary", "d.csv", "coluna_mf;rename_to\nA;a\n"},
	}, nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (%s)", w.Code, w.Body)
	}
}

func TestClearCache(t *testing.T) {
	s, eng := newTestServer(t)
	if _, err := eng.Convert(context.Background(), "cliente.txt", clienteDDL); err != nil {
		t.Fatal(err)
	}
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/artifacts", nil))
	if got := decode[ArtifactsResponse](t, w); len(got.Artifacts) != 0 {
		t.Errorf("artifacts after clear = %v", got.Artifacts)
	}
}

func TestStaticFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html": {Data: []byte("<html>ddlconv</html>")},
		"app.js":     {Data: []byte("console.log(1)")},
	}
	s, _ := newTestServer(t, WithStaticFS(fsys))

	for _, path := range []string{"/", "/history", "/app.js"} {
		w := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
	w := serve(s, httptest.NewRequest(http.MethodGet, "/history", nil))
	if !strings.Contains(w.Body.String(), "ddlconv") {
		t.Errorf("fallback body = %q", w.Body)
	}
}

func TestCORSInDevMode(t *testing.T) {
	s, _ := newTestServer(t, WithDevMode(true))
	w := serve(s, httptest.NewRequest(http.MethodOptions, "/api/health", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
