package engine

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ddlconv/ddlconv/internal/dedup"
	"github.com/ddlconv/ddlconv/internal/diag"
)

func (e *Engine) pathLock(path string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	m, ok := e.locks[path]
	if !ok {
		m = &sync.Mutex{}
		e.locks[path] = m
	}
	return m
}

// writeArtifact writes data to rel under the output directory. Writers of
// the same path are serialized and readers never see a partial file.
func (e *Engine) writeArtifact(rel string, data []byte) error {
	path := filepath.Join(e.Config.Output.Directory, rel)
	m := e.pathLock(path)
	m.Lock()
	defer m.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadArtifact returns the content of an artifact.
func (e *Engine) ReadArtifact(rel string) ([]byte, error) {
	path, err := e.ArtifactPath(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// ArtifactPath resolves name inside the output directory. Names escaping
// the directory are rejected.
func (e *Engine) ArtifactPath(name string) (string, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return "", diag.Validationf(name, 0, "invalid artifact name")
	}
	path := filepath.Join(e.Config.Output.Directory, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", diag.NotFoundf(name, "artifact not found")
	}
	return path, nil
}

// Artifacts lists every CSV and JSON artifact, relative to the output
// directory with forward slashes.
func (e *Engine) Artifacts() ([]string, error) {
	root := e.Config.Output.Directory
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".json":
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	slices.Sort(out)
	return out, err
}

// Bundle writes a zip archive of every artifact to w.
func (e *Engine) Bundle(w io.Writer) (int, error) {
	names, err := e.Artifacts()
	if err != nil {
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}
	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := e.addToZip(zw, name); err != nil {
			zw.Close()
			return 0, err
		}
	}
	return len(names), zw.Close()
}

func (e *Engine) addToZip(zw *zip.Writer, name string) error {
	path := filepath.Join(e.Config.Output.Directory, filepath.FromSlash(name))
	m := e.pathLock(path)
	m.Lock()
	defer m.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}
	return nil
}

// Upload is a DDL file stored in the upload directory, waiting to be
// processed.
type Upload struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Hash     string `json:"hash"`
}

// SaveUpload stores an uploaded file. skipped is true when identical content
// was already processed in this session; nothing is stored then.
func (e *Engine) SaveUpload(filename string, data []byte) (up Upload, skipped bool, err error) {
	name := filepath.Base(filepath.Clean("/" + filepath.FromSlash(filename)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Upload{}, false, diag.Validationf(filename, 0, "empty file name")
	}
	if !e.AllowedFile(name) {
		return Upload{}, false, diag.Validationf(name, 0, "extension not allowed (want %s)", strings.Join(e.Config.Server.AllowedExtensions, ", "))
	}
	if limit := e.Config.Server.MaxUploadBytes; limit > 0 && int64(len(data)) > limit {
		return Upload{}, false, diag.Validationf(name, 0, "file exceeds %d bytes", limit)
	}

	hash := dedup.Hash(data)
	if _, done := e.seen.Seen(hash); done {
		return Upload{Filename: name, Hash: hash}, true, nil
	}

	path := filepath.Join(e.Config.Output.UploadDirectory, name)
	if err := os.MkdirAll(e.Config.Output.UploadDirectory, 0o755); err != nil {
		return Upload{}, false, fmt.Errorf("creating upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Upload{}, false, fmt.Errorf("saving %s: %w", name, err)
	}
	return Upload{Filename: name, Path: path, Hash: hash}, false, nil
}

// AllowedFile reports whether name carries an allowed extension.
func (e *Engine) AllowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range e.Config.Server.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

// ClearCache removes every artifact and upload and forgets jobs, processed
// hashes and history.
func (e *Engine) ClearCache() error {
	e.mu.Lock()
	for id, js := range e.jobs {
		if js.finished() {
			delete(e.jobs, id)
		}
	}
	e.mu.Unlock()

	for _, dir := range []string{e.Config.Output.Directory, e.Config.Output.UploadDirectory} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recreating %s: %w", dir, err)
		}
	}
	e.seen.Reset()
	if err := e.history.Clear(); err != nil {
		return err
	}
	e.Logger.Info("cache cleared")
	return nil
}

// ResolveUpload maps a client-supplied upload back to the file stored in
// the upload directory. Client paths and hashes are ignored.
func (e *Engine) ResolveUpload(up Upload) (Upload, error) {
	name := filepath.Base(filepath.Clean("/" + filepath.FromSlash(up.Filename)))
	path := filepath.Join(e.Config.Output.UploadDirectory, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Upload{}, diag.NotFoundf(up.Filename, "uploaded file not found")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: name, Path: path, Hash: dedup.Hash(data)}, nil
}
