package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ddlconv/ddlconv/internal/diag"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
)

// FileResult describes one successfully converted file.
type FileResult struct {
	Filename string         `json:"filename"`
	Table    string         `json:"table"`
	Columns  int            `json:"columns"`
	CSV      string         `json:"csv"`
	JSON     string         `json:"json"`
	Warnings []diag.Warning `json:"warnings,omitempty"`
}

// FileError describes one file that failed to convert.
type FileError struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error"`
}

// Job is a snapshot of a background conversion.
type Job struct {
	ID         string       `json:"id"`
	Status     JobStatus    `json:"status"`
	Total      int          `json:"total"`
	Completed  int          `json:"completed"`
	Results    []FileResult `json:"results"`
	Errors     []FileError  `json:"errors"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Progress is emitted to observers after every processed file and when a
// job finishes.
type Progress struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Filename  string    `json:"filename,omitempty"`
	Table     string    `json:"table,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type jobState struct {
	job  Job
	done chan struct{}
}

func (js *jobState) finished() bool {
	select {
	case <-js.done:
		return true
	default:
		return false
	}
}

// Subscribe registers fn to receive job progress. fn runs on the job's
// goroutine and must not block.
func (e *Engine) Subscribe(fn func(Progress)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(p Progress) {
	e.mu.Lock()
	observers := append([]func(Progress){}, e.observers...)
	e.mu.Unlock()
	for _, fn := range observers {
		fn(p)
	}
}

// StartJob converts files in the background and returns the job ID. Files
// are processed in order; a failing file is recorded and does not stop the
// job. Content hashes of converted files are remembered so identical
// uploads are skipped later.
func (e *Engine) StartJob(ctx context.Context, files []Upload) (string, error) {
	if len(files) == 0 {
		return "", diag.Validationf("files", 0, "no files to process")
	}

	e.mu.Lock()
	e.jobSeq++
	id := strconv.FormatInt(time.Now().Unix(), 10) + "-" + strconv.Itoa(e.jobSeq)
	js := &jobState{
		job: Job{
			ID:        id,
			Status:    JobProcessing,
			Total:     len(files),
			Results:   []FileResult{},
			Errors:    []FileError{},
			StartedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	e.jobs[id] = js
	e.mu.Unlock()

	e.Logger.Info("job started", "job", id, "files", len(files))
	go e.runJob(context.WithoutCancel(ctx), js, files)
	return id, nil
}

func (e *Engine) runJob(ctx context.Context, js *jobState, files []Upload) {
	defer close(js.done)

	for _, f := range files {
		p := Progress{JobID: js.job.ID, Status: JobProcessing, Filename: f.Filename}

		out, err := e.convertUpload(ctx, f)

		e.mu.Lock()
		if err != nil {
			js.job.Errors = append(js.job.Errors, FileError{
				Filename: f.Filename,
				Kind:     diag.KindOf(err).String(),
				Error:    err.Error(),
			})
			p.Error = err.Error()
		} else {
			js.job.Results = append(js.job.Results, FileResult{
				Filename: f.Filename,
				Table:    out.Table.Name,
				Columns:  len(out.Table.Columns),
				CSV:      out.CSVPath,
				JSON:     out.JSONPath,
				Warnings: out.Warnings,
			})
			p.Table = out.Table.Name
		}
		js.job.Completed++
		p.Completed, p.Total = js.job.Completed, js.job.Total
		e.mu.Unlock()

		e.emit(p)
	}

	e.mu.Lock()
	now := time.Now()
	js.job.Status = JobCompleted
	js.job.FinishedAt = &now
	final := Progress{JobID: js.job.ID, Status: JobCompleted, Completed: js.job.Completed, Total: js.job.Total}
	errs := len(js.job.Errors)
	e.mu.Unlock()

	e.Logger.Info("job finished", "job", js.job.ID, "files", final.Total, "errors", errs)
	e.emit(final)
}

// convertUpload claims the content hash before converting, so concurrent
// jobs carrying the same document convert it once. A failed conversion
// releases the claim.
func (e *Engine) convertUpload(ctx context.Context, f Upload) (out *Output, err error) {
	if f.Hash != "" {
		if prev, claimed := e.seen.Mark(f.Hash, f.Filename); !claimed {
			return nil, fmt.Errorf("identical content already processed as %s", prev)
		}
		defer func() {
			if err != nil {
				e.seen.Forget(f.Hash)
			}
		}()
	}
	text, err := ReadDDL(f.Path)
	if err != nil {
		return nil, err
	}
	return e.Convert(ctx, f.Filename, text)
}

// Job returns a snapshot of the job with the given ID.
func (e *Engine) Job(id string) (*Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	js, ok := e.jobs[id]
	if !ok {
		return nil, diag.NotFoundf(id, "job not found")
	}
	return snapshot(js.job), nil
}

// WaitJob blocks until the job finishes or ctx is done.
func (e *Engine) WaitJob(ctx context.Context, id string) (*Job, error) {
	e.mu.Lock()
	js, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return nil, diag.NotFoundf(id, "job not found")
	}
	select {
	case <-js.done:
		return e.Job(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func snapshot(j Job) *Job {
	j.Results = append([]FileResult{}, j.Results...)
	j.Errors = append([]FileError{}, j.Errors...)
	return &j
}
