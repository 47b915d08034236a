package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ddlconv/ddlconv/internal/aws"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/state"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

// PublishResult lists where a document was published.
type PublishResult struct {
	Records []registry.Record   `json:"records,omitempty"`
	Uploads []*aws.UploadResult `json:"uploads,omitempty"`
}

// PublishOptions selects the destinations of Publish.
type PublishOptions struct {
	Registry bool
	S3       bool
}

// Publish stores doc in the registry and uploads its artifacts to S3. The
// dictionary CSV of a table is uploaded when one exists in the output
// directory.
func (e *Engine) Publish(ctx context.Context, doc tableconfig.Document, source string, opts PublishOptions) (*PublishResult, error) {
	if !opts.Registry && !opts.S3 {
		return nil, errors.New("no publish destination selected")
	}
	if opts.Registry && e.Registry == nil {
		return nil, errors.New("no registry configured")
	}
	if opts.S3 && e.Uploader == nil {
		return nil, errors.New("no S3 bucket configured")
	}

	result := &PublishResult{}
	var err error
	if opts.Registry {
		result.Records, err = registry.Publish(ctx, e.Registry, doc, source)
		if err != nil {
			e.record(state.Entry{Operation: state.OpPublish, Source: source, Error: err.Error()})
			return nil, err
		}
	}

	if opts.S3 {
		for _, name := range doc.Tables() {
			up, err := e.upload(ctx, name, doc[name])
			if err != nil {
				e.record(state.Entry{Operation: state.OpPublish, Source: source, Table: name, Error: err.Error()})
				return nil, err
			}
			result.Uploads = append(result.Uploads, up)
		}
	}

	for _, name := range doc.Tables() {
		e.record(state.Entry{Operation: state.OpPublish, Source: source, Table: name})
		e.Logger.Info("published configuration", "table", name, "registry", opts.Registry, "s3", opts.S3)
	}
	return result, nil
}

func (e *Engine) upload(ctx context.Context, table string, cfg *tableconfig.TableConfig) (*aws.UploadResult, error) {
	configJSON, err := tableconfig.NewDocument(table, cfg).EncodeJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", table, err)
	}
	set := aws.ArtifactSet{Table: table, ConfigJSON: configJSON}

	csvPath := filepath.Join(e.Config.Output.Directory, DictionaryFile(table))
	if data, err := os.ReadFile(csvPath); err == nil {
		set.DictionaryCSV = data
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading dictionary of %s: %w", table, err)
	}
	return e.Uploader.UploadArtifacts(ctx, set)
}

// LoadPrior fetches the configuration published for table as encoded JSON.
func (e *Engine) LoadPrior(ctx context.Context, table string) ([]byte, error) {
	if e.Registry == nil {
		return nil, errors.New("no registry configured")
	}
	rec, err := e.Registry.Get(ctx, table)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}
