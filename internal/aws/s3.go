package aws

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ArtifactUploader uploads generated artifacts under prefix/<table>/.
type ArtifactUploader struct {
	client Client
	bucket string
	prefix string
}

// NewArtifactUploader creates a new artifact uploader.
func NewArtifactUploader(client Client, bucket, prefix string) *ArtifactUploader {
	return &ArtifactUploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// ArtifactSet holds the artifacts generated for one table.
type ArtifactSet struct {
	Table         string
	DictionaryCSV []byte // empty when no dictionary was produced
	ConfigJSON    []byte
	ReportJSON    []byte // empty unless a comparison ran
}

// UploadResult holds the S3 URIs of uploaded artifacts.
type UploadResult struct {
	DictionaryURI string `json:"dictionary_uri,omitempty"`
	ConfigURI     string `json:"config_uri"`
	ReportURI     string `json:"report_uri,omitempty"`
}

// TablePrefix is the key prefix holding a table's artifacts.
func (u *ArtifactUploader) TablePrefix(table string) string {
	return path.Join(u.prefix, strings.ToLower(table)) + "/"
}

// UploadArtifacts uploads the artifacts of one table.
func (u *ArtifactUploader) UploadArtifacts(ctx context.Context, artifacts ArtifactSet) (*UploadResult, error) {
	if artifacts.Table == "" {
		return nil, fmt.Errorf("artifact set has no table name")
	}
	if len(artifacts.ConfigJSON) == 0 {
		return nil, fmt.Errorf("artifact set for %s has no configuration", artifacts.Table)
	}
	dir := u.TablePrefix(artifacts.Table)
	result := &UploadResult{}

	configKey := path.Join(dir, strings.ToLower(artifacts.Table)+".json")
	if err := u.client.UploadToS3(ctx, u.bucket, configKey, artifacts.ConfigJSON); err != nil {
		return nil, fmt.Errorf("uploading configuration: %w", err)
	}
	result.ConfigURI = u.uri(configKey)

	if len(artifacts.DictionaryCSV) > 0 {
		dictKey := path.Join(dir, strings.ToUpper(artifacts.Table)+".csv")
		if err := u.client.UploadToS3(ctx, u.bucket, dictKey, artifacts.DictionaryCSV); err != nil {
			return nil, fmt.Errorf("uploading dictionary: %w", err)
		}
		result.DictionaryURI = u.uri(dictKey)
	}

	if len(artifacts.ReportJSON) > 0 {
		reportKey := path.Join(dir, "comparison.json")
		if err := u.client.UploadToS3(ctx, u.bucket, reportKey, artifacts.ReportJSON); err != nil {
			return nil, fmt.Errorf("uploading report: %w", err)
		}
		result.ReportURI = u.uri(reportKey)
	}

	return result, nil
}

func (u *ArtifactUploader) uri(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
