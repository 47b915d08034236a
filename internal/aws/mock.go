package aws

import (
	"context"
	"sort"
	"strings"
)

// MockClient is a test double for the Client interface.
type MockClient struct {
	Identity    *CallerIdentity
	IdentityErr error
	UploadErr   error
	ListErr     error

	// Track calls
	UploadedObjects map[string][]byte // bucket/key → data
}

// NewMockClient creates a new MockClient with default values.
func NewMockClient() *MockClient {
	return &MockClient{
		Identity: &CallerIdentity{
			Account: "123456789012",
			ARN:     "arn:aws:iam::123456789012:user/test",
			UserID:  "AIDA12345",
		},
		UploadedObjects: make(map[string][]byte),
	}
}

func (m *MockClient) VerifyCredentials(_ context.Context) (*CallerIdentity, error) {
	return m.Identity, m.IdentityErr
}

func (m *MockClient) UploadToS3(_ context.Context, bucket, key string, data []byte) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.UploadedObjects[bucket+"/"+key] = data
	return nil
}

func (m *MockClient) ListKeys(_ context.Context, bucket, prefix string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var keys []string
	for full := range m.UploadedObjects {
		key, ok := strings.CutPrefix(full, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
