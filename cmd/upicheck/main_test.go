package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/richxcame/upi-guard/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return &storage.UploadResult{Key: key, Size: size, MimeType: contentType}, nil
}

func (m *memStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func openerFor(stores map[string]*memStore) storeOpener {
	return func(_ context.Context, bucket string) (storage.Storage, error) {
		s, ok := stores[bucket]
		if !ok {
			return nil, errors.New("no such bucket")
		}
		return s, nil
	}
}

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func runCLI(t *testing.T, open storeOpener, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, open)
	return code, stdout.String(), stderr.String()
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		contains []string
	}{
		{"safe", []string{"alice@paytm"}, exitOK, []string{"alice@paytm\tSAFE"}},
		{"unverified is not flagged", []string{"xyz@unknownbank"}, exitOK, []string{"UNVERIFIED", "verified legitimate domains"}},
		{"suspicious", []string{"alice@paytm", "bob@support-paytm"}, exitFlagged, []string{"SUSPICIOUS", `suspicious pattern: "support-paytm"`}},
		{"invalid", []string{"ab@x"}, exitFlagged, []string{"INVALID", "Username must be at least 3 characters"}},
		{"no ids", nil, exitError, nil},
		{"unknown flag", []string{"-nope"}, exitError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := runCLI(t, nil, tt.args...)
			assert.Equal(t, tt.wantCode, code)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestRun_JSON(t *testing.T) {
	code, out, _ := runCLI(t, nil, "-json", "xyz@unknownbank", "a@b@c")
	assert.Equal(t, exitFlagged, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var first struct {
		UPIID   string `json:"upi_id"`
		Verdict struct {
			Status string  `json:"status"`
			Domain *string `json:"domain"`
		} `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "xyz@unknownbank", first.UPIID)
	assert.Equal(t, "unverified", first.Verdict.Status)
	require.NotNil(t, first.Verdict.Domain)
	assert.Equal(t, "unknownbank", *first.Verdict.Domain)

	assert.Contains(t, lines[1], `"validation_error":"UPI ID must contain exactly one @ symbol"`)
}

func TestRun_CustomRegistry(t *testing.T) {
	path := writeRegistry(t, "legitimate_issuers: [mybank]\nimpersonation_patterns: []\nsuspicious_keywords: []\n")

	code, out, _ := runCLI(t, nil, "-registry", path, "alice@mybank", "alice@paytm")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "alice@mybank\tSAFE")
	assert.Contains(t, out, "alice@paytm\tUNVERIFIED")
}

func TestRun_RegistryFromBucket(t *testing.T) {
	store := newMemStore()
	store.objects["lists/registry.yaml"] = []byte("legitimate_issuers: [mybank]\n")

	code, out, _ := runCLI(t, openerFor(map[string]*memStore{"configs": store}), "-registry", "s3://configs/lists/registry.yaml", "alice@mybank")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "SAFE")
}

func TestRun_BadRegistry(t *testing.T) {
	path := writeRegistry(t, "unknown_field: true\n")

	code, _, stderr := runCLI(t, nil, "-registry", path, "alice@paytm")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "upicheck:")
}

func TestPublishRegistry(t *testing.T) {
	path := writeRegistry(t, "legitimate_issuers: [mybank]\n")
	store := newMemStore()
	open := openerFor(map[string]*memStore{"configs": store})
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	require.NoError(t, publishRegistry(context.Background(), path, "s3://configs/registry.yaml", open, now))
	assert.Len(t, store.objects, 1)

	// A second publish archives the current object first.
	require.NoError(t, publishRegistry(context.Background(), path, "s3://configs/registry.yaml", open, now))
	assert.Len(t, store.objects, 2)

	var archived string
	for k := range store.objects {
		if strings.HasPrefix(k, "archive/20261018_") {
			archived = k
		}
	}
	assert.NotEmpty(t, archived)
	assert.True(t, strings.HasSuffix(archived, "_registry.yaml"))
}

func TestPublishRegistry_Errors(t *testing.T) {
	good := writeRegistry(t, "legitimate_issuers: [mybank]\n")
	bad := writeRegistry(t, "legitimate_issuers: []\n")
	open := openerFor(map[string]*memStore{"configs": newMemStore()})
	ctx := context.Background()

	assert.Error(t, publishRegistry(ctx, "", "s3://configs/r.yaml", open, time.Now()))
	assert.Error(t, publishRegistry(ctx, "s3://configs/r.yaml", "s3://configs/r.yaml", open, time.Now()))
	assert.Error(t, publishRegistry(ctx, bad, "s3://configs/r.yaml", open, time.Now()))
	assert.Error(t, publishRegistry(ctx, good, "configs/r.yaml", open, time.Now()))
	assert.Error(t, publishRegistry(ctx, good, "s3://missing/r.yaml", open, time.Now()))
}

func TestRun_Publish(t *testing.T) {
	path := writeRegistry(t, "legitimate_issuers: [mybank]\n")
	store := newMemStore()

	code, out, _ := runCLI(t, openerFor(map[string]*memStore{"configs": store}), "-registry", path, "-publish", "s3://configs/registry.yaml")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "published")
	assert.Contains(t, store.objects, "registry.yaml")
}
