package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// UploadResult describes a stored object.
type UploadResult struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Storage is the object store used for registry documents.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// SplitURL splits "s3://bucket/key" into bucket and key.
func SplitURL(raw string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "s3://")
	if !ok {
		return "", "", fmt.Errorf("storage: %q is not an s3:// url", raw)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("storage: %q needs both bucket and key", raw)
	}
	return bucket, strings.Trim(key, "/"), nil
}

// VersionedKey derives a unique archive key next to key, e.g.
// registry/issuers.yaml -> registry/archive/20260102_ab12cd34_issuers.yaml.
func VersionedKey(key string, now time.Time) string {
	dir, file := path.Split(key)
	return fmt.Sprintf("%sarchive/%s_%s_%s", dir, now.UTC().Format("20060102"), uuid.New().String()[:8], file)
}

// MimeTypeFor returns the content type used for registry documents.
func MimeTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
