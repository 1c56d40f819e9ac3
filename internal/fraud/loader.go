package fraud

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const objectScheme = "s3://"

// ObjectReader reads objects from one bucket of remote storage.
type ObjectReader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// BucketOpener returns a reader for the named bucket.
type BucketOpener func(ctx context.Context, bucket string) (ObjectReader, error)

// ParseRegistry decodes a YAML (or JSON) registry document.
func ParseRegistry(r io.Reader) (*Registry, error) {
	var cfg RegistryConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("fraud: decode registry: %w", err)
	}
	return NewRegistry(cfg)
}

// LoadRegistry builds the registry named by source:
//   - ""                 built-in defaults
//   - "s3://bucket/key"  object fetched through open
//   - anything else      local file path
func LoadRegistry(ctx context.Context, source string, open BucketOpener) (*Registry, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return DefaultRegistry(), nil
	}

	if bucket, key, ok := splitObjectURL(source); ok {
		if open == nil {
			return nil, fmt.Errorf("fraud: no object storage configured for %s", source)
		}
		store, err := open(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("fraud: open bucket %q: %w", bucket, err)
		}
		body, err := store.Download(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fraud: download registry %s: %w", source, err)
		}
		defer body.Close()
		return ParseRegistry(body)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("fraud: open registry file: %w", err)
	}
	defer f.Close()
	return ParseRegistry(f)
}

func splitObjectURL(source string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(source, objectScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(source, objectScheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
