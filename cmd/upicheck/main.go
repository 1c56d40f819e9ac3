// upicheck classifies UPI ids offline against a fraud registry.
//
//	upicheck [-registry src] [-json] <upi-id>...
//	upicheck -registry ./registry.yaml -publish s3://bucket/registry.yaml
//
// The exit status is 1 when any id is suspicious or invalid, 2 on usage or
// load errors.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/richxcame/upi-guard/internal/fraud"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/logger"
	"github.com/richxcame/upi-guard/pkg/storage"
	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitFlagged = 1
	exitError   = 2
)

type storeOpener func(ctx context.Context, bucket string) (storage.Storage, error)

// result is one line of -json output
type result struct {
	UPIID   string        `json:"upi_id"`
	Verdict fraud.Verdict `json:"verdict"`
}

func main() {
	_ = logger.Init(os.Getenv("ENVIRONMENT"))
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, s3Opener))
}

func s3Opener(ctx context.Context, bucket string) (storage.Storage, error) {
	cfg, err := config.Load("upicheck")
	if err != nil {
		return nil, err
	}
	store, err := storage.Opener(cfg.Storage)(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open storeOpener) int {
	fs := flag.NewFlagSet("upicheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	registrySrc := fs.String("registry", "", "registry file path or s3://bucket/key (default: built-in lists)")
	asJSON := fs.Bool("json", false, "print one JSON verdict per line")
	publishTo := fs.String("publish", "", "validate -registry and upload it to s3://bucket/key")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: upicheck [-registry src] [-json] <upi-id>...")
		fmt.Fprintln(stderr, "       upicheck -registry file -publish s3://bucket/key")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if *publishTo != "" {
		if err := publishRegistry(ctx, *registrySrc, *publishTo, open, time.Now()); err != nil {
			logger.Error("publish failed", zap.Error(err))
			fmt.Fprintln(stderr, "upicheck:", err)
			return exitError
		}
		fmt.Fprintf(stdout, "published %s to %s\n", *registrySrc, *publishTo)
		return exitOK
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return exitError
	}

	reg, err := fraud.LoadRegistry(ctx, *registrySrc, func(ctx context.Context, bucket string) (fraud.ObjectReader, error) {
		store, err := open(ctx, bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	if err != nil {
		logger.Error("failed to load registry", zap.String("source", *registrySrc), zap.Error(err))
		fmt.Fprintln(stderr, "upicheck:", err)
		return exitError
	}

	classifier := fraud.NewClassifier(reg)
	code := exitOK
	enc := json.NewEncoder(stdout)
	for _, raw := range fs.Args() {
		v := classifier.Classify(strings.TrimSpace(raw))
		fraud.RecordVerdict("cli", v)

		if v.IsSuspicious || !v.Valid() {
			code = exitFlagged
		}

		if *asJSON {
			if err := enc.Encode(result{UPIID: raw, Verdict: v}); err != nil {
				fmt.Fprintln(stderr, "upicheck:", err)
				return exitError
			}
			continue
		}
		printVerdict(stdout, raw, v)
	}
	return code
}

func printVerdict(w io.Writer, raw string, v fraud.Verdict) {
	fmt.Fprintf(w, "%s\t%s\n", raw, strings.ToUpper(string(v.Status())))
	if !v.Valid() {
		fmt.Fprintf(w, "  - %s\n", v.ValidationError)
		return
	}
	for _, r := range v.Reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

// publishRegistry validates a local registry file and uploads it. An
// existing object is archived under a dated key first.
func publishRegistry(ctx context.Context, src, dest string, open storeOpener, now time.Time) error {
	if src == "" || strings.HasPrefix(src, "s3://") {
		return errors.New("-publish needs a local -registry file")
	}
	body, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}
	if _, err := fraud.ParseRegistry(bytes.NewReader(body)); err != nil {
		return err
	}

	bucket, key, err := storage.SplitURL(dest)
	if err != nil {
		return err
	}
	store, err := open(ctx, bucket)
	if err != nil {
		return fmt.Errorf("open bucket %q: %w", bucket, err)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", dest, err)
	}
	if exists {
		if err := archive(ctx, store, key, now); err != nil {
			return err
		}
	}

	if _, err := store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), storage.MimeTypeFor(key)); err != nil {
		return fmt.Errorf("upload %s: %w", dest, err)
	}
	logger.Info("registry published", zap.String("bucket", bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

func archive(ctx context.Context, store storage.Storage, key string, now time.Time) error {
	current, err := store.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("download current registry: %w", err)
	}
	defer current.Close()

	data, err := io.ReadAll(current)
	if err != nil {
		return fmt.Errorf("read current registry: %w", err)
	}

	archiveKey := storage.VersionedKey(key, now)
	if _, err := store.Upload(ctx, archiveKey, bytes.NewReader(data), int64(len(data)), storage.MimeTypeFor(key)); err != nil {
		return fmt.Errorf("archive current registry: %w", err)
	}
	logger.Info("previous registry archived", zap.String("key", archiveKey))
	return nil
}
