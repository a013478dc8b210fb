// Package hub downloads published model weights and caches them locally.
//
// Artifacts are verified against the sha256 pinned in the manifest, both on
// download and on cache hits, so a corrupted cache entry is re-fetched rather
// than silently loaded.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	retry "github.com/avast/retry-go/v4"
	humanize "github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://weights.dejaview.dev/v1"
	requestTimeout = 10 * time.Minute
)

var (
	// ErrUnknownWeights is returned when no manifest entry exists for a name.
	ErrUnknownWeights = fmt.Errorf("no published weights")
	// ErrDigestMismatch is returned when downloaded bytes fail verification.
	ErrDigestMismatch = fmt.Errorf("digest mismatch")
)

var retryOpts = []retry.Option{
	retry.Attempts(3),
	retry.DelayType(retry.BackOffDelay),
	retry.Delay(1 * time.Second),
	retry.MaxDelay(5 * time.Second),
}

type config struct {
	baseURL  string
	cacheDir string
	progress bool
}

// Option configures Fetch.
type Option func(*config)

// WithBaseURL overrides the download endpoint. Mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithCacheDir overrides the local cache directory.
func WithCacheDir(dir string) Option {
	return func(c *config) { c.cacheDir = dir }
}

// WithProgress toggles the download progress bar.
func WithProgress(enabled bool) Option {
	return func(c *config) { c.progress = enabled }
}

// Fetch returns the local path of the named architecture's weights,
// downloading them on first use. Subsequent calls hit the cache without
// touching the network.
func Fetch(ctx context.Context, name string, opts ...Option) (string, error) {
	cfg := config{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	w, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w for %q", ErrUnknownWeights, name)
	}

	cacheDir := cfg.cacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("resolve cache dir: %w", err)
		}
		cacheDir = filepath.Join(base, "dejaview", "weights")
	}
	dest := filepath.Join(cacheDir, w.File)

	if err := verifyFile(dest, w); err == nil {
		log.WithFields(log.Fields{"name": name, "path": dest}).Debug("weight cache hit")
		return dest, nil
	} else if !os.IsNotExist(err) {
		log.WithFields(log.Fields{"name": name, "path": dest, "error": err}).
			Warn("cached weights invalid, re-downloading")
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	log.WithFields(log.Fields{
		"name": name,
		"file": w.File,
		"size": humanize.Bytes(uint64(w.Size)),
	}).Info("downloading weights")

	err := retry.Do(
		func() error { return download(ctx, cfg, w, dest) },
		append(retryOpts, retry.Context(ctx))...,
	)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", w.File, err)
	}
	return dest, nil
}

// download streams one artifact into the cache. The bytes land in a temp file
// first and are renamed into place only after the digest checks out, so a
// partial or corrupt download never shadows the cache path.
func download(ctx context.Context, cfg config, w Weights, dest string) error {
	client := resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(requestTimeout).
		SetDoNotParseResponse(true)

	resp, err := client.R().SetContext(ctx).Get("/" + w.File)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %s fetching %s", resp.Status(), w.File)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), w.File+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	reader := io.Reader(body)
	finish := func(bool) {}
	if cfg.progress {
		reader, finish = progressReader(body, w)
	}

	verifier := w.Digest.Verifier()
	_, copyErr := io.Copy(io.MultiWriter(tmp, verifier), reader)
	finish(copyErr != nil)
	if copyErr != nil {
		tmp.Close()
		return copyErr
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if !verifier.Verified() {
		return fmt.Errorf("%w: %s does not match %s", ErrDigestMismatch, w.File, w.Digest)
	}
	return os.Rename(tmp.Name(), dest)
}

// verifyFile re-hashes a cached artifact against its pinned digest.
func verifyFile(path string, w Weights) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	verifier := w.Digest.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return err
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: cached %s", ErrDigestMismatch, filepath.Base(path))
	}
	return nil
}
