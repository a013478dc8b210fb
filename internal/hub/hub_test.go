package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

// registerTestWeights adds a manifest entry for the given payload and removes
// it when the test ends.
func registerTestWeights(t *testing.T, name string, payload []byte) Weights {
	t.Helper()
	w := Weights{
		File:   name + ".safetensors",
		Digest: digest.FromBytes(payload),
		Size:   int64(len(payload)),
	}
	manifest[name] = w
	t.Cleanup(func() { delete(manifest, name) })
	return w
}

func TestFetchUnknownWeights(t *testing.T) {
	_, err := Fetch(context.Background(), "no_such_model", WithCacheDir(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for unknown weights")
	}
	if !strings.Contains(err.Error(), "no published weights") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	payload := []byte("fake safetensors payload for download test")
	w := registerTestWeights(t, "test_arch", payload)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/"+w.File {
			http.NotFound(rw, r)
			return
		}
		rw.Write(payload)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	path, err := Fetch(context.Background(), "test_arch",
		WithBaseURL(srv.URL), WithCacheDir(cacheDir))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != filepath.Join(cacheDir, w.File) {
		t.Errorf("unexpected path %q", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("cached content does not match served payload")
	}
	if hits != 1 {
		t.Errorf("expected 1 request, got %d", hits)
	}

	// Second fetch must come from the cache, even with the server gone.
	srv.Close()
	path2, err := Fetch(context.Background(), "test_arch",
		WithBaseURL(srv.URL), WithCacheDir(cacheDir))
	if err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if path2 != path {
		t.Errorf("cache hit returned %q, want %q", path2, path)
	}
}

func TestFetchDigestMismatch(t *testing.T) {
	w := registerTestWeights(t, "test_arch", []byte("expected payload"))

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte("tampered payload"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	_, err := Fetch(context.Background(), "test_arch",
		WithBaseURL(srv.URL), WithCacheDir(cacheDir))
	if err == nil {
		t.Fatal("expected digest mismatch error")
	}
	if !strings.Contains(err.Error(), "digest mismatch") {
		t.Errorf("unexpected error: %v", err)
	}

	// No partial file may shadow the cache path.
	if _, statErr := os.Stat(filepath.Join(cacheDir, w.File)); !os.IsNotExist(statErr) {
		t.Error("tampered download left a file at the cache path")
	}
}

func TestFetchCorruptCacheRedownloads(t *testing.T) {
	payload := []byte("good payload")
	w := registerTestWeights(t, "test_arch", payload)

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write(payload)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	dest := filepath.Join(cacheDir, w.File)
	if err := os.WriteFile(dest, []byte("bit rot"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := Fetch(context.Background(), "test_arch",
		WithBaseURL(srv.URL), WithCacheDir(cacheDir))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Error("corrupt cache entry was not replaced")
	}
}

func TestFetchHTTPError(t *testing.T) {
	registerTestWeights(t, "test_arch", []byte("payload"))

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), "test_arch",
		WithBaseURL(srv.URL), WithCacheDir(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "unexpected status") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchProgressTruncatedStream(t *testing.T) {
	// Declare a large body, send a few bytes, then drop the connection.
	// The fetch must surface the stream error instead of blocking on the
	// progress bar.
	manifest["test_arch"] = Weights{
		File:   "test_arch.safetensors",
		Digest: digest.FromBytes([]byte("payload")),
		Size:   1000000,
	}
	t.Cleanup(func() { delete(manifest, "test_arch") })

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Length", "1000000")
		rw.Write([]byte("12345678"))
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), "test_arch",
			WithBaseURL(srv.URL), WithCacheDir(cacheDir), WithProgress(true))
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error for truncated download")
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Fetch did not return after a mid-stream download error")
	}
}

func TestVerifyFileMissing(t *testing.T) {
	w := Weights{File: "x", Digest: digest.FromBytes(nil)}
	err := verifyFile(filepath.Join(t.TempDir(), "missing"), w)
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
