package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHub struct {
	t       *testing.T
	files   map[string][]byte // repo path -> content
	badOID  map[string]bool   // paths listed with a wrong sha256
	fetches atomic.Int64
	server  *httptest.Server
}

func newFakeHub(t *testing.T, files map[string][]byte) *fakeHub {
	h := &fakeHub{t: t, files: files, badOID: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/pdf-kit/tree/main", h.tree)
	mux.HandleFunc("/acme/pdf-kit/resolve/main/", h.resolve)
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHub) tree(w http.ResponseWriter, r *http.Request) {
	type lfs struct {
		OID  string `json:"oid"`
		Size int64  `json:"size"`
	}
	type entry struct {
		Type string `json:"type"`
		Path string `json:"path"`
		Size int64  `json:"size"`
		LFS  *lfs   `json:"lfs,omitempty"`
	}
	entries := []entry{{Type: "directory", Path: "models"}}
	for path, content := range h.files {
		sum := sha256.Sum256(content)
		oid := "sha256:" + hex.EncodeToString(sum[:])
		if h.badOID[path] {
			oid = "sha256:" + hex.EncodeToString(make([]byte, 32))
		}
		entries = append(entries, entry{
			Type: "file",
			Path: path,
			Size: int64(len(content)),
			LFS:  &lfs{OID: oid, Size: int64(len(content))},
		})
	}
	_ = json.NewEncoder(w).Encode(entries)
}

func (h *fakeHub) resolve(w http.ResponseWriter, r *http.Request) {
	h.fetches.Add(1)
	path := r.URL.Path[len("/acme/pdf-kit/resolve/main/"):]
	content, ok := h.files[path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(content)
}

func (h *fakeHub) client() *Client {
	return NewClient("acme/pdf-kit", WithBaseURL(h.server.URL), WithRateLimit(1000))
}

func TestSyncDownloadsModelsSubtree(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/Layout/weights.bin": []byte("layout-weights"),
		"models/OCR/det.onnx":       []byte("ocr-weights"),
		"README.md":                 []byte("ignored"),
	})
	dest := t.TempDir()

	report, err := hub.client().Sync(context.Background(), dest, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Downloaded)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, int64(len("layout-weights")+len("ocr-weights")), report.Bytes)

	// models/ prefix is stripped on disk.
	data, err := os.ReadFile(filepath.Join(dest, "Layout", "weights.bin"))
	require.NoError(t, err)
	assert.Equal(t, "layout-weights", string(data))

	_, err = os.Stat(filepath.Join(dest, "README.md"))
	assert.True(t, os.IsNotExist(err), "files outside models/ must not be synced")
}

func TestSyncSkipsUpToDateFiles(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/MFD/weights.bin": []byte("mfd-weights"),
	})
	dest := t.TempDir()
	client := hub.client()

	_, err := client.Sync(context.Background(), dest, false)
	require.NoError(t, err)
	first := hub.fetches.Load()

	report, err := client.Sync(context.Background(), dest, false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Downloaded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, first, hub.fetches.Load(), "no extra fetches on an up-to-date tree")
}

func TestSyncForceRedownloads(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/MFD/weights.bin": []byte("mfd-weights"),
	})
	dest := t.TempDir()
	client := hub.client()

	_, err := client.Sync(context.Background(), dest, false)
	require.NoError(t, err)

	report, err := client.Sync(context.Background(), dest, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Downloaded)
}

func TestSyncRedownloadsTruncatedFile(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/MFD/weights.bin": []byte("mfd-weights"),
	})
	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "MFD"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "MFD", "weights.bin"), []byte("mfd"), 0o644))

	report, err := hub.client().Sync(context.Background(), dest, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Downloaded, "size mismatch forces re-download")
}

func TestSyncChecksumMismatch(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/MFD/weights.bin": []byte("mfd-weights"),
	})
	hub.badOID["models/MFD/weights.bin"] = true

	_, err := hub.client().Sync(context.Background(), t.TempDir(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sha256 mismatch")
}

func TestSyncRejectsTraversalPaths(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/../../escape.bin": []byte("owned"),
	})
	parent := t.TempDir()
	dest := filepath.Join(parent, "models")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	_, err := hub.client().Sync(context.Background(), dest, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes the models dir")
	assert.Equal(t, int64(0), hub.fetches.Load(), "a traversal entry must never be fetched")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(parent), "escape.bin"))
	assert.True(t, os.IsNotExist(statErr), "nothing may land outside the models dir")
}

func TestSyncEscapesResolveURL(t *testing.T) {
	hub := newFakeHub(t, map[string][]byte{
		"models/Layout/weights #2.bin": []byte("layout-weights"),
	})
	dest := t.TempDir()

	report, err := hub.client().Sync(context.Background(), dest, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Downloaded)

	data, err := os.ReadFile(filepath.Join(dest, "Layout", "weights #2.bin"))
	require.NoError(t, err)
	assert.Equal(t, "layout-weights", string(data))
}

func TestInstalledAndMissing(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Installed(dir, nil))
	assert.Equal(t, []string{"MFD", "Layout", "OCR"}, Missing(dir, nil))

	for _, m := range RequiredMarkers {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, m), 0o755))
	}
	assert.True(t, Installed(dir, nil))
	assert.Nil(t, Missing(dir, nil))
}
