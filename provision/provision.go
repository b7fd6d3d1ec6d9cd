// Package provision downloads pretrained model weights from a Hugging Face
// style hub into the local models directory. Syncs are idempotent: files
// already present with the expected size are skipped unless force is set.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/docparse/mineru-api/observability"
)

// DefaultHub is the public hub endpoint.
const DefaultHub = "https://huggingface.co"

// DefaultRevision is the branch synced when none is configured.
const DefaultRevision = "main"

// treePrefix is the repo subtree that holds the weights; everything else in
// the repo (readmes, demo assets) is ignored. The prefix is stripped when
// files land in the models directory.
const treePrefix = "models/"

// Client talks to one model repository.
type Client struct {
	baseURL  string
	repo     string
	revision string
	http     *http.Client
	limiter  *rate.Limiter
	log      observability.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different hub (or a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRevision selects a branch or tag.
func WithRevision(rev string) Option {
	return func(c *Client) { c.revision = rev }
}

// WithRateLimit caps hub requests per second. Bulk model pulls hammer the
// hub with hundreds of file requests; the default of 5 rps keeps the
// client inside polite territory.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithLogger attaches a logger.
func WithLogger(log observability.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a client for repo ("owner/name").
func NewClient(repo string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultHub,
		repo:     repo,
		revision: DefaultRevision,
		http:     http.DefaultClient,
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		log:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lfsInfo struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type treeEntry struct {
	Type string   `json:"type"`
	Path string   `json:"path"`
	Size int64    `json:"size"`
	LFS  *lfsInfo `json:"lfs,omitempty"`
}

func (e treeEntry) expectedSize() int64 {
	if e.LFS != nil && e.LFS.Size > 0 {
		return e.LFS.Size
	}
	return e.Size
}

// sha256OID extracts the checksum from an LFS oid of the form
// "sha256:<hex>". Plain hex oids are accepted too.
func (e treeEntry) sha256OID() string {
	if e.LFS == nil {
		return ""
	}
	oid := e.LFS.OID
	if rest, ok := strings.CutPrefix(oid, "sha256:"); ok {
		return rest
	}
	if len(oid) == sha256.Size*2 {
		return oid
	}
	return ""
}

func (c *Client) list(ctx context.Context) ([]treeEntry, error) {
	u := fmt.Sprintf("%s/api/models/%s/tree/%s?recursive=true", c.baseURL, c.repo, url.PathEscape(c.revision))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.repo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: unexpected status %s", c.repo, resp.Status)
	}
	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode tree listing: %w", err)
	}
	return entries, nil
}

// SyncReport summarizes one Sync run.
type SyncReport struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

// Sync brings destDir up to date with the repo's models subtree. With force
// set every file is re-downloaded regardless of local state.
func (c *Client) Sync(ctx context.Context, destDir string, force bool) (SyncReport, error) {
	entries, err := c.list(ctx)
	if err != nil {
		return SyncReport{}, err
	}

	var report SyncReport
	for _, entry := range entries {
		if entry.Type != "file" || !strings.HasPrefix(entry.Path, treePrefix) {
			continue
		}
		rel := strings.TrimPrefix(entry.Path, treePrefix)
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return report, fmt.Errorf("hub listing path %q escapes the models dir", entry.Path)
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))

		if !force && upToDate(target, entry.expectedSize()) {
			report.Skipped++
			c.log.Debug("model file up to date", observability.String("path", rel))
			continue
		}

		n, err := c.download(ctx, entry, target)
		if err != nil {
			return report, fmt.Errorf("download %s: %w", entry.Path, err)
		}
		report.Downloaded++
		report.Bytes += n
		c.log.Info("model file downloaded",
			observability.String("path", rel),
			observability.Int64(observability.MetricDownloadBytes, n))
	}
	return report, nil
}

// escapePath escapes each segment of a slash-separated repo path so file
// names containing spaces or URL-reserved characters resolve correctly.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// upToDate reports whether the local file exists with the expected size.
// Hashing multi-gigabyte weights on every startup is not worth it; size
// mismatches catch truncated downloads, and force covers corruption.
func upToDate(path string, size int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() == size
}

// download fetches one file to a temporary neighbor and renames it into
// place, verifying the sha256 against the LFS oid when the listing has one.
func (c *Client) download(ctx context.Context, entry treeEntry, target string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	u := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, c.repo, url.PathEscape(c.revision), escapePath(entry.Path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".part-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}

	if want := entry.sha256OID(); want != "" {
		if got := hex.EncodeToString(hash.Sum(nil)); got != want {
			return 0, fmt.Errorf("sha256 mismatch: got %s, want %s", got, want)
		}
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, err
	}
	return n, nil
}
