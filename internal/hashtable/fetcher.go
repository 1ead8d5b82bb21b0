package hashtable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goware/urlx"
	"github.com/jellydator/ttlcache/v3"
	"k8s.io/klog/v2"
)

// Fetcher downloads a hash file from a mirror into dir, returning the
// local path it wrote. Implementations must be safe to stub out in
// tests (§4.3 "tests must stub this fetcher").
type Fetcher interface {
	Fetch(ctx context.Context, name string, dir string) (string, error)
}

// HTTPFetcher fetches hash files from a single HTTPS mirror, matching the
// "fetcher downloads hash files from a known HTTPS mirror into a
// per-user cache directory" wording of §4.3 and §6.4.
//
// checked is a short-TTL cache of "mirror responded for this name within
// the last Interval" so that repeated Fetch calls within one process
// run don't re-hit the network every time a caller re-resolves the same
// hash file set; this is the same pattern split-car-fetcher/remote-file.go
// uses ttlcache for (avoiding redundant remote metadata checks).
type HTTPFetcher struct {
	BaseURL  string
	Client   *http.Client
	Interval time.Duration

	checked *ttlcache.Cache[string, string]
}

// NewHTTPFetcher builds a fetcher against baseURL (e.g.
// "https://raw.githubusercontent.com/.../hashes/").
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	interval := 10 * time.Minute
	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](interval),
	)
	go cache.Start()
	return &HTTPFetcher{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Interval: interval,
		checked:  cache,
	}
}

// Fetch downloads name relative to BaseURL into dir/name, unless a fetch
// for the same name succeeded within Interval, in which case it returns
// the cached local path without hitting the network.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string, dir string) (string, error) {
	if item := f.checked.Get(name); item != nil {
		return item.Value(), nil
	}

	u, err := urlx.Parse(f.BaseURL + name)
	if err != nil {
		return "", fmt.Errorf("hashtable: invalid mirror URL for %q: %w", name, err)
	}
	normalized, err := urlx.Normalize(u)
	if err != nil {
		return "", fmt.Errorf("hashtable: normalizing mirror URL for %q: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("hashtable: fetching %s: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hashtable: fetching %s: status %s", normalized, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("hashtable: creating cache dir %s: %w", dir, err)
	}
	dst := filepath.Join(dir, name)
	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("hashtable: writing %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}

	f.checked.Set(name, dst, f.Interval)
	klog.V(2).Infof("hashtable: fetched %s -> %s", normalized, dst)
	return dst, nil
}

// StubFetcher is a Fetcher backed by an in-memory map, for tests (§4.3,
// §9's "testable injection point" note).
type StubFetcher struct {
	Files map[string][]byte
}

func (s *StubFetcher) Fetch(_ context.Context, name string, dir string) (string, error) {
	content, ok := s.Files[name]
	if !ok {
		return "", fmt.Errorf("hashtable: stub has no file %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// RefreshAll fetches every file named by sel into dir, via f, then resets
// the process-wide singleton so the next Global() call reloads from the
// freshly written files.
func RefreshAll(ctx context.Context, f Fetcher, dir string, sel Selection) error {
	names := selectedFileNames(sel)
	for _, name := range names {
		if _, err := f.Fetch(ctx, name, dir); err != nil {
			return fmt.Errorf("hashtable: refreshing %s: %w", name, err)
		}
	}
	Reset()
	return nil
}

func selectedFileNames(sel Selection) []string {
	var names []string
	add := func(on bool, key string) {
		if on {
			names = append(names, categoryFiles[key]...)
		}
	}
	add(sel.Entries, "entries")
	add(sel.BinHashes, "binhashes")
	add(sel.BinTypes, "bintypes")
	add(sel.BinFields, "binfields")
	add(sel.FilePaths, "filepaths")
	return names
}

// CacheDir returns the per-user cache directory described in §6.4
// ("<APPDATA>/FrogTools/hashes" on Windows, analogous elsewhere).
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "FrogTools", "hashes"), nil
}
