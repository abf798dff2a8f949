// Package mirror fetches missing source files from an HTTP directory
// listing. A Mirror implements locator.Prefetcher: when a candidate file is
// absent locally, the remote directory for that candidate is listed and the
// file, or its .gz sibling, is downloaded into the mirror's own cache
// directory. The source tree the locator searches is never written.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/tags"
)

// DefaultTimeout bounds a single listing or download request.
const DefaultTimeout = 20 * time.Second

// Mirror lists and downloads files from one remote directory template.
type Mirror struct {
	client   *http.Client
	template string
	base     tags.Map
	cacheDir string

	mu       sync.Mutex
	listings map[string]map[string]struct{}
}

// New creates a Mirror for a directory URL template such as
// "https://host/rain/$yyyy/$mm/". base supplies the non-time tags.
// Downloads are stored below cacheDir, keyed by host and remote path.
func New(template string, base tags.Map, cacheDir string, client *http.Client) *Mirror {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Mirror{
		client:   client,
		template: template,
		base:     base,
		cacheDir: cacheDir,
		listings: make(map[string]map[string]struct{}),
	}
}

// Prefetch downloads the file named like localPath from the remote directory
// of candidate and returns the path of the cached copy. It returns "",
// without error, when the listing does not contain the file. A file already
// in the cache is not downloaded again.
func (m *Mirror) Prefetch(ctx context.Context, candidate time.Time, localPath string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	dir, err := tags.Render(m.template, m.base.With(tags.Time(candidate)))
	if err != nil {
		return "", fmt.Errorf("render remote url: %w", err)
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	cache, err := m.cachePath(dir)
	if err != nil {
		return "", err
	}

	name := filepath.Base(localPath)
	for _, want := range []string{name, fsutil.Compressed(name)} {
		if dst := filepath.Join(cache, want); fsutil.Exists(dst) {
			return dst, nil
		}
	}

	listing, err := m.list(ctx, dir)
	if err != nil {
		return "", err
	}

	for _, want := range []string{name, fsutil.Compressed(name)} {
		if _, ok := listing[want]; !ok {
			continue
		}
		dst := filepath.Join(cache, want)
		if err := m.download(ctx, dir+want, dst); err != nil {
			return "", err
		}
		logger.Info("⬇️ Source file mirrored.", "url", dir+want, "path", dst)
		return dst, nil
	}

	logger.Debug("Remote listing does not contain file.", "url", dir, "file", name)
	return "", nil
}

// cachePath maps a remote directory URL to its directory in the cache.
func (m *Mirror) cachePath(dir string) (string, error) {
	if m.cacheDir == "" {
		return "", errors.New("mirror cache directory is not set")
	}
	u, err := url.Parse(dir)
	if err != nil {
		return "", fmt.Errorf("parse remote url %s: %w", dir, err)
	}
	rel := filepath.Clean(filepath.FromSlash(path.Clean("/" + u.Path)))
	return filepath.Join(m.cacheDir, strings.ReplaceAll(u.Host, ":", "_"), rel), nil
}

// list returns the file names linked from the directory page at dir.
// Listings are cached per URL for the lifetime of the Mirror.
func (m *Mirror) list(ctx context.Context, dir string) (map[string]struct{}, error) {
	m.mu.Lock()
	if l, ok := m.listings[dir]; ok {
		m.mu.Unlock()
		return l, nil
	}
	m.mu.Unlock()

	res, err := m.get(ctx, dir)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", dir, err)
	}

	names := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if name := entryName(href); name != "" {
			names[name] = struct{}{}
		}
	})

	m.mu.Lock()
	m.listings[dir] = names
	m.mu.Unlock()
	return names, nil
}

// entryName extracts the file name of a listing link. Sub-directories,
// parent links and query-only links yield "".
func entryName(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		return ""
	}
	return name
}

func (m *Mirror) download(ctx context.Context, src, dst string) error {
	res, err := m.get(ctx, src)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := fsutil.WriteFrom(dst, res.Body); err != nil {
		return fmt.Errorf("failed to store %s: %w", src, err)
	}
	return nil
}

func (m *Mirror) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", u, err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("failed to get URL %s: status code %d", u, res.StatusCode)
	}
	return res, nil
}
