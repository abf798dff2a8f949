package mirror

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/tags"
)

const listing = `<html><body><pre>
<a href="../">../</a>
<a href="sub/">sub/</a>
<a href="rain_202001011200.nc">rain_202001011200.nc</a>
<a href="/data/2020/01/temp_202001011200.nc.gz">temp_202001011200.nc.gz</a>
</pre></body></html>`

func newServer(t *testing.T, listings *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/2020/01/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/2020/01/":
			listings.Add(1)
			fmt.Fprint(w, listing)
		case "/data/2020/01/rain_202001011200.nc":
			fmt.Fprint(w, "rain-bytes")
		case "/data/2020/01/temp_202001011200.nc.gz":
			fmt.Fprint(w, "temp-bytes")
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var candidate = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func TestMirror_Prefetch(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		wantPath string
		wantBody string
	}{
		{name: "plain file", file: "rain_202001011200.nc", wantPath: "rain_202001011200.nc", wantBody: "rain-bytes"},
		{name: "compressed sibling", file: "temp_202001011200.nc", wantPath: "temp_202001011200.nc.gz", wantBody: "temp-bytes"},
		{name: "not listed", file: "wind_202001011200.nc"},
		{name: "directory entries ignored", file: "sub"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			var listings atomic.Int32
			srv := newServer(t, &listings)
			cache := t.TempDir()
			m := New(srv.URL+"/data/$yyyy/$mm", tags.Map{}, cache, srv.Client())
			source := t.TempDir()

			// --- Act ---
			got, err := m.Prefetch(context.Background(), candidate, filepath.Join(source, "in", tc.file))

			// --- Assert ---
			require.NoError(t, err)
			assertUntouched(t, source)
			if tc.wantPath == "" {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, cache), "download must land in the cache, got %s", got)
			assert.Equal(t, tc.wantPath, filepath.Base(got))
			body, err := os.ReadFile(got)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBody, string(body))
		})
	}
}

// assertUntouched checks that nothing was created below the source root.
func assertUntouched(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "source tree must not be written")
}

func TestMirror_CacheLayoutFollowsRemotePath(t *testing.T) {
	// --- Arrange ---
	var listings atomic.Int32
	srv := newServer(t, &listings)
	cache := t.TempDir()
	m := New(srv.URL+"/data/$yyyy/$mm/", nil, cache, srv.Client())
	host := strings.ReplaceAll(strings.TrimPrefix(srv.URL, "http://"), ":", "_")

	// --- Act ---
	got, err := m.Prefetch(context.Background(), candidate, "/shared/rain_202001011200.nc")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, host, "data", "2020", "01", "rain_202001011200.nc"), got)
}

func TestMirror_CachesListingAndDownloads(t *testing.T) {
	// --- Arrange ---
	var listings atomic.Int32
	srv := newServer(t, &listings)
	cache := t.TempDir()
	m := New(srv.URL+"/data/$yyyy/$mm/", nil, cache, srv.Client())
	source := t.TempDir()

	// --- Act ---
	first, err := m.Prefetch(context.Background(), candidate, filepath.Join(source, "rain_202001011200.nc"))
	require.NoError(t, err)
	_, err = m.Prefetch(context.Background(), candidate, filepath.Join(source, "wind_202001011200.nc"))
	require.NoError(t, err)

	// A fresh mirror over the same cache finds the file without listing.
	again := New(srv.URL+"/data/$yyyy/$mm/", nil, cache, srv.Client())
	second, err := again.Prefetch(context.Background(), candidate, filepath.Join(source, "rain_202001011200.nc"))
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, int32(1), listings.Load())
	assert.Equal(t, first, second)
	assertUntouched(t, source)
}

func TestMirror_Errors(t *testing.T) {
	var listings atomic.Int32
	srv := newServer(t, &listings)

	t.Run("missing directory", func(t *testing.T) {
		m := New(srv.URL+"/nothing/$yyyy/", nil, t.TempDir(), srv.Client())
		_, err := m.Prefetch(context.Background(), candidate, filepath.Join(t.TempDir(), "x.nc"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status code 404")
	})

	t.Run("unknown tag", func(t *testing.T) {
		m := New(srv.URL+"/data/$domain/", nil, t.TempDir(), srv.Client())
		_, err := m.Prefetch(context.Background(), candidate, filepath.Join(t.TempDir(), "x.nc"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "render remote url")
	})

	t.Run("no cache directory", func(t *testing.T) {
		m := New(srv.URL+"/data/$yyyy/$mm/", nil, "", srv.Client())
		_, err := m.Prefetch(context.Background(), candidate, filepath.Join(t.TempDir(), "x.nc"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache directory")
	})
}
