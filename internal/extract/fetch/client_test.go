package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/pkg/types"
)

// mockConfigManager implements configtypes.GatewayConfigManager for tests
type mockConfigManager struct {
	config *configtypes.GatewayConfig
}

func (m *mockConfigManager) GetConfig() *configtypes.GatewayConfig { return m.config }
func (m *mockConfigManager) GetSiteRules() []types.SiteRule        { return m.config.SiteRules }
func (m *mockConfigManager) MatchSiteRule(string) *types.SiteRule  { return nil }

func newTestCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("readlens", prometheus.NewRegistry(), zap.NewNop())
}

// baseFetchConfig disables SSRF protection so tests can hit loopback
// httptest servers.
func baseFetchConfig() configtypes.FetchConfig {
	off := false
	return configtypes.FetchConfig{
		Timeout:         types.Duration(5 * time.Second),
		MaxBodySize:     1 << 20,
		MaxRedirects:    3,
		UserAgent:       "readlens-test-agent",
		PolitenessRPS:   200,
		PolitenessBurst: 50,
		SSRFProtection:  &off,
	}
}

func newTestFetcher(cfg configtypes.FetchConfig) *Fetcher {
	cm := &mockConfigManager{config: &configtypes.GatewayConfig{Fetch: cfg}}
	return NewFetcher(cm, newTestCollector(), zap.NewNop())
}

func TestFetchSuccess(t *testing.T) {
	var gotMethod, gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>hello</p></body></html>")
	}))
	defer srv.Close()

	fetcher := newTestFetcher(baseFetchConfig())
	resp, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "<p>hello</p>")
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "readlens-test-agent", gotUA)
	assert.Equal(t, acceptHeader, gotAccept)
}

func TestFetchAcceptsXHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xhtml+xml")
		fmt.Fprint(w, "<html><body/></html>")
	}))
	defer srv.Close()

	fetcher := newTestFetcher(baseFetchConfig())
	resp, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "application/xhtml+xml", resp.ContentType)
}

func TestFetchNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := newTestFetcher(baseFetchConfig())
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchRejectsNonHTMLContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"not": "html"}`)
	}))
	defer srv.Close()

	fetcher := newTestFetcher(baseFetchConfig())
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedContent)
	assert.Contains(t, err.Error(), "application/json")
}

func TestFetchFollowsRedirects(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n <= 0 {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>landed</body></html>")
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop?n=%d", n-1), http.StatusFound)
	})

	fetcher := newTestFetcher(baseFetchConfig())
	resp, err := fetcher.Fetch(context.Background(), srv.URL+"/hop?n=2")
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "landed")
}

func TestFetchRejectsRedirectChainOverLimit(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n <= 0 {
			fmt.Fprint(w, "<html><body>landed</body></html>")
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop?n=%d", n-1), http.StatusFound)
	})

	cfg := baseFetchConfig()
	cfg.MaxRedirects = 2
	fetcher := newTestFetcher(cfg)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/hop?n=5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body>%s</body></html>", strings.Repeat("x", 8<<10))
	}))
	defer srv.Close()

	cfg := baseFetchConfig()
	cfg.MaxBodySize = 1024
	fetcher := newTestFetcher(cfg)

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprint(w, "<html><body>late</body></html>")
	}))
	defer srv.Close()

	cfg := baseFetchConfig()
	cfg.Timeout = types.Duration(100 * time.Millisecond)
	fetcher := newTestFetcher(cfg)

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	fetcher := newTestFetcher(baseFetchConfig())
	_, err := fetcher.Fetch(context.Background(), target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSupportedContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"", true}, // missing header treated as HTML
		{"application/json", false},
		{"text/plain", false},
		{"image/png", false},
		{"application/pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, supportedContentType(tt.contentType))
		})
	}
}

func TestSSRFSafeDialRejectsPrivateAddresses(t *testing.T) {
	addrs := []string{
		"127.0.0.1:80",
		"[::1]:80",
		"10.0.0.5:80",
		"192.168.1.1:80",
		"169.254.1.1:80",
	}

	for _, addr := range addrs {
		t.Run(addr, func(t *testing.T) {
			conn, err := ssrfSafeDial(addr)
			require.Error(t, err)
			assert.Nil(t, conn)
			assert.Contains(t, err.Error(), "SSRF protection")
		})
	}
}

func TestSSRFSafeDialRejectsMalformedAddress(t *testing.T) {
	conn, err := ssrfSafeDial("no-port-here")
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Contains(t, err.Error(), "invalid address")
}
