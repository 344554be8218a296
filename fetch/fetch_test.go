package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heathj/pagecheck/config"
)

func testConfig() config.FetchConfig {
	cfg := config.Default().Fetch
	cfg.RetryMax = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newFetcher(cfg config.FetchConfig) *Fetcher {
	log, _ := test.NewNullLogger()
	return New(cfg, log)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"https://example.com/page", true},
		{"http://example.com", true},
		{"  https://example.com/a?b=c  ", true},
		{"", false},
		{"example.com", false},
		{"/relative/path", false},
		{"ftp://example.com/file", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"https://", false},
		{"http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateURL(tt.in)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, ErrInvalidURL, errors.Cause(err))
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			assert.Equal(t, "pagecheck/1.0", r.UserAgent())
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<div class="cp">hello</div>`))
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			w.Write([]byte("<p>caf\xe9</p>"))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			w.Write([]byte("<p>plain</p>"))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"a":1}`))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte{0x89, 'P', 'N', 'G'})
		case "/big":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(strings.Repeat("x", 2048)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 1024
	f := newFetcher(cfg)

	tests := []struct {
		path     string
		expected string
		err      error
	}{
		{"/page", `<div class="cp">hello</div>`, nil},
		{"/latin1", "<p>café</p>", nil},
		{"/untyped", "<p>plain</p>", nil},
		{"/json", "", ErrNotHTML},
		{"/image", "", ErrNotHTML},
		{"/big", "", ErrTooLarge},
		{"/missing", "", ErrStatus},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			body, err := f.Fetch(context.Background(), srv.URL+tt.path)
			if tt.err != nil {
				require.Error(t, err)
				assert.Equal(t, tt.err, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, body)
		})
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	body, err := newFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchGivesUpWithStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ErrStatus, errors.Cause(err))
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>late</p>"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newFetcher(testConfig()).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetriesAreLogged(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	_, err := New(testConfig(), log).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	var sawRetry bool
	for _, e := range hook.AllEntries() {
		assert.Equal(t, "fetch", e.Data["component"])
		if e.Message == "retrying request" {
			assert.Equal(t, logrus.DebugLevel, e.Level)
			assert.Contains(t, e.Data, "remaining")
			sawRetry = true
		}
	}
	assert.True(t, sawRetry, "retry attempt is logged with its fields")
}
