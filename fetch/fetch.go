// Package fetch downloads the HTML documents that get analyzed.
package fetch

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/heathj/pagecheck/config"
)

var (
	// ErrInvalidURL is returned for anything but an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrNotHTML is returned when the response is not a text document.
	ErrNotHTML = errors.New("response is not an HTML document")
	// ErrTooLarge is returned when the body exceeds the configured limit.
	ErrTooLarge = errors.New("response body too large")
	// ErrStatus is returned for a non-2xx response.
	ErrStatus = errors.New("unexpected response status")
)

// Fetcher retrieves pages over HTTP with retries.
type Fetcher struct {
	client    *retryablehttp.Client
	maxBody   int64
	userAgent string
	log       logrus.FieldLogger
}

// New creates a Fetcher. A nil logger means the standard logrus logger.
func New(cfg config.FetchConfig, log *logrus.Logger) *Fetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "fetch")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = leveledLogger{entry}
	// Hand back the last response instead of a generic "giving up" error so
	// the status can be reported.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.Default().Fetch.MaxBodyBytes
	}
	return &Fetcher{
		client:    retryClient,
		maxBody:   maxBody,
		userAgent: cfg.UserAgent,
		log:       entry,
	}
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: missing host", rawURL)
	}
	return u, nil
}

// Fetch downloads rawURL and returns its body decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetching %s", u.Redacted())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrapf(ErrStatus, "fetching %s: %s", u.Redacted(), resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextDocument(contentType) {
		return "", errors.Wrapf(ErrNotHTML, "content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", u.Redacted())
	}
	if int64(len(body)) > f.maxBody {
		return "", errors.Wrapf(ErrTooLarge, "more than %d bytes", f.maxBody)
	}

	text, err := decode(body, contentType)
	if err != nil {
		return "", errors.Wrapf(err, "decoding %s", u.Redacted())
	}

	f.log.WithFields(logrus.Fields{
		"url":   u.Redacted(),
		"bytes": len(body),
	}).Debug("fetched page")
	return text, nil
}

// isTextDocument accepts a missing content type, any text/* type and XHTML.
func isTextDocument(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

// decode converts body to UTF-8 using the declared or sniffed charset.
func decode(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
