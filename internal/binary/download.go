package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "wdb/1.0"
	// maxRedirects caps redirect chains
	maxRedirects = 10
	// maxTextSize bounds plain-text and listing responses
	maxTextSize = 4 << 20
)

// ObjectFetcher streams objects addressed by s3:// URLs.
type ObjectFetcher interface {
	Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	Timeout   time.Duration
	UserAgent string
	// Transport is cloned for every proxy; nil uses http.DefaultTransport.
	Transport *http.Transport
	// Objects serves s3:// URLs; nil rejects them.
	Objects ObjectFetcher
	Logger  logrus.FieldLogger
}

// Downloader performs single-attempt HTTP downloads. Proxies are applied
// per call through dedicated clients; no process-wide state is touched.
type Downloader struct {
	base      *http.Transport
	timeout   time.Duration
	userAgent string
	objects   ObjectFetcher
	logger    logrus.FieldLogger

	mu      sync.Mutex
	clients map[clientKey]*http.Client
}

type clientKey struct {
	proxy  string
	follow bool
}

// NewDownloader creates a new downloader
func NewDownloader(opts DownloaderOptions) *Downloader {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Downloader{
		base:      base.Clone(),
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		objects:   opts.Objects,
		logger:    opts.Logger,
		clients:   make(map[clientKey]*http.Client),
	}
}

// client returns the HTTP client for a proxy setting. follow controls
// whether redirects are followed.
func (d *Downloader) client(proxyURL string, follow bool) (*http.Client, error) {
	key := clientKey{proxy: proxyURL, follow: follow}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.clients[key]; ok {
		return c, nil
	}

	transport := d.base.Clone()
	if proxyURL != "" {
		if err := applyProxy(transport, proxyURL); err != nil {
			return nil, err
		}
	}

	c := &http.Client{
		Transport: transport,
		Timeout:   d.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !follow {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	d.clients[key] = c
	return c, nil
}

// applyProxy routes transport through proxyURL. http and https proxies use
// Transport.Proxy; socks5 proxies replace the dialer.
func applyProxy(transport *http.Transport, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid proxy URL %q", proxyURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks proxy: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return nil
}

// do performs a GET and checks for a 2xx status. The caller closes the body.
func (d *Downloader) do(ctx context.Context, rawURL, proxyURL string, follow bool) (*http.Response, error) {
	c, err := d.client(proxyURL, follow)
	if err != nil {
		return nil, typed(ErrDownload, err, "url", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, typed(ErrDownload, fmt.Errorf("create request: %w", err), "url", rawURL)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := c.Do(req)
	if err != nil {
		return nil, typed(ErrDownload, fmt.Errorf("execute request: %w", err), "url", rawURL)
	}
	return resp, nil
}

// Fetch streams rawURL into a new temporary file inside dir and returns
// its path. The body is never buffered in memory. On failure no file is
// left behind.
func (d *Downloader) Fetch(ctx context.Context, rawURL, proxyURL, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	start := time.Now()
	n, err := d.copyTo(ctx, rawURL, proxyURL, tmpFile)
	if err != nil {
		return "", err
	}

	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"url":      rawURL,
		"bytes":    n,
		"duration": time.Since(start).String(),
	}).Debug("download complete")

	cleanupNeeded = false
	return tmpPath, nil
}

func (d *Downloader) copyTo(ctx context.Context, rawURL, proxyURL string, w io.Writer) (int64, error) {
	if isObjectURL(rawURL) {
		if d.objects == nil {
			return 0, typed(ErrDownload, errors.New("no object store configured"), "url", rawURL)
		}
		n, err := d.objects.Fetch(ctx, rawURL, w)
		if err != nil {
			return 0, typed(ErrDownload, err, "url", rawURL)
		}
		return n, nil
	}

	resp, err := d.do(ctx, rawURL, proxyURL, true)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, typed(ErrDownload, fmt.Errorf("unexpected status code: %d", resp.StatusCode),
			"url", rawURL, "status", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return 0, typed(ErrDownload, fmt.Errorf("copy response body: %w", err), "url", rawURL)
	}
	return n, nil
}

// GetText fetches a small text document such as a LATEST file or a bucket
// listing.
func (d *Downloader) GetText(ctx context.Context, rawURL, proxyURL string) (string, error) {
	var sb strings.Builder
	if _, err := d.copyTo(ctx, rawURL, proxyURL, &limitedWriter{w: &sb, n: maxTextSize}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// LatestRedirect requests rawURL without following redirects and returns
// the last path segment of the Location header.
func (d *Downloader) LatestRedirect(ctx context.Context, rawURL, proxyURL string) (string, error) {
	resp, err := d.do(ctx, rawURL, proxyURL, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxTextSize))

	location := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode > 399 || location == "" {
		return "", typed(ErrDownload, fmt.Errorf("expected redirect, got status %d", resp.StatusCode),
			"url", rawURL, "status", resp.StatusCode)
	}

	tag := location[strings.LastIndex(strings.TrimRight(location, "/"), "/")+1:]
	tag = strings.TrimRight(tag, "/")
	if tag == "" {
		return "", typed(ErrDownload, fmt.Errorf("empty redirect target %q", location), "url", rawURL)
	}
	return tag, nil
}

func isObjectURL(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "s3://")
}

// limitedWriter fails once more than n bytes have been written.
type limitedWriter struct {
	w io.Writer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.n {
		return 0, fmt.Errorf("response exceeds %d bytes", maxTextSize)
	}
	n, err := l.w.Write(p)
	l.n -= int64(n)
	return n, err
}
