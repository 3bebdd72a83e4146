package browser

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/ratelimit"
)

var (
	ErrTimeout          = errors.New("request timed out")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrConnection       = errors.New("connection failed")
	ErrBlocked          = errors.New("blocked by anti-bot page")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Browser fetches server-rendered pages over plain HTTP with browser-like
// headers. It never executes JavaScript.
type Browser struct {
	client  *http.Client
	opts    *Options
	limiter ratelimit.RateLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Options struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	MaxRedirects   int
	MaxRetries     int
	RetryDelay     time.Duration
	MaxBodyBytes   int64
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Timeout:        15 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		MaxRedirects:   10,
		MaxRetries:     0,
		RetryDelay:     time.Second,
		MaxBodyBytes:   10 << 20,
		ExtraHeaders: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding":           "gzip, deflate, br",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
		},
	}
}

// Page is a fetched document.
type Page struct {
	RequestURL string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (p *Page) HTML() string {
	return string(p.Body)
}

func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func New(opts *Options, logger *slog.Logger) *Browser {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Browser{
		opts:    opts,
		limiter: ratelimit.Unlimited{},
		logger:  logger.With("component", "browser"),
	}
	b.client = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: b.checkRedirect,
	}
	return b
}

// WithTransport swaps the underlying round tripper; tests inject httpmock here.
func (b *Browser) WithTransport(rt http.RoundTripper) *Browser {
	b.client.Transport = rt
	return b
}

func (b *Browser) WithLimiter(l ratelimit.RateLimiter) *Browser {
	if l != nil {
		b.limiter = l
	}
	return b
}

func (b *Browser) WithMetrics(m *metrics.Metrics) *Browser {
	b.metrics = m
	return b
}

func (b *Browser) Options() Options {
	return *b.opts
}

func (b *Browser) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= b.opts.MaxRedirects {
		return ErrTooManyRedirects
	}
	for k, v := range via[0].Header {
		if _, ok := req.Header[k]; !ok {
			req.Header[k] = v
		}
	}
	return nil
}

// Get fetches url following redirects, bounded by the default timeout.
func (b *Browser) Get(ctx context.Context, url string) (*Page, error) {
	return b.GetWithTimeout(ctx, url, b.opts.Timeout)
}

// GetWithTimeout fetches url with its own deadline. Network failures and
// 5xx responses are retried MaxRetries times. Attempts start at least
// RetryDelay apart, plus up to half of it as jitter.
func (b *Browser) GetWithTimeout(ctx context.Context, url string, timeout time.Duration) (*Page, error) {
	var lastErr error
	pause := ratelimit.NewJittered(b.opts.RetryDelay, b.opts.RetryDelay+b.opts.RetryDelay/2)

	for i := 0; i <= b.opts.MaxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying request", "attempt", i+1, "url", url)
		}
		if err := pause.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := b.get(ctx, url, timeout)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
		b.logger.Warn("request failed", "error", err, "attempt", i+1, "url", url)
	}

	return nil, lastErr
}

func (b *Browser) get(ctx context.Context, url string, timeout time.Duration) (*Page, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", b.opts.UserAgent)
	req.Header.Set("Accept-Language", b.opts.AcceptLanguage)
	for k, v := range b.opts.ExtraHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	b.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		err = classify(err)
		b.metrics.IncError(ErrorType(err))
		return nil, err
	}
	defer resp.Body.Close()

	b.metrics.IncRequest(statusClass(resp.StatusCode))

	body, err := readBody(resp, b.opts.MaxBodyBytes)
	if err != nil {
		err = classify(err)
		b.metrics.IncError(ErrorType(err))
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	page := &Page{
		RequestURL: url,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{Code: resp.StatusCode, URL: page.FinalURL}
		b.metrics.IncError(ErrorType(err))
		return page, err
	}

	return page, nil
}

// readBody decompresses the response; the explicit Accept-Encoding header
// disables the transport's own gzip handling.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	default:
		reader = resp.Body
	}
	if limit > 0 {
		reader = io.LimitReader(reader, limit)
	}
	return io.ReadAll(reader)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return fmt.Errorf("%w: %v", ErrTooManyRedirects, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

func retryable(err error) bool {
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code >= 500
}

// ErrorType maps an error to a metrics label.
func ErrorType(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTooManyRedirects):
		return "redirects"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.As(err, &statusErr):
		if statusErr.Code >= 500 {
			return "status_5xx"
		}
		return "status_4xx"
	case errors.Is(err, ErrConnection):
		return "connection"
	default:
		return "other"
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

var botMarkers = []string{
	"Enter the characters you see below",
	"/errors/validateCaptcha",
	"api-services-support@amazon.com",
	"Type the characters you see in this image",
	"punish-component",
	"_____tmd_____/punish",
}

// CheckBotProtection returns ErrBlocked when the page is a captcha or
// interstitial rather than the requested document.
func CheckBotProtection(page *Page) error {
	html := page.HTML()
	for _, marker := range botMarkers {
		if strings.Contains(html, marker) {
			return fmt.Errorf("%w: %s", ErrBlocked, page.FinalURL)
		}
	}
	return nil
}
