package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/browser"
	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

const (
	ReasonCategoryPage     = "category_page"
	ReasonBrowsePage       = "browse_page"
	ReasonTimeout          = "timeout"
	ReasonTooManyRedirects = "too_many_redirects"
	ReasonHTTPStatus       = "http_status"
	ReasonNetwork          = "network_error"
)

// DefaultTimeout bounds a single short link resolution.
const DefaultTimeout = 15 * time.Second

var shoppingSentinels = []string{"keep shopping", "continue shopping"}

// PageGetter is the HTTP capability the resolver needs.
type PageGetter interface {
	GetWithTimeout(ctx context.Context, url string, timeout time.Duration) (*browser.Page, error)
}

// Result is a resolved product link. A rejected result carries the reason
// and no usable URL.
type Result struct {
	URL      string
	Kind     models.Kind
	Rejected bool
	Reason   string
}

type Resolver struct {
	client  PageGetter
	timeout time.Duration
	logger  *slog.Logger
}

func New(client PageGetter, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve turns raw into a clean product URL. Only short links touch the
// network; affiliate links are a pure query rewrite.
func (r *Resolver) Resolve(ctx context.Context, rules links.Rules, raw string) Result {
	raw = links.Normalize(raw)
	kind := links.Classify(rules, raw)

	switch kind {
	case models.KindCategoryPage:
		return reject(raw, kind, ReasonCategoryPage)
	case models.KindShortLink:
		return r.resolveShort(ctx, rules, raw)
	case models.KindAffiliateProduct:
		return Result{URL: links.StripTracking(rules, raw), Kind: kind}
	default:
		return Result{URL: raw, Kind: kind}
	}
}

func (r *Resolver) resolveShort(ctx context.Context, rules links.Rules, raw string) Result {
	kind := models.KindShortLink
	logger := r.logger.With("url", raw)

	page, err := r.client.GetWithTimeout(ctx, raw, r.timeout)
	if err != nil {
		reason := failureReason(err)
		logger.Warn("short link resolution failed", "reason", reason, "error", err)
		return reject(raw, kind, reason)
	}

	final := page.FinalURL
	logger.Debug("short link resolved", "final_url", final)

	if links.Classify(rules, final) == models.KindCategoryPage {
		logger.Info("short link points to a listing page", "final_url", final)
		return reject(final, kind, ReasonCategoryPage)
	}
	if isBrowsePath(final) || hasShoppingSentinel(page) {
		logger.Info("short link points to a browse page", "final_url", final)
		return reject(final, kind, ReasonBrowsePage)
	}

	clean := links.StripTracking(rules, final)
	if links.ExtractID(rules, clean) == "" {
		logger.Warn("resolved url carries no identifier", "final_url", final)
	}
	return Result{URL: clean, Kind: kind}
}

// isBrowsePath reports whether a path segment of raw is exactly "browse".
func isBrowsePath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if strings.EqualFold(seg, "browse") {
			return true
		}
	}
	return false
}

func hasShoppingSentinel(page *browser.Page) bool {
	text := page.HTML()
	if doc, err := page.Document(); err == nil {
		text = doc.Find("body").Text()
	}
	text = strings.ToLower(text)
	for _, s := range shoppingSentinels {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	var statusErr *browser.StatusError
	switch {
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, browser.ErrTooManyRedirects):
		return ReasonTooManyRedirects
	case errors.As(err, &statusErr):
		return ReasonHTTPStatus
	default:
		return ReasonNetwork
	}
}

func reject(url string, kind models.Kind, reason string) Result {
	return Result{URL: url, Kind: kind, Rejected: true, Reason: reason}
}
