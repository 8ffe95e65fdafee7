// Package fetch retrieves page content from the tournament site, choosing
// between a direct HTTP client and a headless browser session depending on
// whether the target host is known to render its content client-side.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
)

// FailureKind categorizes why a fetch failed.
type FailureKind string

const (
	NetworkError  FailureKind = "network_error"
	Timeout       FailureKind = "timeout"
	RenderTimeout FailureKind = "render_timeout"
)

// Error reports a failed fetch along with the failure category.
type Error struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// defaultRenderHosts are hosts known to build their pages with client-side
// script, requiring a real browser to see match data.
var defaultRenderHosts = []string{
	"tv.dartconnect.com",
	"recap.dartconnect.com",
}

// Options tunes fetcher behavior. The zero value gets sensible defaults.
type Options struct {
	// RenderHosts lists hosts fetched through the headless browser.
	RenderHosts []string
	// SettleDelay is how long to wait after navigation for script
	// execution when no wait selector is given. This is a tolerance for
	// unpredictable script timing, not a correctness guarantee.
	SettleDelay time.Duration
	// SelectorWait bounds how long to wait for a named selector.
	SelectorWait time.Duration
	// HTTPTimeout bounds each direct HTTP request.
	HTTPTimeout time.Duration
}

func (o *Options) fillDefaults() {
	if len(o.RenderHosts) == 0 {
		o.RenderHosts = defaultRenderHosts
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 5 * time.Second
	}
	if o.SelectorWait == 0 {
		o.SelectorWait = 10 * time.Second
	}
	if o.HTTPTimeout == 0 {
		o.HTTPTimeout = 30 * time.Second
	}
}

// Fetcher fetches page content. The headless browser session is created
// lazily on first use and reused for every subsequent rendered fetch; it
// is not safe for concurrent use and callers must serialize externally.
type Fetcher struct {
	http   *resty.Client
	logger *slog.Logger
	opts   Options

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	browserBroken bool
}

// New builds a Fetcher. The direct HTTP client carries browser-like
// headers and the cloudflare bypass transport to reduce anti-bot
// rejections.
func New(logger *slog.Logger, opts Options) *Fetcher {
	opts.fillDefaults()

	httpClient := resty.New()
	httpClient.SetTimeout(opts.HTTPTimeout)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("User-Agent", userAgent)
	httpClient.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	httpClient.SetHeader("Accept-Language", "en-US,en;q=0.5")
	httpClient.SetHeader("Upgrade-Insecure-Requests", "1")

	return &Fetcher{
		http:   httpClient,
		logger: logger,
		opts:   opts,
	}
}

// NeedsRendering reports whether the URL's host is on the client-side
// rendering list.
func (f *Fetcher) NeedsRendering(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, known := range f.opts.RenderHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// Fetch retrieves the page at rawURL. waitHint, if non-empty, names a CSS
// selector whose appearance signals that the rendered content is ready;
// otherwise a fixed settle delay is used. A browser failure falls back to
// the direct HTTP path; there are no retries beyond that one hop.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, waitHint string) (string, error) {
	if f.NeedsRendering(rawURL) && !f.browserBroken {
		content, err := f.fetchRendered(ctx, rawURL, waitHint)
		if err == nil {
			return content, nil
		}
		f.logger.Warn("browser fetch failed, falling back to direct HTTP",
			"url", rawURL, "error", err)
	}
	return f.fetchDirect(ctx, rawURL)
}

// fetchDirect issues a plain GET through the resty client.
func (f *Fetcher) fetchDirect(ctx context.Context, rawURL string) (string, error) {
	resp, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return "", &Error{Kind: classifyNetErr(err), URL: rawURL, Err: err}
	}
	if resp.StatusCode() != 200 {
		return "", &Error{
			Kind: NetworkError,
			URL:  rawURL,
			Err:  fmt.Errorf("non-200 status code: %d %s", resp.StatusCode(), resp.Status()),
		}
	}
	f.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()))
	return string(resp.Body()), nil
}

// FetchBytes retrieves a binary resource (e.g. a PDF scoresheet) through
// the direct HTTP path.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &Error{Kind: classifyNetErr(err), URL: rawURL, Err: err}
	}
	if resp.StatusCode() != 200 {
		return nil, &Error{
			Kind: NetworkError,
			URL:  rawURL,
			Err:  fmt.Errorf("non-200 status code: %d %s", resp.StatusCode(), resp.Status()),
		}
	}
	return resp.Body(), nil
}

// fetchRendered navigates the shared browser tab to the URL and reads the
// rendered document.
func (f *Fetcher) fetchRendered(ctx context.Context, rawURL, waitHint string) (string, error) {
	bctx, err := f.browser()
	if err != nil {
		return "", err
	}

	var html string
	if waitHint != "" {
		// Bounded wait for the named selector to show up.
		tctx, cancel := context.WithTimeout(bctx, f.opts.SelectorWait)
		defer cancel()
		err = chromedp.Run(tctx,
			chromedp.Navigate(rawURL),
			chromedp.WaitReady(waitHint, chromedp.ByQuery),
			chromedp.OuterHTML("html", &html),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: RenderTimeout, URL: rawURL, Err: err}
		}
	} else {
		err = chromedp.Run(bctx,
			chromedp.Navigate(rawURL),
			chromedp.Sleep(f.opts.SettleDelay),
			chromedp.OuterHTML("html", &html),
		)
	}
	if err != nil {
		return "", &Error{Kind: NetworkError, URL: rawURL, Err: err}
	}
	f.logger.Debug("rendered page", "url", rawURL, "bytes", len(html))
	return html, nil
}

// browser lazily starts the shared headless session. A startup failure
// marks the session broken so later calls go straight to direct HTTP.
func (f *Fetcher) browser() (context.Context, error) {
	if f.browserCtx != nil {
		return f.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		f.browserBroken = true
		return nil, fmt.Errorf("starting headless browser: %w", err)
	}

	f.logger.Info("headless browser session started")
	f.browserCtx = browserCtx
	f.browserCancel = browserCancel
	f.allocCancel = allocCancel
	return f.browserCtx, nil
}

// Close releases the browser session if one was started. The Fetcher
// remains usable for direct HTTP fetches afterwards.
func (f *Fetcher) Close() {
	if f.browserCancel != nil {
		f.browserCancel()
		f.browserCancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
	if f.browserCtx != nil {
		f.logger.Info("headless browser session closed")
		f.browserCtx = nil
	}
}

func classifyNetErr(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return NetworkError
}
