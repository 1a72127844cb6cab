package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// consent dialog buttons seen across the wiki hosts we scrape; clicking
// is best-effort, a missing dialog is the happy path.
var consentSelectors = []string{
	`div[data-tracking-opt-in-accept="true"]`,
	`#onetrust-accept-btn-handler`,
	`button[aria-label="ACCEPT"]`,
	`.cookie-banner button.accept`,
}

// RodFetcher drives a headless chrome instance through go-rod. One
// browser, one open page at a time: Open snapshots the rendered DOM and
// closes the tab before returning so a long walk never accumulates
// renderer processes.
type RodFetcher struct {
	browser *rod.Browser
	cfg     Config
}

func NewRodFetcher(cfg Config) (*RodFetcher, error) {
	controlUrl, err := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, DriverInitError{Err: err}
	}

	browser := rod.New().ControlURL(controlUrl)
	if err := browser.Connect(); err != nil {
		return nil, DriverInitError{Err: err}
	}

	return &RodFetcher{browser: browser, cfg: cfg}, nil
}

type rodPage struct {
	url string
	doc *goquery.Document
}

func (p rodPage) URL() string { return p.url }

func (f *RodFetcher) Open(ctx context.Context, url string) (Page, error) {
	ctx, span := tracer.Start(ctx, "rod:Open")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	page, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create page")
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.cfg.pageTimeout())

	if err := page.Navigate(url); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}

	// wait for the DOM only; the target sites carry long-polling ads
	// that keep the network busy forever, so "network idle" never comes
	if err := page.WaitLoad(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page never finished loading")
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}

	f.dismissConsent(ctx, page)

	html, err := page.HTML()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rendered html")
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse rendered html")
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, err)
	}

	return rodPage{url: url, doc: doc}, nil
}

func (f *RodFetcher) dismissConsent(ctx context.Context, page *rod.Page) {
	for _, selector := range consentSelectors {
		el, err := page.Timeout(2 * time.Second).Element(selector)
		if err != nil {
			continue
		}
		err = el.Click(proto.InputMouseButtonLeft, 1)
		if err != nil {
			slog.DebugContext(ctx, "consent dialog click failed",
				"selector", selector, "err", err)
			continue
		}
		slog.DebugContext(ctx, "dismissed consent dialog", "selector", selector)
		return
	}
}

func (f *RodFetcher) ExtractRows(ctx context.Context, page Page, recipe Recipe) (ExtractResult, error) {
	handle, ok := page.(rodPage)
	if !ok {
		return ExtractResult{}, fmt.Errorf("page %q was not opened by the rod driver", page.URL())
	}
	return extractFromDocument(ctx, handle.doc, recipe)
}

func (f *RodFetcher) Close(ctx context.Context) error {
	return f.browser.Close()
}
