package scrape

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dragdex-backend/lib/objstore"
	"dragdex-backend/lib/telemetry"
	"dragdex-backend/lib/textutil"
)

// ImageConfig tunes the contestant image pipeline.
type ImageConfig struct {
	Enabled bool `json:"enabled"`
	// MaxPerContestant caps candidates per page; 0 means the default.
	MaxPerContestant int `json:"maxPerContestant"`
	// MinBytes rejects tracking pixels and thumbnails; 0 means the default.
	MinBytes int           `json:"minBytes"`
	Timeout  time.Duration `json:"timeout"`
}

const (
	defaultMaxPerContestant = 8
	defaultMinImageBytes    = 2048
	hashKeyLen              = 16
)

// ImageDownloadError records one candidate URL that could not be
// fetched. Collected per result, never fatal to the pipeline.
type ImageDownloadError struct {
	Url string
	Err error
}

func (e ImageDownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Url, e.Err)
}

func (e ImageDownloadError) Unwrap() error {
	return e.Err
}

// ImageResult summarizes one contestant's pipeline run. Success means
// at least one image was downloaded or deduplicated; per-candidate
// failures only show up in Errors.
type ImageResult struct {
	Candidates int
	Downloaded int
	Deduped    int
	StoredURLs []string
	Errors     []ImageDownloadError
	Note       string
}

// ImagePipeline discovers contestant photos on a wiki page, downloads
// them, and stores them keyed by content hash so the same image reached
// through two URLs lands in the object store exactly once.
type ImagePipeline struct {
	client *resty.Client
	store  objstore.Store
	// seen maps content hash to stored key, a warm layer in front of
	// objstore.Exists.
	seen *lru.Cache[string, string]
	cfg  ImageConfig
}

func NewImagePipeline(store objstore.Store, cfg ImageConfig) *ImagePipeline {
	jar, _ := cookiejar.New(nil)
	client := resty.New().SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	telemetry.InstrumentResty(client, "services/scrape/images")

	seen, _ := lru.New[string, string](512)
	return &ImagePipeline{
		client: client,
		store:  store,
		seen:   seen,
		cfg:    cfg,
	}
}

// ScrapeImages runs the pipeline for one contestant against a source
// page. When the pipeline is disabled it returns an annotated empty
// result and no error.
func (p *ImagePipeline) ScrapeImages(ctx context.Context, dragName, sourceUrl, seasonHint string) (ImageResult, error) {
	ctx, span := tracer.Start(ctx, "ScrapeImages")
	defer span.End()
	span.SetAttributes(
		attribute.String("drag_name", dragName),
		attribute.String("url", sourceUrl),
	)

	if !p.cfg.Enabled {
		return ImageResult{Note: "image scraping disabled"}, nil
	}

	res, err := p.client.R().SetContext(ctx).Get(sourceUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ImageResult{}, fmt.Errorf("load image source page: %w", err)
	}
	if res.StatusCode() >= 400 {
		err := fmt.Errorf("load image source page: status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ImageResult{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ImageResult{}, fmt.Errorf("parse image source page: %w", err)
	}

	candidates := p.discover(doc, dragName, seasonHint)
	result := ImageResult{Candidates: len(candidates)}

	for _, candidate := range candidates {
		data, finalUrl, err := p.download(ctx, candidate)
		if err != nil {
			result.Errors = append(result.Errors, ImageDownloadError{Url: candidate, Err: err})
			continue
		}
		if len(data) < p.minBytes() {
			continue
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])[:hashKeyLen]
		key := fmt.Sprintf("contestants/%s/%s%s", slugify(dragName), hash, extensionFor(finalUrl))

		stored, dup, err := p.storeOnce(ctx, hash, key, data)
		if err != nil {
			result.Errors = append(result.Errors, ImageDownloadError{Url: candidate, Err: err})
			continue
		}
		if dup {
			result.Deduped++
		} else {
			result.Downloaded++
		}
		result.StoredURLs = append(result.StoredURLs, stored)
	}

	slog.DebugContext(ctx, "image pipeline finished",
		"dragName", dragName,
		"candidates", result.Candidates,
		"downloaded", result.Downloaded,
		"deduped", result.Deduped,
		"failed", len(result.Errors))
	return result, nil
}

func (p *ImagePipeline) minBytes() int {
	if p.cfg.MinBytes > 0 {
		return p.cfg.MinBytes
	}
	return defaultMinImageBytes
}

func (p *ImagePipeline) maxPerContestant() int {
	if p.cfg.MaxPerContestant > 0 {
		return p.cfg.MaxPerContestant
	}
	return defaultMaxPerContestant
}

// Selector strategies in priority order. Every strategy contributes,
// deduplicated by URL, so an infobox portrait and gallery shots both
// survive; the loose fallback only runs when all of them miss.
var imageStrategies = []string{
	"figure.pi-item img, .pi-image-thumbnail, aside.portable-infobox img",
	"table.infobox img",
	".wikia-gallery img, ul.gallery img, div.gallery img",
	"div.mw-parser-output figure img, div.mw-parser-output .thumb img",
}

var chromeUrlPattern = regexp.MustCompile(`(?i)sprite|wordmark|favicon|site-logo|/logo|icon|\.svg($|\?)|^data:`)

func (p *ImagePipeline) discover(doc *goquery.Document, dragName, seasonHint string) []string {
	var urls []string
	seen := map[string]bool{}
	for _, strategy := range imageStrategies {
		urls = appendImageUrls(urls, seen, doc.Find(strategy), false)
	}
	if len(urls) == 0 {
		urls = appendImageUrls(urls, seen, doc.Find("img"), true)
	}

	urls = preferHinted(doc, urls, dragName, seasonHint)
	if limit := p.maxPerContestant(); len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}

func appendImageUrls(urls []string, seen map[string]bool, sel *goquery.Selection, loose bool) []string {
	sel.Each(func(_ int, img *goquery.Selection) {
		src := imageSrc(img)
		if src == "" || seen[src] {
			return
		}
		if chromeUrlPattern.MatchString(src) {
			return
		}
		if loose && !plausibleDimensions(img) {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

func imageSrc(img *goquery.Selection) string {
	// Lazy-loaded wiki images keep the real URL in data-src.
	if src, ok := img.Attr("data-src"); ok && strings.HasPrefix(src, "http") {
		return src
	}
	src, _ := img.Attr("src")
	if !strings.HasPrefix(src, "http") {
		return ""
	}
	return src
}

func plausibleDimensions(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if raw, ok := img.Attr(attr); ok {
			if n, err := strconv.Atoi(raw); err == nil && n < 100 {
				return false
			}
		}
	}
	return true
}

// preferHinted narrows candidates to the ones mentioning the
// contestant (and season, when given) in their alt text or URL. When
// nothing matches the hint the full candidate list stays, since infobox
// images rarely carry useful alt text.
func preferHinted(doc *goquery.Document, urls []string, dragName, seasonHint string) []string {
	nameKey := textutil.NormalizeName(dragName)
	seasonKey := textutil.NormalizeName(seasonHint)
	if nameKey == "" {
		return urls
	}

	altByUrl := map[string]string{}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := imageSrc(img); src != "" {
			alt, _ := img.Attr("alt")
			altByUrl[src] = alt
		}
	})

	// Hints promote, never veto: season matches sort first, name
	// matches next, and if nothing matches at all the full candidate
	// list stays.
	var seasonHinted, nameHinted []string
	for _, u := range urls {
		haystack := textutil.NormalizeName(altByUrl[u] + " " + u)
		if !strings.Contains(haystack, nameKey) {
			continue
		}
		if seasonKey != "" && strings.Contains(haystack, seasonKey) {
			seasonHinted = append(seasonHinted, u)
		} else {
			nameHinted = append(nameHinted, u)
		}
	}
	if len(seasonHinted) > 0 || len(nameHinted) > 0 {
		return append(seasonHinted, nameHinted...)
	}
	return urls
}

var (
	revisionSuffix = regexp.MustCompile(`/revision/[^?]*`)
	scaleSegment   = regexp.MustCompile(`/(scale-to-width-down|zoom-crop|thumbnail|smart)/[^/?]+`)
)

// urlVariants orders download attempts from most original to as-given:
// wiki CDNs serve the full resolution file once the revision and
// resize path segments are stripped.
func urlVariants(raw string) []string {
	stripped := revisionSuffix.ReplaceAllString(raw, "")
	stripped = scaleSegment.ReplaceAllString(stripped, "")
	if i := strings.IndexByte(stripped, '?'); i >= 0 {
		stripped = stripped[:i]
	}
	if stripped != raw && stripped != "" {
		return []string{stripped, raw}
	}
	return []string{raw}
}

func (p *ImagePipeline) download(ctx context.Context, candidate string) ([]byte, string, error) {
	var lastErr error
	for _, variant := range urlVariants(candidate) {
		res, err := p.client.R().SetContext(ctx).Get(variant)
		if err != nil {
			lastErr = err
			continue
		}
		if res.StatusCode() >= 400 {
			lastErr = fmt.Errorf("status %d", res.StatusCode())
			continue
		}
		return res.Body(), variant, nil
	}
	return nil, "", lastErr
}

// storeOnce uploads data under key unless the content hash was already
// stored, checking the warm cache first and the object store second.
func (p *ImagePipeline) storeOnce(ctx context.Context, hash, key string, data []byte) (url string, dup bool, err error) {
	if cachedKey, ok := p.seen.Get(hash); ok {
		return p.store.PublicURL(cachedKey), true, nil
	}
	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return "", false, err
	}
	if exists {
		p.seen.Add(hash, key)
		return p.store.PublicURL(key), true, nil
	}
	url, err = p.store.Put(ctx, key, data, contentTypeFor(key))
	if err != nil {
		return "", false, err
	}
	p.seen.Add(hash, key)
	return url, false, nil
}

func slugify(name string) string {
	name = strings.ToLower(textutil.CollapseWhitespace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

func extensionFor(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	lower := strings.ToLower(url)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ".jpg"
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
