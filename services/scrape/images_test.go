package scrape

import (
	"bytes"
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"dragdex-backend/lib/objstore"
)

const imagePageURL = "https://wiki.example.test/Season_14"

func imagePage(body string) string {
	return "<html><body><main class=\"mw-parser-output\">" + body + "</main></body></html>"
}

func newTestPipeline(t *testing.T, cfg ImageConfig) (*ImagePipeline, *objstore.MemStore, *httpmock.MockTransport) {
	t.Helper()
	store := objstore.NewMemStore()
	cfg.Enabled = true
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 8
	}
	p := NewImagePipeline(store, cfg)
	transport := httpmock.NewMockTransport()
	p.client.GetClient().Transport = transport
	return p, store, transport
}

func TestImagesDisabledIsAnnotatedNoop(t *testing.T) {
	p := NewImagePipeline(objstore.NewMemStore(), ImageConfig{Enabled: false})
	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, "image scraping disabled", result.Note)
	require.Zero(t, result.Downloaded)
}

func TestImagesContentHashDedup(t *testing.T) {
	p, store, transport := newTestPipeline(t, ImageConfig{})

	// the same bytes reachable through two distinct URLs must land in
	// the object store exactly once
	payload := bytes.Repeat([]byte{0xAB}, 64)
	page := imagePage(`
		<figure class="pi-item"><img src="https://img.example.test/a/willow.jpg"/></figure>
		<figure class="pi-item"><img src="https://img.example.test/b/willow-copy.jpg"/></figure>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	transport.RegisterResponder("GET", "https://img.example.test/a/willow.jpg", httpmock.NewBytesResponder(200, payload))
	transport.RegisterResponder("GET", "https://img.example.test/b/willow-copy.jpg", httpmock.NewBytesResponder(200, payload))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 2, result.Candidates)
	require.Equal(t, 1, result.Downloaded)
	require.Equal(t, 1, result.Deduped)
	require.Len(t, store.Keys(), 1)
	require.Contains(t, store.Keys()[0], "contestants/willow-pill/")
}

func TestImagesAccumulateAcrossStrategies(t *testing.T) {
	p, store, transport := newTestPipeline(t, ImageConfig{})

	// an infobox portrait must not shadow the gallery shots; the same
	// URL appearing under two strategies counts once
	page := imagePage(`
		<figure class="pi-item"><img src="https://img.example.test/portrait.jpg"/></figure>
		<div class="gallery">
			<img src="https://img.example.test/portrait.jpg"/>
			<img src="https://img.example.test/look-1.jpg"/>
			<img src="https://img.example.test/look-2.jpg"/>
		</div>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	transport.RegisterResponder("GET", "https://img.example.test/portrait.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x05}, 64)))
	transport.RegisterResponder("GET", "https://img.example.test/look-1.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x06}, 64)))
	transport.RegisterResponder("GET", "https://img.example.test/look-2.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x07}, 64)))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 3, result.Candidates)
	require.Equal(t, 3, result.Downloaded)
	require.Len(t, store.Keys(), 3)
}

func TestImagesStripResizeSegments(t *testing.T) {
	p, store, transport := newTestPipeline(t, ImageConfig{})

	raw := "https://img.example.test/willow.png/revision/latest/scale-to-width-down/350?cb=123"
	page := imagePage(`<figure class="pi-item"><img src="` + raw + `"/></figure>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	// only the stripped full-resolution URL resolves
	transport.RegisterResponder("GET", "https://img.example.test/willow.png",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x01}, 64)))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Downloaded)
	require.Empty(t, result.Errors)
	require.Contains(t, store.Keys()[0], ".png")
}

func TestImagesExcludeChromeAndTinyFiles(t *testing.T) {
	p, store, transport := newTestPipeline(t, ImageConfig{MinBytes: 32})

	page := imagePage(`
		<img src="https://img.example.test/site-logo.png" width="200"/>
		<img src="https://img.example.test/sprite-icons.png" width="200"/>
		<img src="https://img.example.test/tiny.jpg" width="200"/>
		<img src="https://img.example.test/willow.jpg" width="200"/>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	transport.RegisterResponder("GET", "https://img.example.test/tiny.jpg",
		httpmock.NewBytesResponder(200, []byte{0x01}))
	transport.RegisterResponder("GET", "https://img.example.test/willow.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x02}, 64)))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Downloaded)
	require.Len(t, store.Keys(), 1)
}

func TestImagesPartialDownloadFailure(t *testing.T) {
	p, _, transport := newTestPipeline(t, ImageConfig{})

	page := imagePage(`
		<figure class="pi-item"><img src="https://img.example.test/gone.jpg"/></figure>
		<figure class="pi-item"><img src="https://img.example.test/ok.jpg"/></figure>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	transport.RegisterResponder("GET", "https://img.example.test/gone.jpg", httpmock.NewStringResponder(404, ""))
	transport.RegisterResponder("GET", "https://img.example.test/ok.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x03}, 64)))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Downloaded)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0].Url, "gone.jpg")
}

func TestImagesPageLoadFailure(t *testing.T) {
	p, _, transport := newTestPipeline(t, ImageConfig{})
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(500, ""))

	_, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.Error(t, err)
}

func TestImagesLazyLoadedDataSrc(t *testing.T) {
	p, _, transport := newTestPipeline(t, ImageConfig{})

	page := imagePage(`<figure class="pi-item">
		<img src="data:image/gif;base64,R0lGOD" data-src="https://img.example.test/lazy.jpg"/>
	</figure>`)
	transport.RegisterResponder("GET", imagePageURL, httpmock.NewStringResponder(200, page))
	transport.RegisterResponder("GET", "https://img.example.test/lazy.jpg",
		httpmock.NewBytesResponder(200, bytes.Repeat([]byte{0x04}, 64)))

	result, err := p.ScrapeImages(context.Background(), "Willow Pill", imagePageURL, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Downloaded)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "willow-pill", slugify("Willow Pill"))
	require.Equal(t, "jimbo", slugify("Jimbo!"))
	require.Equal(t, "unknown", slugify("!!!"))
}

func TestUrlVariants(t *testing.T) {
	variants := urlVariants("https://img.example.test/a.png/revision/latest/scale-to-width-down/350?cb=1")
	require.Equal(t, []string{"https://img.example.test/a.png", "https://img.example.test/a.png/revision/latest/scale-to-width-down/350?cb=1"}, variants)

	require.Equal(t, []string{"https://img.example.test/a.png"}, urlVariants("https://img.example.test/a.png"))
}
