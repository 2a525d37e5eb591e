package crawler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estefy/inmoworker/internal/extractor"
	"estefy/inmoworker/internal/fetch"
	"estefy/inmoworker/internal/pipeline"
	apperr "estefy/inmoworker/pkg/errors"
)

// pageFetcher serves canned HTML per URL.
type pageFetcher struct {
	pages map[string]string
	codes map[string]int
	errs  map[string]error
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch: %s", url)
	}
	code := 200
	if c, ok := f.codes[url]; ok {
		code = c
	}
	return &fetch.Response{URL: url, StatusCode: code, Body: body, Tier: fetch.TierHTTP}, nil
}

func listPage(next string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range links {
		fmt.Fprintf(&b, `<div data-qa="posting PROPERTY"><a href=%q>ver</a></div>`, l)
	}
	if next != "" {
		fmt.Fprintf(&b, `<a aria-label="Siguiente" href=%q>Siguiente</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func detailPage(titulo, precio, direccion string) string {
	return fmt.Sprintf(`<html><body>
		<h1>%s</h1>
		<div class="price-value"><span><span>%s</span></span></div>
		<section id="map-section"><h4>%s</h4></section>
	</body></html>`, titulo, precio, direccion)
}

type collector struct {
	listings []*pipeline.Listing
}

func (c *collector) Name() string { return "collector" }

func (c *collector) Write(l *pipeline.Listing) error {
	copied := *l
	c.listings = append(c.listings, &copied)
	return nil
}

func (c *collector) Flush() error { return nil }
func (c *collector) Close() error { return nil }

func newTestPipeline(t *testing.T) (*pipeline.Pipeline, *collector) {
	t.Helper()
	col := &collector{}
	p, err := pipeline.New(pipeline.Options{}, col)
	require.NoError(t, err)
	return p, col
}

func newTestCrawler(f Fetcher, startURL string, maxPages int) *Crawler {
	return New(f, extractor.NewZonaprop(), Config{StartURL: startURL, MaxPages: maxPages})
}

// sitePages builds a site with two full pages of three ads each and an empty
// third page.
func sitePages() map[string]string {
	pages := map[string]string{
		"https://z.test/p1": listPage("https://z.test/p2",
			"https://z.test/a1", "https://z.test/a2", "https://z.test/a3"),
		"https://z.test/p2": listPage("https://z.test/p3",
			"https://z.test/a4", "https://z.test/a5", "https://z.test/a6"),
		"https://z.test/p3": listPage(""),
	}
	for i := 1; i <= 6; i++ {
		url := fmt.Sprintf("https://z.test/a%d", i)
		pages[url] = detailPage(fmt.Sprintf("Depto %d", i), "$ 450.000", fmt.Sprintf("Calle %d", i))
	}
	return pages
}

func TestRunExpandsPagesUntilPaginationEnds(t *testing.T) {
	f := &pageFetcher{pages: sitePages()}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.Equal(t, 3, state.PagesVisited)
	assert.Equal(t, 6, state.ItemsFound)
	assert.Equal(t, 6, state.Persisted)
	assert.Equal(t, 0, state.ItemFailures)
	assert.False(t, state.Blocked)
	assert.Len(t, col.listings, 6)
}

func TestRunStopsAtPageBudget(t *testing.T) {
	f := &pageFetcher{pages: sitePages()}
	pipe, _ := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 1).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.Equal(t, 1, state.PagesVisited)
	assert.Equal(t, 3, state.Persisted)
	assert.NotContains(t, f.calls, "https://z.test/p2")
}

func TestRunStopsAfterConsecutiveEmptyPages(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{
		"https://z.test/p1": listPage("https://z.test/e1", "https://z.test/a1"),
		"https://z.test/a1": detailPage("Depto 1", "$ 450.000", "Calle 1"),
		"https://z.test/e1": listPage("https://z.test/e2"),
		"https://z.test/e2": listPage("https://z.test/e3"),
	}}
	pipe, _ := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.Equal(t, 3, state.PagesVisited)
	assert.NotContains(t, f.calls, "https://z.test/e3")
	assert.Equal(t, 1, state.Persisted)
}

func TestRunSkipsFailingItems(t *testing.T) {
	pages := map[string]string{
		"https://z.test/p1": listPage("",
			"https://z.test/a1", "https://z.test/a2", "https://z.test/a3"),
		"https://z.test/a1": detailPage("Depto 1", "$ 450.000", "Calle 1"),
		// a2 returns a transport error, a3 has no recognizable fields
		"https://z.test/a3": "<html><body><div>nada</div></body></html>",
	}
	f := &pageFetcher{
		pages: pages,
		errs: map[string]error{
			"https://z.test/a2": apperr.NewTransport("zonaprop", "https://z.test/a2", assert.AnError),
		},
	}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.Equal(t, 3, state.ItemsFound)
	assert.Equal(t, 1, state.Persisted)
	assert.Equal(t, 2, state.ItemFailures)
	assert.Len(t, col.listings, 1)
}

func TestRunSkipsDelistedItems(t *testing.T) {
	// A removed ad comes back as a 404 page with nothing to extract. That is
	// one skipped item, not a block, and the rest of the page is still crawled.
	f := &pageFetcher{
		pages: map[string]string{
			"https://z.test/p1": listPage("",
				"https://z.test/a1", "https://z.test/a2"),
			"https://z.test/a1": "<html><body>aviso no encontrado</body></html>",
			"https://z.test/a2": detailPage("Depto 2", "$ 450.000", "Calle 2"),
		},
		codes: map[string]int{"https://z.test/a1": 404},
	}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.False(t, state.Blocked)
	assert.Equal(t, 1, state.ItemFailures)
	assert.Equal(t, 1, state.Persisted)
	assert.Len(t, col.listings, 1)
}

func TestRunStopsWhenItemFetchIsBlocked(t *testing.T) {
	f := &pageFetcher{
		pages: map[string]string{
			"https://z.test/p1": listPage("https://z.test/p2",
				"https://z.test/a1", "https://z.test/a2"),
			"https://z.test/a1": detailPage("Depto 1", "$ 450.000", "Calle 1"),
		},
		errs: map[string]error{
			"https://z.test/a2": apperr.NewBlocked("fetch", "https://z.test/a2", 10),
		},
	}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.Error(t, err)
	assert.True(t, apperr.IsBlocked(err))

	assert.True(t, state.Blocked)
	assert.Equal(t, 1, state.Persisted)
	assert.Len(t, col.listings, 1)
	assert.NotContains(t, f.calls, "https://z.test/p2")
}

func TestRunKeepsPartialResultsWhenListPageIsBlocked(t *testing.T) {
	f := &pageFetcher{
		pages: map[string]string{
			"https://z.test/p1": listPage("https://z.test/p2", "https://z.test/a1"),
			"https://z.test/a1": detailPage("Depto 1", "$ 450.000", "Calle 1"),
		},
		errs: map[string]error{
			"https://z.test/p2": apperr.NewBlocked("fetch", "https://z.test/p2", 10),
		},
	}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.Error(t, err)
	assert.True(t, state.Blocked)
	assert.Equal(t, 1, state.PagesVisited)
	assert.Equal(t, 1, state.Persisted)
	assert.Len(t, col.listings, 1)
}

func TestRunDeduplicatesRepeatedAds(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{
		"https://z.test/p1": listPage("https://z.test/p2", "https://z.test/a1"),
		"https://z.test/p2": listPage("", "https://z.test/a1"),
		"https://z.test/a1": detailPage("Depto 1", "$ 450.000", "Calle 1"),
	}}
	pipe, col := newTestPipeline(t)

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(context.Background(), pipe)
	require.NoError(t, err)

	assert.Equal(t, 2, state.ItemsFound)
	assert.Equal(t, 1, state.Persisted)
	assert.Equal(t, 1, state.Duplicates)
	assert.Len(t, col.listings, 1)
}

func TestRunHonorsContextCancel(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{}}
	pipe, _ := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := newTestCrawler(f, "https://z.test/p1", 0).Run(ctx, pipe)
	require.Error(t, err)
	assert.Equal(t, 0, state.PagesVisited)
	assert.Empty(t, f.calls)
}
