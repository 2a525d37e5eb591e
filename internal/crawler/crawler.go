package crawler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"estefy/inmoworker/helpers"
	"estefy/inmoworker/internal/extractor"
	"estefy/inmoworker/internal/fetch"
	"estefy/inmoworker/internal/pipeline"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// maxEmptyPages ends a run after this many consecutive pages without item
// links, the portal is padding pagination with dead pages.
const maxEmptyPages = 2

// Fetcher retrieves one URL, escalating strategies as needed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Config tunes one source's crawl.
type Config struct {
	StartURL     string
	MaxPages     int // 0 follows pagination until it runs out
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
	PageDelayMin time.Duration
	PageDelayMax time.Duration
}

// RunState summarizes one crawl round.
type RunState struct {
	Source       string
	PagesVisited int
	ItemsFound   int
	Persisted    int
	Duplicates   int
	Dropped      int
	ItemFailures int
	Blocked      bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Crawler walks one portal's pagination: every results page is expanded into
// its detail fetches, each detail page goes through the pipeline, then
// pagination advances. A single crawl is strictly sequential, bursts of
// parallel fetches are what the portals key on.
type Crawler struct {
	source  string
	fetcher Fetcher
	ext     *extractor.Extractor
	cfg     Config
	log     zerolog.Logger
}

// New builds a crawler for one source.
func New(fetcher Fetcher, ext *extractor.Extractor, cfg Config) *Crawler {
	return &Crawler{
		source:  ext.Source(),
		fetcher: fetcher,
		ext:     ext,
		cfg:     cfg,
		log:     logger.ForSource(ext.Source()),
	}
}

// Source returns the portal this crawler reads.
func (c *Crawler) Source() string {
	return c.source
}

// Run crawls from the configured start URL until pagination ends, the page
// budget is spent, or the site blocks us for good. Listings persisted before
// a stop stay persisted; the partial state is returned alongside any error.
func (c *Crawler) Run(ctx context.Context, pipe *pipeline.Pipeline) (*RunState, error) {
	state := &RunState{Source: c.source, StartedAt: time.Now()}
	defer func() { state.FinishedAt = time.Now() }()

	url := c.cfg.StartURL
	emptyPages := 0

	for url != "" {
		if c.cfg.MaxPages > 0 && state.PagesVisited >= c.cfg.MaxPages {
			c.log.Info().Int("pages", state.PagesVisited).Msg("page budget spent")
			break
		}
		if err := ctx.Err(); err != nil {
			return c.finish(state, pipe), apperr.NewTransport(c.source, url, err)
		}

		resp, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			state.Blocked = apperr.IsBlocked(err)
			return c.finish(state, pipe), err
		}
		state.PagesVisited++

		list, err := c.ext.ExtractList(url, resp.Body)
		if err != nil {
			return c.finish(state, pipe), err
		}
		state.ItemsFound += len(list.Links)

		if err := c.expandPage(ctx, pipe, state, list.Links); err != nil {
			return c.finish(state, pipe), err
		}

		if len(list.Links) == 0 {
			emptyPages++
			if emptyPages >= maxEmptyPages {
				c.log.Warn().Str("url", url).Msg("consecutive empty pages, ending run")
				break
			}
		} else {
			emptyPages = 0
		}

		url = list.NextURL
		if url != "" {
			if !helpers.SleepJitter(ctx, c.cfg.PageDelayMin, c.cfg.PageDelayMax) {
				return c.finish(state, pipe), apperr.NewTransport(c.source, url, ctx.Err())
			}
		}
	}

	c.finish(state, pipe)
	c.log.Info().
		Int("pages", state.PagesVisited).
		Int("items_found", state.ItemsFound).
		Int("persisted", state.Persisted).
		Int("duplicates", state.Duplicates).
		Int("dropped", state.Dropped).
		Int("item_failures", state.ItemFailures).
		Msg("crawl finished")

	return state, nil
}

// expandPage fetches every item of one results page. Item-level extraction
// and transport failures are logged and skipped; a block after full
// escalation, or a sink failure, stops the run.
func (c *Crawler) expandPage(ctx context.Context, pipe *pipeline.Pipeline, state *RunState, links []string) error {
	for _, link := range links {
		if !helpers.SleepJitter(ctx, c.cfg.ItemDelayMin, c.cfg.ItemDelayMax) {
			return apperr.NewTransport(c.source, link, ctx.Err())
		}

		resp, err := c.fetcher.Fetch(ctx, link)
		if err != nil {
			if apperr.IsBlocked(err) {
				// the site is refusing us outright, stop the whole run
				state.Blocked = true
				return err
			}
			state.ItemFailures++
			c.log.Warn().Err(err).Str("url", link).Msg("item fetch failed, skipping")
			continue
		}

		listing, err := c.ext.ExtractListing(link, resp.Body)
		if err != nil {
			state.ItemFailures++
			c.log.Warn().Err(err).Str("url", link).Msg("item extraction failed, skipping")
			continue
		}

		if _, err := pipe.Process(listing); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) finish(state *RunState, pipe *pipeline.Pipeline) *RunState {
	stats := pipe.Stats()
	state.Persisted = stats.Persisted
	state.Duplicates = stats.Duplicates
	state.Dropped = stats.Dropped
	return state
}
