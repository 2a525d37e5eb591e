package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"estefy/inmoworker/config"
	"estefy/inmoworker/internal/crawler"
	"estefy/inmoworker/internal/pipeline"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
	"estefy/inmoworker/services/cache"
	"estefy/inmoworker/services/publisher"
)

// Worker runs crawl rounds, one goroutine per source, either once or on an
// interval.
type Worker struct {
	cfg      *config.Config
	crawlers []*crawler.Crawler
	cache    cache.Service
	pub      publisher.Publisher // nil disables publishing
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a worker. pub may be nil.
func New(cfg *config.Config, crawlers []*crawler.Crawler, cacheSvc cache.Service, pub publisher.Publisher) *Worker {
	return &Worker{
		cfg:      cfg,
		crawlers: crawlers,
		cache:    cacheSvc,
		pub:      pub,
		log:      logger.ForComponent("worker"),
		now:      time.Now,
	}
}

// Start runs crawl rounds until the context is canceled. In run-once mode a
// single round is executed and Start returns. A persistence failure ends the
// loop and is returned, listings are being lost and a broken sink will not
// heal between rounds.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.runRound(ctx); err != nil {
		return err
	}
	if w.cfg.RunOnce {
		return nil
	}

	ticker := time.NewTicker(w.cfg.CrawlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped")
			return nil
		case <-ticker.C:
			if err := w.runRound(ctx); err != nil {
				return err
			}
		}
	}
}

// runRound crawls every source in parallel and waits for all of them. The
// first persistence failure of the round is returned.
func (w *Worker) runRound(ctx context.Context) error {
	start := w.now()
	w.log.Info().Int("sources", len(w.crawlers)).Msg("crawl round started")

	errs := make(chan error, len(w.crawlers))
	var wg sync.WaitGroup
	for _, c := range w.crawlers {
		wg.Add(1)
		go func(c *crawler.Crawler) {
			defer wg.Done()
			if err := w.crawlSource(ctx, c); err != nil {
				errs <- err
			}
		}(c)
	}
	wg.Wait()
	close(errs)

	w.log.Info().Dur("took", time.Since(start)).Msg("crawl round finished")
	return <-errs
}

// crawlSource runs one source end to end: cooldown check, sinks, crawl,
// publish, cooldown marker. Fetch and extraction errors are handled here;
// only sink failures are returned.
func (w *Worker) crawlSource(ctx context.Context, c *crawler.Crawler) error {
	source := c.Source()
	log := logger.ForSource(source)

	cooldownKey := "crawl:" + source
	if w.cache != nil && w.cfg.CacheTTL > 0 {
		if _, err := w.cache.Get(cooldownKey); err == nil {
			log.Info().Msg("skipping source, still in cooldown")
			return nil
		}
	}

	pipe, published, err := w.buildPipeline(source)
	if err != nil {
		log.Error().Err(err).Msg("cannot build pipeline")
		return apperr.NewPersistence("pipeline", "cannot build sinks", err)
	}

	state, runErr := c.Run(ctx, pipe)
	closeErr := pipe.Close()
	if closeErr != nil {
		log.Error().Err(closeErr).Msg("closing sinks failed")
	}

	if runErr != nil {
		log.Error().Err(runErr).
			Bool("blocked", state.Blocked).
			Int("persisted", state.Persisted).
			Msg("crawl ended with error, keeping partial results")
	}

	if w.pub != nil && len(published.listings) > 0 {
		if err := w.pub.Publish(ctx, source, published.listings); err != nil {
			log.Error().Err(err).Msg("publish failed")
		}
	}

	// Only a clean run arms the cooldown, a blocked source should be retried
	// on the next round.
	if runErr == nil && w.cache != nil && w.cfg.CacheTTL > 0 {
		ttl := int32(w.cfg.CacheTTL.Seconds())
		if err := w.cache.Set(cooldownKey, []byte(w.now().Format(time.RFC3339)), ttl); err != nil {
			log.Warn().Err(err).Msg("cannot set cooldown marker")
		}
	}

	if apperr.IsPersistence(runErr) {
		return runErr
	}
	return closeErr
}

// buildPipeline assembles the per-run sinks: timestamped JSON and CSV files,
// the shared SQLite database, and an in-memory collector for publishing.
func (w *Worker) buildPipeline(source string) (*pipeline.Pipeline, *collectorSink, error) {
	ts := w.now()

	jsonSink, err := pipeline.NewJSONSink(pipeline.OutputPath(w.cfg.OutputDir, source, "json", ts))
	if err != nil {
		return nil, nil, err
	}
	csvSink, err := pipeline.NewCSVSink(pipeline.OutputPath(w.cfg.OutputDir, source, "csv", ts))
	if err != nil {
		jsonSink.Close()
		return nil, nil, err
	}

	sinks := []pipeline.Sink{jsonSink, csvSink}
	if w.cfg.SQLitePath != "" {
		dbSink, err := pipeline.NewSQLiteSink(w.cfg.SQLitePath)
		if err != nil {
			jsonSink.Close()
			csvSink.Close()
			return nil, nil, err
		}
		sinks = append(sinks, dbSink)
	}

	published := &collectorSink{}
	if w.pub != nil {
		sinks = append(sinks, published)
	}

	pipe, err := pipeline.New(pipeline.Options{
		USDThreshold: w.cfg.USDThreshold,
		ExchangeRate: w.cfg.ExchangeRate,
		FlushEvery:   w.cfg.FlushEvery,
	}, sinks...)
	if err != nil {
		for _, s := range sinks {
			s.Close()
		}
		return nil, nil, err
	}
	return pipe, published, nil
}

// collectorSink buffers persisted listings for the publisher.
type collectorSink struct {
	listings []*pipeline.Listing
}

func (c *collectorSink) Name() string { return "publisher" }

func (c *collectorSink) Write(l *pipeline.Listing) error {
	copied := *l
	c.listings = append(c.listings, &copied)
	return nil
}

func (c *collectorSink) Flush() error { return nil }
func (c *collectorSink) Close() error { return nil }
