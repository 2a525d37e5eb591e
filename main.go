package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"estefy/inmoworker/config"
	"estefy/inmoworker/internal/crawler"
	"estefy/inmoworker/internal/fetch"
	"estefy/inmoworker/internal/identity"
	"estefy/inmoworker/logger"
	"estefy/inmoworker/services/cache"
	"estefy/inmoworker/services/publisher"
	"estefy/inmoworker/services/worker"
)

// Services holds the shared infrastructure of one process.
type Services struct {
	Cache     cache.Service
	Publisher publisher.Publisher
	Browser   *fetch.BrowserFetcher
}

// Cleanup releases every service that holds external resources.
func (s *Services) Cleanup() {
	if s.Browser != nil {
		s.Browser.Close()
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("closing publisher failed")
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional, the environment may already be set
		logger.Debug().Msg("no .env file found")
	}

	cfg := config.LoadConfig()
	logger.Init(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := setupServices(ctx, cfg)

	rotator := identity.NewRotator()
	httpTier := fetch.NewHTTPFetcher(&http.Client{Timeout: cfg.FetchTimeout}, rotator, cfg.MinFetchGap)

	var browserTier fetch.Fetcher
	if services.Browser != nil {
		browserTier = services.Browser
	}

	chain := fetch.NewChain(fetch.ChainConfig{
		MaxRetries:    cfg.MaxRetries,
		BackoffBase:   cfg.BackoffBase,
		BackoffMax:    cfg.BackoffMax,
		ChallengeWait: cfg.ChallengeWait,
	}, httpTier, browserTier)

	crawlers := crawler.BuildCrawlers(cfg, chain)
	if len(crawlers) == 0 {
		logger.Fatal().Msg("no crawlers configured")
	}

	logger.Info().
		Strs("sources", cfg.EnabledSources).
		Bool("run_once", cfg.RunOnce).
		Bool("browser", services.Browser != nil).
		Msg("starting")

	w := worker.New(cfg, crawlers, services.Cache, services.Publisher)
	err := w.Start(ctx)

	services.Cleanup()
	if err != nil {
		logger.Error().Err(err).Msg("exiting after persistence failure")
		os.Exit(1)
	}
	logger.Info().Msg("done")
}

// setupServices wires the cache, the optional publisher and the optional
// browser tier from configuration.
func setupServices(ctx context.Context, cfg *config.Config) *Services {
	s := &Services{}

	if cfg.CacheAddr != "" {
		s.Cache = cache.NewMemcacheService(cfg.CacheAddr)
		logger.Info().Str("addr", cfg.CacheAddr).Msg("using memcached")
	} else {
		s.Cache = cache.NewMemoryCache()
	}

	if cfg.RedisAddr != "" {
		pub, err := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB,
			cfg.StreamPrefix, cfg.StreamCount, cfg.StreamMaxLen)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to redis")
		}
		s.Publisher = pub
	}

	if cfg.BrowserEnabled {
		s.Browser = fetch.NewBrowserFetcher(fetch.BrowserConfig{
			Bin:             cfg.BrowserBin,
			Headless:        cfg.BrowserHeadless,
			PageLoadTimeout: cfg.PageLoadTimeout,
			DebugDir:        cfg.DebugDir,
			DebugMaxFiles:   cfg.DebugMaxFiles,
		}, identity.NewRotator())
	}

	return s
}
