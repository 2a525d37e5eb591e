package fetch

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"estefy/inmoworker/helpers"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// ChainConfig tunes the retry controller.
type ChainConfig struct {
	MaxRetries    int           // attempts per tier
	BackoffBase   time.Duration // first retry wait, doubled each attempt
	BackoffMax    time.Duration // cap on the doubled wait
	ChallengeWait time.Duration // single long pause after an interstitial
}

// Chain walks an ordered list of fetch tiers. Each tier gets its own retry
// budget; a tier hands over to the next one when its budget runs out or when
// the site keeps serving interstitials.
type Chain struct {
	tiers []Fetcher
	cfg   ChainConfig
	log   zerolog.Logger
}

// NewChain builds a chain over the given tiers, cheapest first. Nil tiers
// are skipped so the browser tier can be disabled by passing nil.
func NewChain(cfg ChainConfig, tiers ...Fetcher) *Chain {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}
	kept := make([]Fetcher, 0, len(tiers))
	for _, t := range tiers {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Chain{
		tiers: kept,
		cfg:   cfg,
		log:   logger.ForComponent("fetch.chain"),
	}
}

// Fetch retrieves url, escalating through tiers as needed. It returns a page
// that classified OK, or a blocked error once every tier is exhausted. It
// never returns an interstitial as success.
func (c *Chain) Fetch(ctx context.Context, url string) (*Response, error) {
	totalAttempts := 0

	for ti, tier := range c.tiers {
		resp, attempts, escalate := c.fetchTier(ctx, tier, url)
		totalAttempts += attempts
		if resp != nil {
			return resp, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, apperr.NewTransport(string(tier.Tier()), url, err)
		}
		if escalate && ti < len(c.tiers)-1 {
			c.log.Warn().
				Str("url", url).
				Str("from", string(tier.Tier())).
				Str("to", string(c.tiers[ti+1].Tier())).
				Msg("escalating fetch tier")
		}
	}

	return nil, apperr.NewBlocked("fetch", url, totalAttempts)
}

// fetchTier runs one tier's retry loop. It returns a usable response, or
// (nil, attempts, true) when the tier gave up.
func (c *Chain) fetchTier(ctx context.Context, tier Fetcher, url string) (*Response, int, bool) {
	consecutiveChallenges := 0

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err := tier.Fetch(ctx, url)
		verdict := Classify(resp, err)

		switch verdict {
		case VerdictOK:
			return resp, attempt, false

		case VerdictChallenge:
			consecutiveChallenges++
			if consecutiveChallenges >= 2 {
				// The interstitial survived a long wait, this tier will
				// not get past it.
				c.log.Warn().Str("url", url).Str("tier", string(tier.Tier())).
					Msg("repeated challenge, giving tier up")
				return nil, attempt, true
			}
			c.log.Info().Str("url", url).Str("tier", string(tier.Tier())).
				Dur("wait", c.cfg.ChallengeWait).Msg("challenge page, backing off")
			if !helpers.Sleep(ctx, c.cfg.ChallengeWait) {
				return nil, attempt, false
			}

		default:
			consecutiveChallenges = 0
			wait := c.backoff(attempt)
			c.log.Warn().Str("url", url).Str("tier", string(tier.Tier())).
				Str("verdict", string(verdict)).Int("attempt", attempt).
				Dur("wait", wait).Err(err).Msg("fetch attempt failed")
			if attempt == c.cfg.MaxRetries {
				return nil, attempt, true
			}
			if !helpers.Sleep(ctx, wait) {
				return nil, attempt, false
			}
		}
	}

	return nil, c.cfg.MaxRetries, true
}

// backoff returns the jittered exponential wait for the given attempt.
func (c *Chain) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
	if d > c.cfg.BackoffMax || d <= 0 {
		d = c.cfg.BackoffMax
	}
	// up to 50% jitter so parallel crawls never sync up
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}
