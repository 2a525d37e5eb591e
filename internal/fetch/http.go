package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"estefy/inmoworker/internal/identity"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// maxBodySize caps how much of a response we read, listing pages are well
// under this.
const maxBodySize = 10 << 20

// HTTPFetcher is the cheap first tier: a plain client that rotates its
// identity on every request and paces itself with a shared rate limiter.
type HTTPFetcher struct {
	client  *http.Client
	rotator *identity.Rotator
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewHTTPFetcher builds the HTTP tier. minGap is the hard floor between
// outgoing requests regardless of per-item delays.
func NewHTTPFetcher(client *http.Client, rotator *identity.Rotator, minGap time.Duration) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if minGap <= 0 {
		minGap = time.Second
	}
	return &HTTPFetcher{
		client:  client,
		rotator: rotator,
		limiter: rate.NewLimiter(rate.Every(minGap), 1),
		log:     logger.ForComponent("fetch.http"),
	}
}

// Tier implements Fetcher
func (f *HTTPFetcher) Tier() Tier {
	return TierHTTP
}

// Fetch retrieves url with a freshly rotated identity and decodes the body
// to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperr.NewTransport(string(TierHTTP), url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewTransport(string(TierHTTP), url, err)
	}

	id := f.rotator.Next()
	applyIdentity(req, id)

	f.log.Debug().Str("url", url).Str("user_agent", id.UserAgent).Msg("fetching")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.NewTransport(string(TierHTTP), url, err)
	}
	defer res.Body.Close()

	utf8Body, err := charset.NewReader(io.LimitReader(res.Body, maxBodySize), res.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperr.NewTransport(string(TierHTTP), url, err)
	}
	body, err := io.ReadAll(utf8Body)
	if err != nil {
		return nil, apperr.NewTransport(string(TierHTTP), url, err)
	}

	return &Response{
		URL:        url,
		StatusCode: res.StatusCode,
		Body:       string(body),
		Tier:       TierHTTP,
	}, nil
}

// applyIdentity sets the full browser header set for one persona.
func applyIdentity(req *http.Request, id identity.Identity) {
	req.Header.Set("User-Agent", id.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", id.AcceptLanguage)
	req.Header.Set("Referer", id.Referrer)
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
	for _, c := range id.Cookies {
		req.AddCookie(c)
	}
}
