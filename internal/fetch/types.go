package fetch

import "context"

// Tier identifies which fetch strategy produced a response.
type Tier string

const (
	// TierHTTP is the plain HTTP client with rotated headers
	TierHTTP Tier = "http"
	// TierBrowser is the headless browser with stealth patches
	TierBrowser Tier = "browser"
)

// Response is a fetched page, decoded to UTF-8.
type Response struct {
	URL        string
	StatusCode int
	Body       string
	Tier       Tier
}

// Fetcher retrieves a single URL with one strategy. Implementations rotate
// their own identity per call.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
	Tier() Tier
}
