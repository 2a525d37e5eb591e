package identity

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Profile is one browser persona: a user agent with a matching language and
// a plausible referrer.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	Referrer       string
}

// Identity is a Profile plus fresh session cookies, ready to attach to a request.
type Identity struct {
	Profile
	Cookies []*http.Cookie
}

// defaultProfiles mirrors the desktop browsers most common on Argentine traffic
var defaultProfiles = []Profile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "es-AR,es;q=0.9,en;q=0.8",
		Referrer:       "https://www.google.com/",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		AcceptLanguage: "es-AR,es;q=0.9",
		Referrer:       "https://www.google.com.ar/",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		AcceptLanguage: "es-AR,es;q=0.8,en-US;q=0.5,en;q=0.3",
		Referrer:       "https://www.bing.com/",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		AcceptLanguage: "es-AR,es;q=0.9,en;q=0.7",
		Referrer:       "https://duckduckgo.com/",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "es-AR,es;q=0.9,en;q=0.8",
		Referrer:       "https://www.google.com/",
	},
}

// Rotator hands out identities, never repeating the previous profile so that
// retries after a block always look like a different visitor.
type Rotator struct {
	mu       sync.Mutex
	profiles []Profile
	last     int
	rng      *rand.Rand
}

// NewRotator builds a rotator over the given profiles, falling back to the
// built-in pool when none are supplied.
func NewRotator(profiles ...Profile) *Rotator {
	if len(profiles) == 0 {
		profiles = defaultProfiles
	}
	return &Rotator{
		profiles: profiles,
		last:     -1,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh identity with newly synthesized cookies.
func (r *Rotator) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.rng.Intn(len(r.profiles))
	if len(r.profiles) > 1 {
		for idx == r.last {
			idx = r.rng.Intn(len(r.profiles))
		}
	}
	r.last = idx

	return Identity{
		Profile: r.profiles[idx],
		Cookies: r.synthesizeCookies(),
	}
}

// synthesizeCookies fabricates the session cookies the portals expect from a
// returning visitor, including Analytics client IDs.
func (r *Rotator) synthesizeCookies() []*http.Cookie {
	now := time.Now().Unix()
	clientID := fmt.Sprintf("%d.%d", r.rng.Int63n(2000000000)+100000000, now)
	return []*http.Cookie{
		{Name: "visita_id", Value: fmt.Sprintf("%d", r.rng.Int63n(900000000)+100000000)},
		{Name: "c_user_id", Value: fmt.Sprintf("%d", r.rng.Int63n(90000000)+10000000)},
		{Name: "c_visitor_id", Value: fmt.Sprintf("%d.%d", now, r.rng.Int63n(1000000))},
		{Name: "gdpr", Value: "1"},
		{Name: "_ga", Value: "GA1.3." + clientID},
		{Name: "_gid", Value: "GA1.3." + fmt.Sprintf("%d.%d", r.rng.Int63n(2000000000)+100000000, now)},
	}
}
