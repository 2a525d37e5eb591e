package helpers

import (
	"context"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace into single spaces and trims the result
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// TitleCase uppercases the first letter of every word, for neighborhood names
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var digitsRe = regexp.MustCompile(`[\d.,]+`)

// ParseNumber extracts the first numeric token from a localized string such as
// "USD 1.250" or "45,5 m²" and returns it as a float. The second return value
// is false when no digits are present.
func ParseNumber(s string) (float64, bool) {
	token := digitsRe.FindString(s)
	if token == "" {
		return 0, false
	}
	// Argentine listings use "." for thousands and "," for decimals.
	token = strings.ReplaceAll(token, ".", "")
	token = strings.ReplaceAll(token, ",", ".")
	f, err := strconv.ParseFloat(strings.Trim(token, "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInt extracts the first integer from a string such as "3 ambientes"
func ParseInt(s string) (int, bool) {
	f, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// StripQuery removes the query string and fragment from a URL
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ResolveURL resolves a possibly relative href against a base page URL
func ResolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// SleepJitter blocks for a random duration between min and max, or until the
// context is canceled. It returns false on cancellation.
func SleepJitter(ctx context.Context, min, max time.Duration) bool {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	return Sleep(ctx, d)
}

// Sleep blocks for d or until the context is canceled, returning false on
// cancellation.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
