package fetch

import "strings"

// Verdict is the outcome of classifying one fetch attempt.
type Verdict string

const (
	// VerdictOK means the page is usable
	VerdictOK Verdict = "ok"
	// VerdictSoftBlock means the site refused the request outright
	VerdictSoftBlock Verdict = "soft_block"
	// VerdictChallenge means an anti-bot interstitial was served with status 200
	VerdictChallenge Verdict = "challenge"
	// VerdictServerError means a transient upstream failure
	VerdictServerError Verdict = "server_error"
	// VerdictNetworkError means the request never produced a response
	VerdictNetworkError Verdict = "network_error"
)

var softBlockCodes = map[int]bool{
	403: true,
	429: true,
}

var serverErrorCodes = map[int]bool{
	500: true,
	502: true,
	503: true,
	504: true,
	522: true,
	524: true,
	408: true,
}

// challengeMarkers are telltale strings from interstitial pages that arrive
// with status 200.
var challengeMarkers = []string{
	"just a moment",
	"attention required",
	"checking your browser",
	"cf-browser-verification",
	"challenge-platform",
}

// Classify maps one fetch attempt to a verdict. A nil response with a non-nil
// error is a network failure; an interstitial body trumps its 200 status.
// Statuses outside the enumerated sets classify as ok, a 404 for a delisted
// ad is an answer, not a block, and retrying it only spends the budget.
func Classify(resp *Response, err error) Verdict {
	if err != nil || resp == nil {
		return VerdictNetworkError
	}
	if softBlockCodes[resp.StatusCode] {
		return VerdictSoftBlock
	}
	if serverErrorCodes[resp.StatusCode] {
		return VerdictServerError
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && isChallenge(resp.Body) {
		return VerdictChallenge
	}
	return VerdictOK
}

func isChallenge(body string) bool {
	prefix := strings.ToLower(body)
	if len(prefix) > 4096 {
		prefix = prefix[:4096]
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(prefix, marker) {
			return true
		}
	}
	return false
}
