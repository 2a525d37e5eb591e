package fetch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estefy/inmoworker/internal/identity"
)

func newMockedFetcher(t *testing.T) (*HTTPFetcher, *http.Client) {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewHTTPFetcher(client, identity.NewRotator(), time.Millisecond), client
}

func TestHTTPFetcherSendsRotatedIdentity(t *testing.T) {
	f, _ := newMockedFetcher(t)

	var seen *http.Request
	httpmock.RegisterResponder("GET", "https://www.zonaprop.com.ar/listado.html",
		func(req *http.Request) (*http.Response, error) {
			seen = req
			return httpmock.NewStringResponse(200, "<html>ok</html>"), nil
		})

	resp, err := f.Fetch(context.Background(), "https://www.zonaprop.com.ar/listado.html")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "<html>ok</html>", resp.Body)
	assert.Equal(t, TierHTTP, resp.Tier)

	require.NotNil(t, seen)
	assert.NotEmpty(t, seen.Header.Get("User-Agent"))
	assert.NotEmpty(t, seen.Header.Get("Accept-Language"))
	assert.NotEmpty(t, seen.Header.Get("Referer"))
	assert.Equal(t, "document", seen.Header.Get("Sec-Fetch-Dest"))

	cookieNames := map[string]bool{}
	for _, c := range seen.Cookies() {
		cookieNames[c.Name] = true
	}
	for _, name := range []string{"visita_id", "c_user_id", "c_visitor_id", "gdpr", "_ga", "_gid"} {
		assert.True(t, cookieNames[name], "missing cookie %s", name)
	}
}

func TestHTTPFetcherRotatesBetweenRequests(t *testing.T) {
	f, _ := newMockedFetcher(t)

	var agents []string
	httpmock.RegisterResponder("GET", "https://example.test/p",
		func(req *http.Request) (*http.Response, error) {
			agents = append(agents, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "https://example.test/p")
		require.NoError(t, err)
	}

	require.Len(t, agents, 3)
	assert.NotEqual(t, agents[0], agents[1])
	assert.NotEqual(t, agents[1], agents[2])
}

func TestHTTPFetcherDecodesLatin1(t *testing.T) {
	f, _ := newMockedFetcher(t)

	// "Belgrano, 2 baños" with ñ encoded as ISO-8859-1 0xF1
	body := []byte("Belgrano, 2 ba\xf1os")
	httpmock.RegisterResponder("GET", "https://example.test/latin1",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(200, body)
			resp.Header.Set("Content-Type", "text/html; charset=iso-8859-1")
			return resp, nil
		})

	resp, err := f.Fetch(context.Background(), "https://example.test/latin1")
	require.NoError(t, err)
	assert.Equal(t, "Belgrano, 2 baños", resp.Body)
}

func TestHTTPFetcherReturnsStatusWithoutError(t *testing.T) {
	f, _ := newMockedFetcher(t)

	httpmock.RegisterResponder("GET", "https://example.test/blocked",
		httpmock.NewStringResponder(403, "Forbidden"))

	resp, err := f.Fetch(context.Background(), "https://example.test/blocked")
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestHTTPFetcherTransportError(t *testing.T) {
	f, _ := newMockedFetcher(t)

	httpmock.RegisterResponder("GET", "https://example.test/down",
		httpmock.NewErrorResponder(assert.AnError))

	_, err := f.Fetch(context.Background(), "https://example.test/down")
	require.Error(t, err)
}
