package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestServer is an httptest server plus a client that keeps cookies and
// does not follow redirects.
type TestServer struct {
	*httptest.Server
	t *testing.T
}

func NewTestServer(t *testing.T, handler http.Handler) *TestServer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &TestServer{
		Server: server,
		t:      t,
	}
}

// Client is one browser: its own cookie jar, optional bearer token.
type Client struct {
	ts          *TestServer
	http        *http.Client
	BearerToken string
}

func (ts *TestServer) NewClient() *Client {
	jar, err := cookiejar.New(nil)
	require.NoError(ts.t, err)
	return &Client{
		ts: ts,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *Client) do(method, path string, body io.Reader, contentType string) *http.Response {
	req, err := http.NewRequest(method, c.ts.URL+path, body)
	require.NoError(c.ts.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.ts.t, err)
	c.ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *Client) jsonBody(body interface{}) io.Reader {
	if body == nil {
		return nil
	}
	if raw, ok := body.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonBody, err := json.Marshal(body)
	require.NoError(c.ts.t, err)
	return bytes.NewReader(jsonBody)
}

func (c *Client) GET(path string) *http.Response {
	return c.do(http.MethodGet, path, nil, "")
}

// POST sends body as JSON. A string body is sent verbatim.
func (c *Client) POST(path string, body interface{}) *http.Response {
	return c.do(http.MethodPost, path, c.jsonBody(body), "application/json")
}

func (c *Client) PostForm(path string, values url.Values) *http.Response {
	return c.do(http.MethodPost, path, bytes.NewBufferString(values.Encode()), "application/x-www-form-urlencoded")
}

func (c *Client) PUT(path string, body interface{}) *http.Response {
	return c.do(http.MethodPut, path, c.jsonBody(body), "application/json")
}

func (c *Client) DELETE(path string) *http.Response {
	return c.do(http.MethodDelete, path, nil, "")
}

func AssertJSONResponse(t *testing.T, resp *http.Response, expectedStatus int, target interface{}) {
	t.Helper()
	require.Equal(t, expectedStatus, resp.StatusCode)

	if target != nil {
		err := json.NewDecoder(resp.Body).Decode(target)
		require.NoError(t, err)
	}
}

func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()
	require.Equal(t, expectedStatus, resp.StatusCode)

	var errorResp map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	require.NoError(t, err)

	if expectedMessage != "" {
		require.Equal(t, expectedMessage, errorResp["error"])
	}
}

func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
