// Package httputil provides the HTTP client seam for the deploy tool's
// monitor checks and shared JSON response helpers for the status server.
package httputil

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// HTTPClient is the surface the deploy monitor needs from an HTTP
// client. StandardClient serves production; MockHTTPClient serves tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
	Get(url string) (*http.Response, error)
}

// StandardClient adapts a *http.Client to the HTTPClient interface.
type StandardClient struct {
	c *http.Client
}

// NewStandardClient wraps c, falling back to http.DefaultClient when nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{c: c}
}

// Do sends an HTTP request.
func (s *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return s.c.Do(req)
}

// Get issues a GET to the given URL.
func (s *StandardClient) Get(url string) (*http.Response, error) {
	return s.c.Get(url)
}

// canned is one queued reply: a transport error or a status/body pair.
type canned struct {
	status int
	body   string
	err    error
}

// MockHTTPClient replays queued responses in FIFO order and records
// every request it sees. When the queue runs dry it answers 200 with an
// empty body so probe sequences end quietly instead of erroring.
type MockHTTPClient struct {
	mu       sync.Mutex
	queue    []canned
	requests []*http.Request
}

// NewMockHTTPClient creates an empty mock client.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a response with the given status and body.
func (m *MockHTTPClient) AddResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, canned{status: status, body: body})
}

// AddErrorResponse queues a transport error, as from a refused
// connection or an unreachable host.
func (m *MockHTTPClient) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, canned{err: err})
}

// Do records the request and pops the next queued reply.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	next := canned{status: http.StatusOK}
	if len(m.queue) > 0 {
		next = m.queue[0]
		m.queue = m.queue[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	return &http.Response{
		StatusCode: next.status,
		Body:       io.NopCloser(strings.NewReader(next.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Get issues a GET through Do so the request is recorded.
func (m *MockHTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return m.Do(req)
}

// GetRequest returns the nth recorded request, nil when out of range.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}

// RequestCount reports how many requests have been issued.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset drops all recorded requests and queued responses.
func (m *MockHTTPClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.requests = nil
}
