// Package testutil provides testing utilities for the correction sender.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Endpoint paths served by MockPaymentAPI.
const (
	CorrectionPath  = "/kkt/correction"
	PaymentInfoPath = "/payments/get"
)

// MockResponse defines the behavior for one mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// CapturedRequest is a request observed by the mock server.
type CapturedRequest struct {
	Path     string
	Header   http.Header
	Body     []byte
	User     string
	Password string
}

// MockPaymentAPI is a configurable mock of the payment API for testing.
type MockPaymentAPI struct {
	server    *httptest.Server
	mu        sync.RWMutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	sequences map[string][]MockResponse
	requests  []CapturedRequest
}

// NewMockPaymentAPI creates a new mock payment API server.
func NewMockPaymentAPI() *MockPaymentAPI {
	mock := &MockPaymentAPI{
		handlers:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		sequences: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, _ := r.BasicAuth()

		mock.mu.Lock()
		mock.requests = append(mock.requests, CapturedRequest{
			Path:     r.URL.Path,
			Header:   r.Header.Clone(),
			Body:     body,
			User:     user,
			Password: pass,
		})
		handler, hasHandler := mock.handlers[r.URL.Path]
		resp, hasSequence := mock.next(r.URL.Path)
		mock.mu.Unlock()

		switch {
		case hasHandler:
			handler(w, r)
		case hasSequence:
			writeResponse(w, resp)
		default:
			writeResponse(w, NewSuccessResponse())
		}
	}))

	return mock
}

// next pops the next queued response for path. The last response of a
// sequence repeats forever. Callers must hold mu.
func (m *MockPaymentAPI) next(path string) (MockResponse, bool) {
	seq := m.sequences[path]
	if len(seq) == 0 {
		return MockResponse{}, false
	}
	resp := seq[0]
	if len(seq) > 1 {
		m.sequences[path] = seq[1:]
	}
	return resp, true
}

// URL returns the mock server base URL.
func (m *MockPaymentAPI) URL() string {
	return m.server.URL
}

// CorrectionURL returns the full URL of the correction endpoint.
func (m *MockPaymentAPI) CorrectionURL() string {
	return m.server.URL + CorrectionPath
}

// PaymentInfoURL returns the full URL of the payment lookup endpoint.
func (m *MockPaymentAPI) PaymentInfoURL() string {
	return m.server.URL + PaymentInfoPath
}

// Close shuts down the mock server.
func (m *MockPaymentAPI) Close() {
	m.server.Close()
}

// Reset clears captured requests and configured responses.
func (m *MockPaymentAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.handlers = make(map[string]func(w http.ResponseWriter, r *http.Request))
	m.sequences = make(map[string][]MockResponse)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPaymentAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPaymentAPI) SetResponse(path string, resp MockResponse) {
	m.SetSequence(path, resp)
}

// SetSequence configures responses returned in order for a path.
func (m *MockPaymentAPI) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
	m.sequences[path] = append([]MockResponse(nil), responses...)
}

// RequestCount returns the number of requests made to the server.
func (m *MockPaymentAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// PathRequestCount returns the number of requests made to one path.
func (m *MockPaymentAPI) PathRequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Requests returns a copy of every captured request.
func (m *MockPaymentAPI) Requests() []CapturedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CapturedRequest(nil), m.requests...)
}

// LastRequest returns the most recent captured request.
func (m *MockPaymentAPI) LastRequest() (CapturedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return CapturedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewSuccessResponse creates a 200 response with Success=true.
func NewSuccessResponse() MockResponse {
	return NewJSONResponse(http.StatusOK, `{"Success":true,"Message":null}`)
}

// NewDeclinedResponse creates a 200 response with Success=false.
func NewDeclinedResponse(message string) MockResponse {
	return NewJSONResponse(http.StatusOK, `{"Success":false,"Message":"`+message+`"}`)
}

// NewStatusResponse creates a response with the given status and a plain body.
func NewStatusResponse(status int, body string) MockResponse {
	return MockResponse{StatusCode: status, Body: body}
}

// NewJSONResponse creates a JSON response.
func NewJSONResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
