package netutil

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetryRequest(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}

	cases := []struct {
		name   string
		method string
		err    error
		want   bool
	}{
		{"get dial", http.MethodGet, dial, true},
		{"get read timeout", http.MethodGet, read, true},
		{"delete timeout", http.MethodDelete, timeoutErr{}, true},
		{"post dial", http.MethodPost, dial, true},
		{"post read timeout", http.MethodPost, read, false},
		{"get plain", http.MethodGet, errors.New("boom"), false},
		{"nil", http.MethodGet, nil, false},
	}
	for _, tc := range cases {
		if got := ShouldRetryRequest(tc.method, tc.err); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

type flakyTransport struct {
	calls int
	fail  int
	err   error
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.fail {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportRetriesIdempotent(t *testing.T) {
	base := &flakyTransport{fail: 2, err: timeoutErr{}}
	rt := &RetryTransport{Base: base, MaxRetries: 3}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

func TestRetryTransportKeepsPostSingleShot(t *testing.T) {
	base := &flakyTransport{fail: 5, err: timeoutErr{}}
	rt := &RetryTransport{Base: base, MaxRetries: 3}
	req, _ := http.NewRequest(http.MethodPost, "http://example.invalid/", strings.NewReader("{}"))
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("POST must not be retried after a timeout, got %d calls", base.calls)
	}
}
