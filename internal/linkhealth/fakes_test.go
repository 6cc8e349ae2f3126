package linkhealth

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// fakeTransport answers requests by host and records every call.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []string
	handle func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Method+" "+req.URL.String())
	f.mu.Unlock()
	return f.handle(req)
}

func (f *fakeTransport) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (f *fakeTransport) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) client() *http.Client {
	return &http.Client{Transport: f}
}

func respond(req *http.Request, code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}
}

// hang blocks until the request context ends.
func hang(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

// codeTransport maps "METHOD host" or "host" to a status code.
func codeTransport(codes map[string]int) *fakeTransport {
	return &fakeTransport{handle: func(req *http.Request) (*http.Response, error) {
		if c, ok := codes[req.Method+" "+req.URL.Hostname()]; ok {
			return respond(req, c), nil
		}
		if c, ok := codes[req.URL.Hostname()]; ok {
			return respond(req, c), nil
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errRefused}
	}}
}

var errRefused = &net.AddrError{Err: "connection refused", Addr: "fake"}

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	addrs map[string][]string
	err   error
}

func (r *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if a, ok := r.addrs[host]; ok {
		return a, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

type fakeDialer struct {
	mu    sync.Mutex
	calls []string
	dial  func(ctx context.Context, address string) (net.Conn, error)
}

func (d *fakeDialer) DialContext(ctx context.Context, _, address string) (net.Conn, error) {
	d.mu.Lock()
	d.calls = append(d.calls, address)
	d.mu.Unlock()
	return d.dial(ctx, address)
}

func connOK(context.Context, string) (net.Conn, error) {
	c1, c2 := net.Pipe()
	_ = c2.Close()
	return c1, nil
}

func dialHang(ctx context.Context, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// fakeChecker stands in for the client inside batch tests.
type fakeChecker struct {
	mu     sync.Mutex
	calls  []string
	delay  map[string]time.Duration
	status map[string]Status
	before func(n int) (abort bool)
}

func (f *fakeChecker) Check(ctx context.Context, raw string, _ time.Duration) Verdict {
	f.mu.Lock()
	f.calls = append(f.calls, raw)
	n := len(f.calls)
	f.mu.Unlock()

	if f.before != nil && f.before(n) {
		return Verdict{URL: raw, Status: StatusDead, Aborted: true}
	}
	if d := f.delay[raw]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Verdict{URL: raw, Status: StatusDead, Aborted: true}
		}
	}
	st, ok := f.status[raw]
	if !ok {
		st = StatusOK
	}
	return Verdict{URL: raw, Status: st}
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
