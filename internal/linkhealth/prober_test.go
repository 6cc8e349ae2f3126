package linkhealth

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedProbe struct {
	mode, status string
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []recordedProbe
}

func (r *fakeRecorder) ObserveProbe(mode, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, recordedProbe{mode, status})
}

func newTestProber(ft *fakeTransport, r Resolver, d Dialer, opts ...ProberOption) *Prober {
	return NewProber(NewHTTPChecker(ft.client(), ""), NewTCPProber(r, d), ProberConfig{}, opts...)
}

func TestProberRejectsInvalidURL(t *testing.T) {
	ft := codeTransport(nil)
	p := newTestProber(ft, &fakeResolver{}, &fakeDialer{dial: connOK})

	for _, raw := range []string{"", "   ", "not a url!!", "ftp://example.com"} {
		_, err := p.Probe(context.Background(), raw, ModeAuto, 0)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
	assert.Equal(t, 0, ft.total())
}

func TestProberAutoReturnsDefiniteHTTP(t *testing.T) {
	ft := codeTransport(map[string]int{"gone.example": 404})
	d := &fakeDialer{dial: connOK}
	rec := &fakeRecorder{}
	p := newTestProber(ft, &fakeResolver{}, d, WithRecorder(rec))

	res, err := p.Probe(context.Background(), "gone.example", ModeAuto, 0)
	require.NoError(t, err)

	assert.Equal(t, "https://gone.example/", res.URL)
	assert.Equal(t, ModeHTTP, res.Mode)
	assert.Equal(t, StatusDead, res.Status)
	assert.Equal(t, 404, res.HTTPStatus)
	assert.Nil(t, res.HTTPFallback)
	assert.Empty(t, d.calls)
	assert.Equal(t, []recordedProbe{{"http", "dead"}}, rec.obs)
}

func TestProberAutoEscalatesToTCP(t *testing.T) {
	ft := codeTransport(map[string]int{"odd.example": 418})
	r := &fakeResolver{addrs: map[string][]string{"odd.example": {"10.0.0.9"}}}
	d := &fakeDialer{dial: connOK}
	p := newTestProber(ft, r, d)

	res, err := p.Probe(context.Background(), "https://odd.example", ModeAuto, 0)
	require.NoError(t, err)

	assert.Equal(t, ModeTCP, res.Mode)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 443, res.Port)
	require.NotNil(t, res.HTTPFallback)
	assert.Equal(t, ModeHTTP, res.HTTPFallback.Mode)
	assert.Equal(t, StatusUnknown, res.HTTPFallback.Status)
	assert.Equal(t, 418, res.HTTPFallback.HTTPStatus)
}

func TestProberHTTPTimeoutIsUnknownAndEscalates(t *testing.T) {
	ft := &fakeTransport{handle: hang}
	r := &fakeResolver{err: nil, addrs: map[string][]string{"hung.example": {"10.0.0.1"}}}
	p := NewProber(NewHTTPChecker(ft.client(), ""), NewTCPProber(r, &fakeDialer{dial: connOK}),
		ProberConfig{DefaultTimeout: 20 * time.Millisecond, MaxTimeout: 50 * time.Millisecond})

	res, err := p.Probe(context.Background(), "https://hung.example/", ModeHTTP, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Equal(t, 0, ft.count(http.MethodGet))

	res, err = p.Probe(context.Background(), "https://hung.example/", ModeAuto, 0)
	require.NoError(t, err)
	assert.Equal(t, ModeTCP, res.Mode)
	assert.Equal(t, StatusOK, res.Status)
}

func TestProberTCPMode(t *testing.T) {
	ft := codeTransport(map[string]int{"example.com": 200})
	r := &fakeResolver{}
	p := newTestProber(ft, r, &fakeDialer{dial: connOK})

	res, err := p.Probe(context.Background(), "http://nx.example/", ParseMode("ping"), 0)
	require.NoError(t, err)

	assert.Equal(t, ModeTCP, res.Mode)
	assert.Equal(t, StatusDead, res.Status)
	assert.Equal(t, "dns", res.Error)
	assert.Equal(t, 80, res.Port)
	assert.Equal(t, 0, ft.total())
}

func TestProberTimeoutCaps(t *testing.T) {
	p := NewProber(nil, nil, ProberConfig{})

	tests := []struct {
		name      string
		requested time.Duration
		http, tcp time.Duration
	}{
		{"unspecified", 0, 6 * time.Second, 3 * time.Second},
		{"negative", -time.Second, 6 * time.Second, 3 * time.Second},
		{"small", time.Second, time.Second, time.Second},
		{"above tcp cap", 5 * time.Second, 5 * time.Second, 3 * time.Second},
		{"above max", time.Minute, 10 * time.Second, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.http, p.httpTimeout(tt.requested))
			assert.Equal(t, tt.tcp, p.tcpTimeout(tt.requested))
		})
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeTCP, ParseMode("tcp"))
	assert.Equal(t, ModeTCP, ParseMode("PING"))
	assert.Equal(t, ModeHTTP, ParseMode("http"))
	assert.Equal(t, ModeAuto, ParseMode(""))
	assert.Equal(t, ModeAuto, ParseMode("carrier-pigeon"))
}
