package linkhealth

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Mode selects which checks the server runs.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeHTTP Mode = "http"
	ModeTCP  Mode = "tcp"
)

// ParseMode maps a query value to a Mode. "ping" is an alias of tcp,
// anything unrecognised is auto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp", "ping":
		return ModeTCP
	case "http":
		return ModeHTTP
	default:
		return ModeAuto
	}
}

const (
	DefaultProbeTimeout = 6 * time.Second
	DefaultProbeMax     = 10 * time.Second
	DefaultTCPCap       = 3 * time.Second
)

// ProberConfig bounds the timeouts a caller may request.
type ProberConfig struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	TCPCap         time.Duration
}

func (c ProberConfig) withDefaults() ProberConfig {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultProbeTimeout
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = DefaultProbeMax
	}
	if c.DefaultTimeout > c.MaxTimeout {
		c.DefaultTimeout = c.MaxTimeout
	}
	if c.TCPCap <= 0 {
		c.TCPCap = DefaultTCPCap
	}
	return c
}

// ProbeResult is the server endpoint's response body. Status may be unknown here.
type ProbeResult struct {
	URL          string       `json:"url"`
	Mode         Mode         `json:"mode"`
	Status       Status       `json:"status"`
	HTTPStatus   int          `json:"httpStatus,omitempty"`
	FinalURL     string       `json:"finalUrl,omitempty"`
	Port         int          `json:"port,omitempty"`
	Error        string       `json:"error,omitempty"`
	HTTPFallback *ProbeResult `json:"httpFallback,omitempty"`
}

// Recorder receives one observation per probe.
type Recorder interface {
	ObserveProbe(mode, status string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProbe(string, string, time.Duration) {}

// Prober is the privileged checker behind the link-health endpoint.
type Prober struct {
	http     *HTTPChecker
	tcp      *TCPProber
	cfg      ProberConfig
	recorder Recorder
	log      logger.Logger
}

type ProberOption func(*Prober)

func WithRecorder(r Recorder) ProberOption {
	return func(p *Prober) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithProberLogger(l logger.Logger) ProberOption {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProber builds a Prober. The HTTP checker is switched to TimeoutUnknown
// so a hung HEAD can still be escalated to TCP.
func NewProber(checker *HTTPChecker, tcp *TCPProber, cfg ProberConfig, opts ...ProberOption) *Prober {
	if checker == nil {
		checker = NewHTTPChecker(nil, "")
	}
	if tcp == nil {
		tcp = NewTCPProber(nil, nil)
	}
	p := &Prober{
		http:     checker.WithPolicy(TimeoutUnknown),
		tcp:      tcp,
		cfg:      cfg.withDefaults(),
		recorder: nopRecorder{},
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe normalizes rawURL and runs the checks for mode. A non-positive
// timeout selects the default. The only error is ErrInvalidURL.
func (p *Prober) Probe(ctx context.Context, rawURL string, mode Mode, timeout time.Duration) (ProbeResult, error) {
	target, ok := Normalize(rawURL)
	if !ok {
		return ProbeResult{}, ErrInvalidURL
	}

	var res ProbeResult
	switch mode {
	case ModeTCP:
		res = p.probeTCP(ctx, target, timeout)
	case ModeHTTP:
		res = p.probeHTTP(ctx, target, timeout)
	default:
		res = p.probeHTTP(ctx, target, timeout)
		if res.Status.Definite() {
			break
		}
		httpRes := res
		res = p.probeTCP(ctx, target, timeout)
		res.HTTPFallback = &httpRes
	}

	p.log.Debug("link probe",
		logger.String("url", target),
		logger.String("mode", string(mode)),
		logger.String("answered_by", string(res.Mode)),
		logger.String("status", string(res.Status)),
	)
	return res, nil
}

func (p *Prober) probeHTTP(ctx context.Context, target string, timeout time.Duration) ProbeResult {
	start := time.Now()
	out := p.http.Check(ctx, target, p.httpTimeout(timeout))
	p.recorder.ObserveProbe(string(ModeHTTP), string(out.Status), time.Since(start))

	return ProbeResult{
		URL:        target,
		Mode:       ModeHTTP,
		Status:     out.Status,
		HTTPStatus: out.HTTPStatus,
		FinalURL:   out.FinalURL,
		Error:      out.Error,
	}
}

func (p *Prober) probeTCP(ctx context.Context, target string, timeout time.Duration) ProbeResult {
	start := time.Now()
	out := p.tcp.Check(ctx, target, p.tcpTimeout(timeout))
	p.recorder.ObserveProbe(string(ModeTCP), string(out.Status), time.Since(start))

	return ProbeResult{
		URL:    target,
		Mode:   ModeTCP,
		Status: out.Status,
		Port:   out.Port,
		Error:  out.Error,
	}
}

func (p *Prober) httpTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return p.cfg.DefaultTimeout
	}
	return min(requested, p.cfg.MaxTimeout)
}

func (p *Prober) tcpTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = p.cfg.DefaultTimeout
	}
	return min(requested, p.cfg.TCPCap)
}
