package linkhealth

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProber checks raw network reachability of a URL's host and port.
type TCPProber struct {
	resolver Resolver
	dialer   Dialer
}

// NewTCPProber uses the system resolver and dialer for nil arguments.
func NewTCPProber(r Resolver, d Dialer) *TCPProber {
	if r == nil {
		r = net.DefaultResolver
	}
	if d == nil {
		d = &net.Dialer{}
	}
	return &TCPProber{resolver: r, dialer: d}
}

// Check resolves the host and connects to it. The outcome is never unknown:
// anything short of a completed connect is dead.
func (p *TCPProber) Check(ctx context.Context, target string, timeout time.Duration) Outcome {
	out := Outcome{Strategy: "tcp", Status: StatusDead}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		out.Error = ErrInvalidURL.Error()
		out.Err = &CheckError{Stage: "dial", URL: target, Err: ErrInvalidURL}
		return out
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	out.Port, _ = strconv.Atoi(port)

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := p.resolve(probeCtx, u.Hostname())
	if err != nil {
		return p.fail(ctx, probeCtx, out, "dns", target, err)
	}

	var lastErr error
	for _, addr := range addrs {
		conn, err := p.dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			_ = conn.Close()
			out.Status = StatusOK
			return out
		}
		lastErr = err
		if probeCtx.Err() != nil {
			break
		}
	}
	return p.fail(ctx, probeCtx, out, "dial", target, lastErr)
}

func (p *TCPProber) resolve(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}
	addrs, err := p.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func (p *TCPProber) fail(parent, probeCtx context.Context, out Outcome, stage, target string, err error) Outcome {
	out.Err = &CheckError{Stage: stage, URL: target, Err: err}

	var dnsErr *net.DNSError
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		out.Aborted = true
		out.Error = ErrAborted.Error()
	case probeCtx.Err() != nil || isTimeout(err):
		out.TimedOut = true
		out.Error = "timeout"
	case stage == "dns" && errors.As(err, &dnsErr) && (dnsErr.IsNotFound || dnsErr.IsTemporary):
		out.Error = "dns"
	case err != nil:
		out.Error = err.Error()
	default:
		out.Error = "unreachable"
	}
	return out
}
