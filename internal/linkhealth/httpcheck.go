package linkhealth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/utils"
)

const (
	DefaultUserAgent = "marks-linkhealth/1.0 (+https://github.com/MrSnakeDoc/marks)"
	maxRedirects     = 10
)

// TimeoutPolicy decides how a timed-out HEAD attempt is classified.
type TimeoutPolicy int

const (
	// TimeoutDead classifies a hung HEAD as dead. Used by the client to bound batch time.
	TimeoutDead TimeoutPolicy = iota
	// TimeoutUnknown leaves it unknown so the caller can escalate to a TCP probe.
	TimeoutUnknown
)

// HTTPChecker runs the HEAD then GET chain.
type HTTPChecker struct {
	client    *http.Client
	userAgent string
	policy    TimeoutPolicy
}

// NewHTTPChecker returns a checker using client, or NewHTTPClient when nil.
func NewHTTPChecker(client *http.Client, userAgent string) *HTTPChecker {
	if client == nil {
		client = NewHTTPClient()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPChecker{client: client, userAgent: userAgent}
}

// WithPolicy returns a copy of c using p for HEAD timeouts.
func (c *HTTPChecker) WithPolicy(p TimeoutPolicy) *HTTPChecker {
	cp := *c
	cp.policy = p
	return &cp
}

// NewHTTPClient builds the client used for outbound checks. Redirects are
// followed up to a fixed limit. Deadlines come from the request context.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Strategies returns the HEAD step and the conditional GET step. Each
// attempt gets its own timeout budget.
func (c *HTTPChecker) Strategies(timeout time.Duration) Chain {
	return Chain{
		{
			Name: "head",
			Run: func(ctx context.Context, target string) Outcome {
				return c.attempt(ctx, http.MethodHead, target, timeout)
			},
		},
		{
			Name: "get",
			When: needsGet,
			Run: func(ctx context.Context, target string) Outcome {
				return c.attempt(ctx, http.MethodGet, target, timeout)
			},
		},
	}
}

// Check runs HEAD, then GET when HEAD was rejected with 405 or failed outright.
func (c *HTTPChecker) Check(ctx context.Context, target string, timeout time.Duration) Outcome {
	return c.Strategies(timeout).Run(ctx, target)
}

func needsGet(prev Outcome) bool {
	if prev.Aborted || prev.TimedOut {
		return false
	}
	if prev.Err != nil {
		return true
	}
	return prev.Status == StatusUnknown && prev.HTTPStatus == http.StatusMethodNotAllowed
}

func (c *HTTPChecker) attempt(ctx context.Context, method, target string, timeout time.Duration) Outcome {
	out := Outcome{Strategy: strings.ToLower(method), Status: StatusUnknown}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, target, http.NoBody)
	if err != nil {
		out.Err = &CheckError{Stage: out.Strategy, URL: target, Err: err}
		return out
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			out.Aborted = true
			err = fmt.Errorf("%w: %w", ErrAborted, err)
		case attemptCtx.Err() != nil || isTimeout(err):
			out.TimedOut = true
			out.Error = "timeout"
			if c.policy == TimeoutDead {
				out.Status = StatusDead
			}
		}
		out.Err = &CheckError{Stage: out.Strategy, URL: target, Err: err}
		return out
	}
	defer utils.DrainClose(resp.Body)

	out.HTTPStatus = resp.StatusCode
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}
	out.Status = Classify(resp.StatusCode)
	return out
}
