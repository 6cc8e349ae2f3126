package linkhealth

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	DefaultCheckTimeout = 8 * time.Second
	// DelegateTimeoutCap bounds the server round trip so direct checks keep some budget.
	DelegateTimeoutCap = 4500 * time.Millisecond
)

// Verdict is the client's final answer for one URL. Status is never unknown.
type Verdict struct {
	URL     string
	Status  Status
	Via     string
	Invalid bool
	Aborted bool
}

// Client combines the server delegate with direct HTTP checks.
type Client struct {
	delegate *Delegate
	http     *HTTPChecker
	log      logger.Logger
}

type ClientOption func(*Client)

// WithDelegate makes the client ask a marks server before checking directly.
func WithDelegate(d *Delegate) ClientOption {
	return func(c *Client) { c.delegate = d }
}

func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient builds a client. A hung HEAD is dead for the client.
func NewClient(checker *HTTPChecker, opts ...ClientOption) *Client {
	if checker == nil {
		checker = NewHTTPChecker(nil, "")
	}
	c := &Client{
		http: checker.WithPolicy(TimeoutDead),
		log:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckLinkHealth returns ok or dead for raw. It never fails.
func (c *Client) CheckLinkHealth(ctx context.Context, raw string, timeout time.Duration) Status {
	return c.Check(ctx, raw, timeout).Status
}

// Check runs the delegate, HEAD and GET strategies under one overall
// timeout. Verdict.Aborted is set when ctx was done before a definite answer.
func (c *Client) Check(ctx context.Context, raw string, timeout time.Duration) Verdict {
	target, ok := Normalize(raw)
	if !ok {
		return Verdict{URL: raw, Status: StatusDead, Invalid: true}
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := c.chain(timeout).Run(checkCtx, target)
	v := Verdict{URL: target, Status: out.Status.Final(), Via: out.Strategy}
	if out.Aborted || ctx.Err() != nil {
		v.Aborted = true
		v.Status = StatusDead
	}

	c.log.Debug("link checked",
		logger.String("url", target),
		logger.String("status", string(v.Status)),
		logger.String("via", v.Via),
		logger.Bool("aborted", v.Aborted),
	)
	return v
}

func (c *Client) chain(timeout time.Duration) Chain {
	var chain Chain
	if c.delegate != nil {
		sub := min(timeout, DelegateTimeoutCap)
		chain = append(chain, Strategy{
			Name: "delegate",
			Run: func(ctx context.Context, target string) Outcome {
				return c.delegate.Probe(ctx, target, sub)
			},
		})
	}
	return append(chain, c.http.Strategies(timeout)...)
}
