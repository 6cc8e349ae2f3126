package linkhealth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

const (
	maxDelegateBody = 64 << 10
	// defaultRetryAfter applies when a 429 carries no usable Retry-After.
	defaultRetryAfter = time.Second
)

// Delegate asks a marks server to probe a URL on the caller's behalf.
// After a 429 it stops calling the server until Retry-After has passed.
type Delegate struct {
	endpoint string
	client   *http.Client
	log      logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewDelegate targets the link-health endpoint under baseURL.
func NewDelegate(baseURL string, client *http.Client) *Delegate {
	if client == nil {
		client = &http.Client{}
	}
	return &Delegate{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/link-health",
		client:   client,
		log:      logger.NewNop(),
		now:      time.Now,
	}
}

// WithLogger sets the logger used for rate-limit warnings.
func (d *Delegate) WithLogger(l logger.Logger) *Delegate {
	if l != nil {
		d.log = l
	}
	return d
}

func (d *Delegate) paused() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pausedUntil, d.now().Before(d.pausedUntil)
}

// pause backs off until now+wait. Only the call that starts a pause logs it.
func (d *Delegate) pause(wait time.Duration) {
	d.mu.Lock()
	now := d.now()
	wasPaused := now.Before(d.pausedUntil)
	if until := now.Add(wait); until.After(d.pausedUntil) {
		d.pausedUntil = until
	}
	d.mu.Unlock()

	if !wasPaused {
		d.log.Warn("link-health server is rate limiting, checking directly for a while",
			logger.String("endpoint", d.endpoint),
			logger.Duration("retry_after", wait))
	}
}

func retryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return defaultRetryAfter
}

// Probe calls the server in auto mode. Any failure to get a well-formed
// answer is unknown so the caller falls through to direct checks.
func (d *Delegate) Probe(ctx context.Context, target string, timeout time.Duration) Outcome {
	out := Outcome{Strategy: "delegate", Status: StatusUnknown}

	if until, ok := d.paused(); ok {
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: fmt.Errorf("%w until %s", ErrRateLimited, until.Format(time.RFC3339))}
		return out
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := url.Values{}
	q.Set("url", target)
	q.Set("mode", string(ModeAuto))
	q.Set("timeoutMs", strconv.FormatInt(timeout.Milliseconds(), 10))

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, d.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: err}
		return out
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := d.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			out.Aborted = true
			err = fmt.Errorf("%w: %w", ErrAborted, err)
		case attemptCtx.Err() != nil || isTimeout(err):
			out.TimedOut = true
		}
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: err}
		return out
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		d.pause(retryAfter(resp.Header.Get("Retry-After"), d.now()))
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: ErrRateLimited}
		return out
	}
	if resp.StatusCode != http.StatusOK {
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: fmt.Errorf("server responded %d", resp.StatusCode)}
		return out
	}

	var body ProbeResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDelegateBody)).Decode(&body); err != nil {
		out.Err = &CheckError{Stage: "delegate", URL: target, Err: fmt.Errorf("decode response: %w", err)}
		return out
	}

	out.Status = ParseStatus(string(body.Status))
	out.HTTPStatus = body.HTTPStatus
	out.FinalURL = body.FinalURL
	out.Port = body.Port
	out.Error = body.Error
	return out
}
