package linkhealth

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidURL is returned when a URL fails normalization.
	ErrInvalidURL = errors.New("invalid url")
	// ErrAborted marks an attempt cut short by the caller's context.
	ErrAborted = errors.New("check aborted")
	// ErrRateLimited means the marks server refused a delegated probe with 429.
	ErrRateLimited = errors.New("link-health server rate limited")
)

// CheckError annotates a failed attempt with the stage it failed in.
type CheckError struct {
	Stage string // head, get, delegate, dns, dial
	URL   string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
