package linkhealth

import (
	"net/http"
	"strings"
)

// Status is the reachability verdict for a link.
//
// StatusUnknown only exists mid-pipeline. Anything returned to an end
// caller goes through Final first.
type Status string

const (
	StatusOK      Status = "ok"
	StatusDead    Status = "dead"
	StatusUnknown Status = "unknown"
)

// Definite reports whether s is ok or dead.
func (s Status) Definite() bool {
	return s == StatusOK || s == StatusDead
}

// Final collapses the tri-state into ok/dead. Absence of a positive signal is dead.
func (s Status) Final() Status {
	if s == StatusOK {
		return StatusOK
	}
	return StatusDead
}

// ParseStatus parses a wire value. Unrecognised values map to unknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOK:
		return StatusOK
	case StatusDead:
		return StatusDead
	default:
		return StatusUnknown
	}
}

// Classify maps an HTTP status code to a tri-state status.
//
// Auth-walled and gone resources are both dead: what matters is whether
// the user can currently reach the bookmark. A zero code (no readable
// response) is unknown.
func Classify(code int) Status {
	switch {
	case code == http.StatusNotFound, code == http.StatusGone:
		return StatusDead
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return StatusDead
	case code >= 500:
		return StatusDead
	case code >= 200 && code < 400:
		return StatusOK
	default:
		return StatusUnknown
	}
}
