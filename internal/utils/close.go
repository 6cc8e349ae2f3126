package utils

import (
	"io"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// drainLimit bounds how much of an unread body is discarded so the connection can be reused.
const drainLimit = 64 << 10

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// DrainClose discards a bounded amount of rc before closing it.
func DrainClose(rc io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, rc, drainLimit)
	_ = rc.Close()
}

// MustClose closes c and logs any error.
func MustClose(c io.Closer, log logger.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("what", what), logger.Error(err))
	}
}
