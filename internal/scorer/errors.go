package scorer

import (
	"fmt"
	"strings"
)

const maxErrorBody = 512

// UpstreamError reports that the scorer could not produce recommendations.
// Error() is safe to show to API clients: it carries the scorer's own status
// and body but never the scorer's address or transport details, which stay
// reachable through Unwrap for logging.
type UpstreamError struct {
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return "recommendation service timed out"
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("recommendation service returned status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("recommendation service returned status %d", e.StatusCode)
	default:
		return "recommendation service unavailable"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
