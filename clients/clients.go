// Package clients talks to the external services the pipeline depends on.
package clients

import (
	"net/http"
	"time"
)

const DefaultTimeout = 60 * time.Second

type HTTP struct{ c *http.Client }

// NewHTTP returns a client whose requests time out after timeout, or
// DefaultTimeout when timeout is not positive.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}
