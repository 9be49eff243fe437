// internal/webhook/errors.go
package webhook

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// DeliveryError means an alert did not reach the webhook
type DeliveryError struct {
	StatusCode int    // 0 when no response was received
	Body       string // excerpt of the response body
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("webhook delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed: network
// failures, rate limiting and server errors
func (e *DeliveryError) Retryable() bool {
	if e.StatusCode == 0 {
		var netErr net.Error
		return errors.As(e.Err, &netErr)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsDeliveryError reports whether err came from a failed delivery
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// IsRetryable reports whether err is a DeliveryError worth retrying
func IsRetryable(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Retryable()
}
