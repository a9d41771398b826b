package workflow

import (
	"errors"
	"fmt"
)

// Error categories. Every kind below wraps exactly one of these.
var (
	ErrIdentity       = errors.New("identity error")
	ErrDelivery       = errors.New("delivery error")
	ErrLinkResolution = errors.New("link resolution error")
	ErrTransport      = errors.New("transport error")
	ErrStorage        = errors.New("storage error")
)

var (
	// ErrUnknownIdentity means the address is not registered with the delivery provider.
	ErrUnknownIdentity = fmt.Errorf("%w: identity not registered", ErrIdentity)
	// ErrVerificationRequestFailed means the provider refused to start verification.
	ErrVerificationRequestFailed = fmt.Errorf("%w: verification request failed", ErrIdentity)

	// ErrDeliveryRejected means the provider answered the send call with a non-success status.
	ErrDeliveryRejected = fmt.Errorf("%w: delivery rejected", ErrDelivery)
	// ErrMessageRejected means the provider refused the message content or recipients.
	ErrMessageRejected = fmt.Errorf("%w: message rejected", ErrDelivery)

	// ErrNoMatchingNode means no selected element contained the match token.
	ErrNoMatchingNode = fmt.Errorf("%w: no matching node", ErrLinkResolution)
	// ErrMissingAttribute means the chosen element has no href.
	ErrMissingAttribute = fmt.Errorf("%w: missing href attribute", ErrLinkResolution)

	// ErrConnectionFailed covers DNS, dial and TLS failures.
	ErrConnectionFailed = fmt.Errorf("%w: connection failed", ErrTransport)
	// ErrInvalidOperation covers non-success HTTP responses and malformed requests.
	ErrInvalidOperation = fmt.Errorf("%w: invalid operation", ErrTransport)
	// ErrMissingDisposition means the download advertised no filename.
	ErrMissingDisposition = fmt.Errorf("%w: missing content-disposition filename", ErrTransport)

	// ErrInvalidPattern means the timestamp pattern could not be formatted.
	ErrInvalidPattern = fmt.Errorf("%w: invalid timestamp pattern", ErrStorage)
	// ErrBucketNotFound means the target bucket does not exist.
	ErrBucketNotFound = fmt.Errorf("%w: bucket not found", ErrStorage)
	// ErrMissingBucket means no bucket name was configured.
	ErrMissingBucket = fmt.Errorf("%w: bucket name not set", ErrStorage)
	// ErrStorageRejected covers every other non-success storage response.
	ErrStorageRejected = fmt.Errorf("%w: storage rejected upload", ErrStorage)
)

// ErrInvalidEvent is returned when the trigger payload fails validation.
var ErrInvalidEvent = errors.New("invalid event")

// Category returns a short label for the error's category, suitable for logs and metric labels.
func Category(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidEvent):
		return "invalid_event"
	case errors.Is(err, ErrIdentity):
		return "identity"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, ErrLinkResolution):
		return "link_resolution"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}
