package kafka

import (
	"errors"
	"strings"
)

// Standardized broker errors. TranslateError maps kafka-go and network errors
// onto these so callers can branch with errors.Is.
var (
	ErrConnectionFailed             = errors.New("connection failed")
	ErrConnectionLost               = errors.New("connection lost")
	ErrBrokerNotAvailable           = errors.New("broker not available")
	ErrAuthenticationFailed         = errors.New("authentication failed")
	ErrAuthorizationFailed          = errors.New("authorization failed")
	ErrTopicNotFound                = errors.New("topic not found")
	ErrInvalidGroupID               = errors.New("invalid group id")
	ErrGroupCoordinatorNotAvailable = errors.New("group coordinator not available")
	ErrNotGroupCoordinator          = errors.New("not group coordinator")
	ErrRebalanceInProgress          = errors.New("rebalance in progress")
	ErrOffsetOutOfRange             = errors.New("offset out of range")
	ErrMessageTooLarge              = errors.New("message too large")
	ErrLeaderNotAvailable           = errors.New("leader not available")
	ErrNotLeaderForPartition        = errors.New("not leader for partition")
	ErrRequestTimedOut              = errors.New("request timed out")
	ErrNetworkError                 = errors.New("network error")
	ErrUnsupportedVersion           = errors.New("unsupported version")

	// ErrWriterNotInitialized is returned by Publish on a consumer client.
	ErrWriterNotInitialized = errors.New("writer not initialized")

	// ErrReaderNotInitialized stops Consume on a publisher client.
	ErrReaderNotInitialized = errors.New("reader not initialized")

	// ErrSubscriptionClosed is returned by Broker.Subscribe after shutdown.
	ErrSubscriptionClosed = errors.New("broker is shut down")
)

// TranslateError converts kafka-go errors into the errors above.
// Errors that match no pattern are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	return translateByErrorMessage(strings.ToLower(err.Error()), err)
}

func translateByErrorMessage(errMsg string, originalErr error) error {
	switch {
	case strings.Contains(errMsg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "connection closed"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "broker not available"):
		return ErrBrokerNotAvailable

	case strings.Contains(errMsg, "sasl authentication failed"),
		strings.Contains(errMsg, "authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(errMsg, "authorization failed"):
		return ErrAuthorizationFailed

	case strings.Contains(errMsg, "unknown topic"),
		strings.Contains(errMsg, "topic not found"):
		return ErrTopicNotFound

	case strings.Contains(errMsg, "group coordinator not available"):
		return ErrGroupCoordinatorNotAvailable
	case strings.Contains(errMsg, "not coordinator for group"),
		strings.Contains(errMsg, "not group coordinator"):
		return ErrNotGroupCoordinator
	case strings.Contains(errMsg, "invalid group id"):
		return ErrInvalidGroupID
	case strings.Contains(errMsg, "rebalance in progress"):
		return ErrRebalanceInProgress

	case strings.Contains(errMsg, "offset out of range"):
		return ErrOffsetOutOfRange
	case strings.Contains(errMsg, "message too large"),
		strings.Contains(errMsg, "record too large"):
		return ErrMessageTooLarge

	case strings.Contains(errMsg, "leader not available"):
		return ErrLeaderNotAvailable
	case strings.Contains(errMsg, "not leader for partition"):
		return ErrNotLeaderForPartition

	case strings.Contains(errMsg, "request timed out"),
		strings.Contains(errMsg, "i/o timeout"),
		strings.Contains(errMsg, "timeout"):
		return ErrRequestTimedOut
	case strings.Contains(errMsg, "network"),
		strings.Contains(errMsg, "dial"):
		return ErrNetworkError

	case strings.Contains(errMsg, "unsupported version"):
		return ErrUnsupportedVersion

	default:
		return originalErr
	}
}

// IsRetryableError reports whether a translated error is transient.
func IsRetryableError(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrBrokerNotAvailable),
		errors.Is(err, ErrLeaderNotAvailable),
		errors.Is(err, ErrNotLeaderForPartition),
		errors.Is(err, ErrRequestTimedOut),
		errors.Is(err, ErrNetworkError),
		errors.Is(err, ErrGroupCoordinatorNotAvailable),
		errors.Is(err, ErrNotGroupCoordinator),
		errors.Is(err, ErrRebalanceInProgress),
		errors.Is(err, ErrTopicNotFound):
		return true
	default:
		return false
	}
}

// IsPermanentError reports whether retrying a translated error is pointless.
// A missing topic is retried since the local producer may create it.
func IsPermanentError(err error) bool {
	switch {
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrAuthorizationFailed),
		errors.Is(err, ErrInvalidGroupID),
		errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrReaderNotInitialized):
		return true
	default:
		return false
	}
}
