package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrUnknownSession     = fmt.Errorf("unknown session")
	ErrSessionExists      = fmt.Errorf("session already exists")
	ErrRelayStopped       = fmt.Errorf("relay stopped")
	ErrUnknownParticipant = fmt.Errorf("unknown participant")
	ErrTamperDetected     = fmt.Errorf("ledger tamper detected")
	ErrInvariantViolation = fmt.Errorf("invariant violation")

	ErrInvalidPayload       = fmt.Errorf("invalid payload")
	ErrUnknownIntent        = fmt.Errorf("unknown intent kind")
	ErrContentTooLong       = fmt.Errorf("content exceeds maximum length")
	ErrConnectionClosed     = fmt.Errorf("connection closed")
	ErrExecutionUnavailable = fmt.Errorf("code execution unavailable")
	ErrUnsupportedLanguage  = fmt.Errorf("language not supported for execution")
	ErrSinkTimeout          = fmt.Errorf("participant sink timed out")

	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrInvalidToken     = fmt.Errorf("invalid or expired token")
	ErrInvalidSeal      = fmt.Errorf("ledger seal mismatch")
	ErrSealKeyMissing   = fmt.Errorf("ledger seal key is not configured")
	ErrArchiveNotFound  = fmt.Errorf("archive not found")
	ErrMalformedArchive = fmt.Errorf("malformed archive record")
)

// Code maps an error to the stable identifier sent to clients in error events.
func Code(err error) string {
	switch {
	case stderrors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case stderrors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case stderrors.Is(err, ErrSessionExists):
		return "session_exists"
	case stderrors.Is(err, ErrRelayStopped):
		return "unavailable"
	case stderrors.Is(err, ErrUnknownParticipant):
		return "unknown_participant"
	case stderrors.Is(err, ErrTamperDetected):
		return "tamper_detected"
	case stderrors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case stderrors.Is(err, ErrInvalidPayload), stderrors.Is(err, ErrContentTooLong):
		return "invalid_payload"
	case stderrors.Is(err, ErrUnknownIntent):
		return "unknown_intent"
	case stderrors.Is(err, ErrExecutionUnavailable), stderrors.Is(err, ErrUnsupportedLanguage):
		return "execution_unavailable"
	default:
		return "internal"
	}
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
