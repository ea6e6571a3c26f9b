package errors

import (
	"context"
	stderrors "errors"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// CodeOf extracts the ErrorCode from an error chain, or Unknown if the chain
// contains no structured error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return Unknown
}

// IsFatal reports whether an error should end the game session rather than
// degrade to a fallback strategy.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case GameTransport, GameFailed, InvalidGameState:
		return true
	default:
		return false
	}
}
