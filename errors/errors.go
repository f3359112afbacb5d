package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrValidation         = fmt.Errorf("invalid payload")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrNotFound           = fmt.Errorf("not found")
	ErrGroupNotFound      = fmt.Errorf("group %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrGroupAlreadyExists = fmt.Errorf("group already exists")
	ErrSessionSuperseded  = fmt.Errorf("session replaced by a newer connection")
	ErrSessionClosed      = fmt.Errorf("session is not authenticated")
	ErrStorage            = fmt.Errorf("storage unavailable")
	ErrUnavailable        = fmt.Errorf("service unavailable")
	ErrInvalidPassword    = fmt.Errorf("invalid password")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// Is forwards to the standard library so callers importing this package
// don't need both.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Code maps an error onto the numeric code carried by the outbound error event.
// Unknown errors are reported as internal failures.
func Code(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrUnauthenticated), Is(err, ErrSessionClosed):
		return http.StatusUnauthorized
	case Is(err, ErrValidation), Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case Is(err, ErrForbidden):
		return http.StatusForbidden
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrSessionSuperseded), Is(err, ErrUserAlreadyExists), Is(err, ErrGroupAlreadyExists):
		return http.StatusConflict
	case Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that is safe to hand back to a client.
// Server side failures never leak their cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if Code(err) >= http.StatusInternalServerError {
		switch {
		case Is(err, ErrStorage):
			return ErrStorage.Error()
		case Is(err, ErrUnavailable):
			return ErrUnavailable.Error()
		}
		return "internal error"
	}
	return err.Error()
}
