package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/samcharles93/glance/internal/imagecodec"
	"github.com/samcharles93/glance/internal/predictor"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// statusFor maps a prediction error to an HTTP status and error type.
// Undecodable input is the caller's fault; everything else is ours.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, imagecodec.ErrInvalidBase64),
		errors.Is(err, imagecodec.ErrInvalidImage):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, predictor.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
