package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/classpulse/internal/adapters/mq/queue"
	"github.com/okian/classpulse/internal/adapters/repository"
	"github.com/okian/classpulse/internal/adapters/upstream"
	"github.com/okian/classpulse/internal/domain/diagnosis"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/policy"
	"github.com/okian/classpulse/internal/domain/reconcile"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// wrapKind tags err with the operation and an API kind.
func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps service errors to a status code and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, reconcile.ErrInvalidDelta),
		errors.Is(err, reconcile.ErrInvalidThreshold):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "no_snapshot"
	case errors.Is(err, diagnosis.ErrNotFound),
		errors.Is(err, reconcile.ErrStudentNotInSheet):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, policy.ErrNoAlternativeTopic):
		return http.StatusConflict, "no_alternative_topic"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, upstream.ErrUpstream),
		errors.Is(err, diagnosis.ErrNegativeMastery),
		errors.Is(err, diagnosis.ErrEmptyStudentID):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, model.ErrNotStarted),
		errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
