package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/stylist/internal/adapters/mq/queue"
	"github.com/okian/stylist/internal/adapters/repository"
	service "github.com/okian/stylist/internal/app"
	"github.com/okian/stylist/internal/domain/collage"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/selection"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
	ErrTooLarge     = errors.New("upload too large")
)

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with kind and op. Both kind and err stay matchable.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap prefixes err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is checked in order; the first match decides the response.
var errorKinds = []errorKind{
	{selection.ErrQuizIncomplete, http.StatusConflict, "quiz_incomplete"},
	{selection.ErrEmptyWardrobe, http.StatusConflict, "empty_wardrobe"},
	{selection.ErrInfeasible, http.StatusUnprocessableEntity, "infeasible"},
	{collage.ErrDecodeFailure, http.StatusUnprocessableEntity, "decode_failure"},
	{repository.ErrWardrobeFull, http.StatusConflict, "wardrobe_full"},
	{repository.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{repository.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{service.ErrNoPreview, http.StatusNotFound, "no_preview"},
	{service.ErrUploadInProgress, http.StatusConflict, "upload_in_progress"},
	{repository.ErrInvalidCategory, http.StatusBadRequest, "invalid_category"},
	{service.ErrInvalidImage, http.StatusBadRequest, "invalid_image"},
	{quiz.ErrUnknownQuestion, http.StatusBadRequest, "unknown_question"},
	{quiz.ErrUnknownAnswer, http.StatusBadRequest, "unknown_answer"},
	{quiz.ErrOutOfOrder, http.StatusBadRequest, "out_of_order"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
	{queue.ErrFull, http.StatusTooManyRequests, "backpressure"},
	{ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
}

// classify maps err to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
