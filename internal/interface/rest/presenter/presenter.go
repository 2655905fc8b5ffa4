package presenter

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/inconshreveable/log15"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/peerreview/internal/domain"
)

var log = log15.New("module", "presenter")

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	log.Debug("bad request", "path", c.Path(), "err", err)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	log.Debug("bad request", "path", c.Path(), "msg", msg)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	log.Error("internal error", "path", c.Path(), "err", err)
	sentry.CaptureException(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Error maps domain errors onto status codes.
func Error(c echo.Context, err error) error {
	return c.JSON(Status(err), errorResponse{Error: err.Error()})
}

func Status(err error) int {
	var transition domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidVerdict),
		errors.Is(err, domain.ErrSelfReview),
		errors.Is(err, domain.ErrStakeTooLow):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotReviewOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrClaimsFull),
		errors.Is(err, domain.ErrPaperClosed),
		errors.Is(err, domain.ErrNotClaimed),
		errors.As(err, &transition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
