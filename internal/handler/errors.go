package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// statusOf maps a ledger error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, model.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrPaymentMismatch):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error","code"}. Errors outside the ledger taxonomy
// are logged and reported as internal.
func fail(c echo.Context, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("ledger: %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error", "code": "internal"})
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "code": model.CodeOf(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "bad_request"})
}

// notPersisted reports a write that was applied in memory but could not be
// stored. The relay keeps retrying it in the background.
func notPersisted(c echo.Context, err error) error {
	c.Logger().Errorf("ledger: persist %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "write applied but not yet persisted", "code": "not_persisted"})
}
