package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	middleware "github.com/Skotchmaster/returns/pkg/middleware/auth"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errUnauthorized = errors.New("unauthorized")

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

func NewValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

func (rv *RequestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid body", service.ErrValidation)
	}
	return c.Validate(req)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(middleware.CtxUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, errUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errUnauthorized
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a uuid", service.ErrValidation, name)
	}
	return id, nil
}

// fail logs err under event and converts it into the matching HTTP error.
func fail(l *slog.Logger, event string, err error) error {
	var inel *service.IneligibleError
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.Is(err, errUnauthorized):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &inel):
		l.Warn(event, "status", http.StatusConflict, "reason", "not eligible", "label", inel.Label)
		return echo.NewHTTPError(http.StatusConflict, map[string]string{"message": "order is not eligible for a return", "label": inel.Label})
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	}

	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}
