package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/pkg/pagination"
	"github.com/Skotchmaster/returns/services/returns/internal/export"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/labstack/echo/v4"
)

type AdminHTTP struct {
	Svc *service.AdminService
}

func listQuery(c echo.Context) service.ListQuery {
	return service.ListQuery{
		Status: c.QueryParam("status"),
		Query:  c.QueryParam("q"),
		Sort:   c.QueryParam("sort"),
		Order:  c.QueryParam("order"),
		Page:   pagination.ParseIntDefault(c.QueryParam("page"), 1),
		Size:   pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultSize),

		IncludePending: c.QueryParam("include_pending") == "true",
	}
}

func (h *AdminHTTP) ListReturns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_returns")

	list, err := h.Svc.ListReturns(ctx, listQuery(c))
	if err != nil {
		return fail(l, "list_returns_error", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHTTP) Export(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.export_returns")

	var buf bytes.Buffer
	if err := h.Svc.Export(ctx, listQuery(c), &buf); err != nil {
		return fail(l, "export_returns_error", err)
	}

	name := fmt.Sprintf("returns-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	l.Info("export_returns_success", "bytes", buf.Len())
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *AdminHTTP) TransitionStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.transition_status")

	adminID, err := callerID(c)
	if err != nil {
		return fail(l, "transition_status_error", err)
	}
	returnID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "transition_status_error", err)
	}
	var req transport.ReturnStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "transition_status_error", err)
	}

	ret, err := h.Svc.TransitionStatus(ctx, adminID, returnID, req)
	if err != nil {
		return fail(l, "transition_status_error", err)
	}

	l.Info("transition_status_success", "return_id", ret.ID, "status", ret.Status)
	return c.JSON(http.StatusOK, ret)
}

func (h *AdminHTTP) UpdateNotes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_notes")

	returnID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_notes_error", err)
	}
	var req transport.AdminNotesRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_notes_error", err)
	}

	ret, err := h.Svc.UpdateNotes(ctx, returnID, req.Notes)
	if err != nil {
		return fail(l, "update_notes_error", err)
	}
	return c.JSON(http.StatusOK, ret)
}

func (h *AdminHTTP) Events(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.events")

	returnID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "return_events_error", err)
	}

	evs, err := h.Svc.Events(ctx, returnID)
	if err != nil {
		return fail(l, "return_events_error", err)
	}
	return c.JSON(http.StatusOK, evs)
}

func (h *AdminHTTP) CreateReplacement(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_replacement")

	adminID, err := callerID(c)
	if err != nil {
		return fail(l, "create_replacement_error", err)
	}
	returnID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "create_replacement_error", err)
	}
	var req transport.ReplacementRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_replacement_error", err)
	}

	order, err := h.Svc.CreateReplacement(ctx, adminID, returnID, req)
	if err != nil {
		return fail(l, "create_replacement_error", err)
	}

	l.Info("create_replacement_success", "return_id", returnID, "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}
