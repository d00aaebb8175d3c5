package httpserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/returns/pkg/logging"
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
	"github.com/Skotchmaster/returns/services/returns/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ImageField is the multipart field carrying an evidence photo.
const ImageField = "image"

type ReturnHTTP struct {
	Svc *service.ReturnService
}

// ids reads the caller and the order id; every draft route needs both.
func ids(c echo.Context) (user, order uuid.UUID, err error) {
	if user, err = callerID(c); err != nil {
		return
	}
	order, err = pathID(c, "id")
	return
}

func (h *ReturnHTTP) ListOrderReturns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.list_order_returns")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "list_order_returns_error", err)
	}

	rets, err := h.Svc.ListOrderReturns(ctx, userID, orderID)
	if err != nil {
		return fail(l, "list_order_returns_error", err)
	}
	return c.JSON(http.StatusOK, rets)
}

func (h *ReturnHTTP) StartDraft(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.start_draft")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "start_draft_error", err)
	}

	d, err := h.Svc.StartDraft(ctx, userID, orderID)
	if err != nil {
		return fail(l, "start_draft_error", err)
	}
	return c.JSON(http.StatusCreated, transport.NewDraftView(d))
}

func (h *ReturnHTTP) GetDraft(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.get_draft")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "get_draft_error", err)
	}

	d, err := h.Svc.GetDraft(ctx, userID, orderID)
	if err != nil {
		return fail(l, "get_draft_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewDraftView(d))
}

func (h *ReturnHTTP) UpdateDraft(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.update_draft")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "update_draft_error", err)
	}
	var req transport.DraftPatchRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_draft_error", err)
	}

	d, err := h.Svc.UpdateDraft(ctx, userID, orderID, req)
	if err != nil {
		return fail(l, "update_draft_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewDraftView(d))
}

func (h *ReturnHTTP) UpdateDraftLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.update_draft_line")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "update_draft_line_error", err)
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return fail(l, "update_draft_line_error", err)
	}
	var req transport.DraftLinePatchRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_draft_line_error", err)
	}

	d, err := h.Svc.UpdateDraftLine(ctx, userID, orderID, itemID, req)
	if err != nil {
		return fail(l, "update_draft_line_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewDraftView(d))
}

func (h *ReturnHTTP) AttachImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.attach_image")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "attach_image_error", err)
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return fail(l, "attach_image_error", err)
	}

	fh, err := c.FormFile(ImageField)
	if err != nil {
		return fail(l, "attach_image_error", fmt.Errorf("%w: multipart field %q required", service.ErrValidation, ImageField))
	}
	if fh.Size > draft.MaxImageBytes {
		return fail(l, "attach_image_error", fmt.Errorf("%w: %v", service.ErrValidation, draft.ErrImageTooLarge))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(l, "attach_image_error", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, draft.MaxImageBytes+1))
	if err != nil {
		return fail(l, "attach_image_error", err)
	}

	d, err := h.Svc.AttachImage(ctx, userID, orderID, itemID, fh.Filename, data)
	if err != nil {
		return fail(l, "attach_image_error", err)
	}

	l.Info("attach_image_success", "order_item_id", itemID, "bytes", len(data))
	return c.JSON(http.StatusCreated, transport.NewDraftView(d))
}

func (h *ReturnHTTP) RemoveImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.remove_image")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "remove_image_error", err)
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return fail(l, "remove_image_error", err)
	}

	d, err := h.Svc.RemoveImage(ctx, userID, orderID, itemID, c.Param("name"))
	if err != nil {
		return fail(l, "remove_image_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewDraftView(d))
}

func (h *ReturnHTTP) DiscardDraft(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.discard_draft")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "discard_draft_error", err)
	}
	if err := h.Svc.DiscardDraft(ctx, userID, orderID); err != nil {
		return fail(l, "discard_draft_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReturnHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.submit")

	userID, orderID, err := ids(c)
	if err != nil {
		return fail(l, "submit_return_error", err)
	}

	ret, err := h.Svc.Submit(ctx, userID, orderID)
	if err != nil {
		return fail(l, "submit_return_error", err)
	}

	l.Info("submit_return_success", "return_id", ret.ID, "rma_code", ret.RMACode)
	return c.JSON(http.StatusCreated, ret)
}

func (h *ReturnHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "returns.cancel")

	userID, err := callerID(c)
	if err != nil {
		return fail(l, "cancel_return_error", err)
	}
	returnID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "cancel_return_error", err)
	}

	ret, err := h.Svc.Cancel(ctx, userID, returnID)
	if err != nil {
		return fail(l, "cancel_return_error", err)
	}

	l.Info("cancel_return_success", "return_id", ret.ID)
	return c.JSON(http.StatusOK, ret)
}
