package httpserver

import (
	"context"
	"net/http"

	middleware "github.com/Skotchmaster/returns/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderHandler  *OrderHTTP
	ReturnHandler *ReturnHTTP
	AdminHandler  *AdminHTTP
	JWTSecret     []byte
	AuthClient    middleware.Refresher
	// Ready backs /health/ready; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	orders.GET("/:id/returns", d.ReturnHandler.ListOrderReturns)
	draft := orders.Group("/:id/returns/draft")
	draft.POST("", d.ReturnHandler.StartDraft)
	draft.GET("", d.ReturnHandler.GetDraft)
	draft.PATCH("", d.ReturnHandler.UpdateDraft)
	draft.DELETE("", d.ReturnHandler.DiscardDraft)
	draft.PATCH("/items/:itemId", d.ReturnHandler.UpdateDraftLine)
	draft.POST("/items/:itemId/images", d.ReturnHandler.AttachImage)
	draft.DELETE("/items/:itemId/images/:name", d.ReturnHandler.RemoveImage)
	draft.POST("/submit", d.ReturnHandler.Submit)

	e.POST("/returns/:id/cancel", d.ReturnHandler.Cancel, authMW.RequireAuth)

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.GET("/returns", d.AdminHandler.ListReturns)
	admin.GET("/returns/export", d.AdminHandler.Export)
	admin.PATCH("/returns/:id/status", d.AdminHandler.TransitionStatus)
	admin.PATCH("/returns/:id/notes", d.AdminHandler.UpdateNotes)
	admin.GET("/returns/:id/events", d.AdminHandler.Events)
	admin.POST("/returns/:id/replacement", d.AdminHandler.CreateReplacement)
}
