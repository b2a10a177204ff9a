package echoServer

import (
	"bookswap/app/echoServer/controller/auth"
	"bookswap/app/echoServer/controller/book"
	"bookswap/app/echoServer/controller/notification"
	"bookswap/app/echoServer/controller/request"
	"bookswap/app/echoServer/controller/ws"

	"github.com/labstack/echo/v4"
)

type C struct {
	Auth         *auth.Controller
	Book         *book.Controller
	Request      *request.Controller
	Notification *notification.Controller
	WS           *ws.Controller
	JWTSecret    string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Websocket authenticates via query-param token inside the handler.
	pub.GET("/ws", c.WS.Handle)

	// Auth
	api := e.Group("/v1")
	api.Use(JWTAuth(c.JWTSecret))

	// Books
	api.GET("/books", c.Book.List)
	api.GET("/books/:id", c.Book.Detail)
	api.POST("/books", c.Book.Add)

	// Requests
	api.POST("/requests", c.Request.Create)
	api.PUT("/requests/:id/status", c.Request.UpdateStatus)
	api.DELETE("/requests/:id", c.Request.Withdraw)
	api.GET("/requests/outgoing", c.Request.Outgoing)
	api.GET("/requests/incoming", c.Request.Incoming)
	api.GET("/users/me/stats", c.Request.MyStats)

	// Notifications
	api.GET("/notifications", c.Notification.List)
	api.GET("/notifications/unread-count", c.Notification.UnreadCount)
	api.PUT("/notifications/:id/read", c.Notification.MarkRead)
	api.PUT("/notifications/read-all", c.Notification.MarkAllRead)
	api.DELETE("/notifications/:id", c.Notification.Delete)
	api.DELETE("/notifications", c.Notification.ClearAll)

	// Scheduler collaborator hooks
	api.POST("/notifications/trigger/due-date", c.Notification.TriggerDueDate)
	api.POST("/notifications/trigger/overdue", c.Notification.TriggerOverdue)
}
