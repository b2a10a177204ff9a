package ws

import (
	"log/slog"
	"net/http"

	"bookswap/session"
	jwtutil "bookswap/util/jwt"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced at the edge
	},
}

type Controller struct {
	Router    *session.Router
	JWTSecret string
	Log       *slog.Logger
}

// GET /v1/ws?token=... — browsers cannot set headers on websocket dials,
// so the JWT rides in the query string.
func (h *Controller) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = c.Request().Header.Get("Authorization")
	}
	claims, err := jwtutil.ParseAuth(token, h.JWTSecret)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	uid, err := jwtutil.UserID(claims)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", "user_id", uid, "err", err)
		return nil
	}
	h.Log.Info("websocket connected", "user_id", uid, "ip", c.RealIP())

	client := session.NewClient(uid, conn, h.Log)
	client.Serve(h.Router)

	h.Log.Info("websocket disconnected", "user_id", uid)
	return nil
}
