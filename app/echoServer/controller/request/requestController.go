package request

import (
	"log/slog"
	"net/http"

	rs "bookswap/service/request"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/requests
func (h *Controller) Create(c echo.Context) error {
	var req rs.CreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Create(c.Request().Context(), uid, req)
	if err != nil {
		h.Log.Error("request create", "err", err)
		switch rs.Code(err) {
		case rs.ErrValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "you cannot request your own book"})
		case rs.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"message": "you already have a pending request for this book"})
		case rs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": out})
}

// PUT /v1/requests/:id/status
func (h *Controller) UpdateStatus(c echo.Context) error {
	id := c.Param("id")
	var req UpdateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Transition(c.Request().Context(), id, uid, req.Status)
	if err != nil {
		h.Log.Error("request transition", "id", id, "target", req.Status, "err", err)
		switch rs.Code(err) {
		case rs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		case rs.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case rs.ErrInvalidTransition:
			return c.JSON(http.StatusConflict, echo.Map{"message": "transition not allowed"})
		case rs.ErrValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad status"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"request": out})
}

// DELETE /v1/requests/:id
func (h *Controller) Withdraw(c echo.Context) error {
	id := c.Param("id")
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.Withdraw(c.Request().Context(), id, uid); err != nil {
		h.Log.Error("request withdraw", "id", id, "err", err)
		switch rs.Code(err) {
		case rs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "request not found"})
		case rs.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case rs.ErrInvalidState:
			return c.JSON(http.StatusConflict, echo.Map{"message": "only pending requests can be withdrawn"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "withdrawn"})
}

// GET /v1/requests/outgoing
func (h *Controller) Outgoing(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.ListOutgoing(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("list outgoing", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/requests/incoming
func (h *Controller) Incoming(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.ListIncoming(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("list incoming", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/users/me/stats
func (h *Controller) MyStats(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	stats, err := h.Svc.Stats(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("stats", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}
