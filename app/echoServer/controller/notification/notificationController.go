package notification

import (
	"log/slog"
	"net/http"
	"strconv"

	"bookswap/event"
	ns "bookswap/service/notification"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ns.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/notifications?page=&limit=
func (h *Controller) List(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	rows, err := h.Svc.List(c.Request().Context(), uid, page, limit)
	if err != nil {
		h.Log.Error("notification list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/notifications/unread-count
func (h *Controller) UnreadCount(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	n, err := h.Svc.UnreadCount(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("unread count", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": n})
}

// PUT /v1/notifications/:id/read
func (h *Controller) MarkRead(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	id := c.Param("id")

	if err := h.Svc.MarkRead(c.Request().Context(), id, uid); err != nil {
		h.Log.Error("mark read", "id", id, "err", err)
		switch ns.Code(err) {
		case ns.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "notification not found"})
		case ns.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "read"})
}

// PUT /v1/notifications/read-all
func (h *Controller) MarkAllRead(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	n, err := h.Svc.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("mark all read", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// DELETE /v1/notifications/:id
func (h *Controller) Delete(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	id := c.Param("id")

	if err := h.Svc.Delete(c.Request().Context(), id, uid); err != nil {
		h.Log.Error("notification delete", "id", id, "err", err)
		switch ns.Code(err) {
		case ns.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "notification not found"})
		case ns.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// DELETE /v1/notifications
func (h *Controller) ClearAll(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	n, err := h.Svc.ClearAll(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("clear all", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// POST /v1/notifications/trigger/due-date
//
// The trigger routes are for the external cron collaborator, which calls
// them with its own service JWT. Any valid token can reach them; deploy
// behind the edge ACL that scopes them to the scheduler.
func (h *Controller) TriggerDueDate(c echo.Context) error {
	var req DueDateTriggerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}

	n, err := h.Svc.Notify(c.Request().Context(), req.BorrowerID, event.DueDateReminder, event.Data{
		BookTitle: req.BookTitle,
		DueDate:   req.DueDate,
	})
	if err != nil {
		h.Log.Error("due-date trigger", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"notification": n})
}

// POST /v1/notifications/trigger/overdue
// Same trust model as TriggerDueDate.
func (h *Controller) TriggerOverdue(c echo.Context) error {
	var req OverdueTriggerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}

	n, err := h.Svc.Notify(c.Request().Context(), req.BorrowerID, event.BookOverdue, event.Data{
		BookTitle: req.BookTitle,
	})
	if err != nil {
		h.Log.Error("overdue trigger", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"notification": n})
}
