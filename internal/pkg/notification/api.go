package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vreid/dareme/internal/pkg/common"
)

func (s *NotificationService) Routes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	notificationsGroup := apiGroup.Group("/notifications")

	notificationsGroup.GET("", s.GetNotifications)
	notificationsGroup.GET("/unread-count", s.GetUnreadCount)
	notificationsGroup.PATCH("/read-all", s.PatchReadAll)
	notificationsGroup.PATCH("/:id/read", s.PatchRead)
}

func (s *NotificationService) GetNotifications(c echo.Context) error {
	user, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	page, err := queryInt(c, "page")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	result, err := s.List(user, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch notifications").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, result)
}

func (s *NotificationService) GetUnreadCount(c echo.Context) error {
	user, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	count, err := s.UnreadCount(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get unread count").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, UnreadCount{Count: count})
}

func (s *NotificationService) PatchReadAll(c echo.Context) error {
	user, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	updated, err := s.MarkAllRead(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to mark all as read").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, Updated{Updated: updated})
}

func (s *NotificationService) PatchRead(c echo.Context) error {
	user, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}

	err = s.MarkRead(user, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to mark as read").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, Updated{Updated: 1})
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}

	//nolint:wrapcheck
	return strconv.Atoi(raw)
}
