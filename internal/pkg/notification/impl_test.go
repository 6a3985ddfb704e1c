package notification_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/notification"
	"go.etcd.io/bbolt"
)

func newService(t *testing.T) *notification.NotificationService {
	t.Helper()

	db, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Shutdown()
	})

	return &notification.NotificationService{DatabaseService: db}
}

func newKey(t *testing.T) identity.Key {
	t.Helper()

	k, _, err := identity.Generate()
	require.NoError(t, err)

	return k
}

func seed(t *testing.T, s *notification.NotificationService, user identity.Key, n int) []uuid.UUID {
	t.Helper()

	ids := make([]uuid.UUID, 0, n)

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		inbox, err := notification.NewInbox(tx)
		if err != nil {
			return err
		}

		for i := range n {
			note := &notification.Notification{
				User:      user,
				DareID:    uint64(i + 1),
				Type:      notification.TypeDareAccepted,
				Title:     "Dare accepted",
				Body:      fmt.Sprintf("dare %d", i+1),
				CreatedAt: int64(i),
			}

			err = inbox.Add(note)
			if err != nil {
				return err
			}

			ids = append(ids, note.ID)
		}

		return nil
	})
	require.NoError(t, err)

	return ids
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	s := newService(t)
	alice := newKey(t)
	bob := newKey(t)

	seed(t, s, alice, 3)
	seed(t, s, bob, 1)

	page, err := s.List(alice, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, uint64(3), page.Notifications[0].DareID)
	assert.Equal(t, uint64(2), page.Notifications[1].DareID)

	page, err = s.List(alice, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, uint64(1), page.Notifications[0].DareID)

	page, err = s.List(bob, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, notification.DefaultLimit, page.Limit)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, bob, page.Notifications[0].User)
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	s := newService(t)
	alice := newKey(t)
	bob := newKey(t)

	ids := seed(t, s, alice, 3)

	count, err := s.UnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, s.MarkRead(alice, ids[0]))
	require.NoError(t, s.MarkRead(alice, ids[0]))

	err = s.MarkRead(bob, ids[1])
	require.ErrorIs(t, err, notification.ErrNotificationNotFound)

	count, err = s.UnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := s.MarkAllRead(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	count, err = s.UnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	s := newService(t)
	alice := newKey(t)
	ids := seed(t, s, alice, 2)

	e := echo.New()
	s.Routes(e)

	call := func(method, path string, caller identity.Key) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if !caller.IsZero() {
			req.Header.Set(common.CallerHeader, caller.String())
		}

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		return rec
	}

	rec := call(http.MethodGet, "/api/notifications", identity.Zero)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(http.MethodGet, "/api/notifications?limit=1", alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page notification.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, ids[1], page.Notifications[0].ID)

	rec = call(http.MethodPatch, "/api/notifications/"+ids[0].String()+"/read", alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/read", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(http.MethodGet, "/api/notifications/unread-count", alice)
	require.Equal(t, http.StatusOK, rec.Code)

	var unread notification.UnreadCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unread))
	assert.Equal(t, 1, unread.Count)

	rec = call(http.MethodPatch, "/api/notifications/read-all", alice)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated notification.Updated
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.Updated)
}
