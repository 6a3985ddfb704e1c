package notification

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/identity"
	"go.etcd.io/bbolt"
)

// NotificationService is the read side of the inbox. Notifications are
// written by the escrow transitions themselves.
type NotificationService struct {
	DatabaseService *common.DatabaseService
}

func NewNotificationService(i do.Injector) (*NotificationService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)

	result := &NotificationService{
		DatabaseService: databaseService,
	}

	return result, nil
}

// List returns one page of user's notifications, newest first.
func (s *NotificationService) List(user identity.Key, page, limit int) (*Page, error) {
	page = max(page, 1)

	if limit <= 0 {
		limit = DefaultLimit
	}

	limit = min(limit, MaxLimit)

	var all []Notification

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		inbox, err := NewInbox(tx)
		if err != nil {
			return err
		}

		all, err = inbox.All(user)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	slices.Reverse(all)

	total := len(all)
	start, end := common.PageBounds(total, page, limit)

	return &Page{
		Notifications: all[start:end],
		Total:         total,
		Page:          page,
		Limit:         limit,
		TotalPages:    (total + limit - 1) / limit,
	}, nil
}

func (s *NotificationService) UnreadCount(user identity.Key) (int, error) {
	count := 0

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		inbox, err := NewInbox(tx)
		if err != nil {
			return err
		}

		all, err := inbox.All(user)
		if err != nil {
			return err
		}

		for _, n := range all {
			if !n.Read {
				count++
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (s *NotificationService) MarkRead(user identity.Key, id uuid.UUID) error {
	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		inbox, err := NewInbox(tx)
		if err != nil {
			return err
		}

		return inbox.MarkRead(user, id)
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

func (s *NotificationService) MarkAllRead(user identity.Key) (int, error) {
	var updated int

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		inbox, err := NewInbox(tx)
		if err != nil {
			return err
		}

		updated, err = inbox.MarkAllRead(user)

		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return updated, nil
}
