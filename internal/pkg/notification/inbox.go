package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/identity"
	"go.etcd.io/bbolt"
)

var (
	ErrNotificationsBucketNotFound = errors.New("notifications bucket doesn't exist")
	ErrNotificationNotFound        = errors.New("notification not found")
)

// Inbox stores notifications keyed by user then by a time-ordered id. Like
// the ledger it is bound to one bbolt transaction, so a notification commits
// together with the transition that caused it.
type Inbox struct {
	notifications *bbolt.Bucket
}

func NewInbox(tx *bbolt.Tx) (*Inbox, error) {
	notifications := tx.Bucket([]byte(common.NotificationsBucket))
	if notifications == nil {
		return nil, ErrNotificationsBucketNotFound
	}

	return &Inbox{notifications: notifications}, nil
}

func key(user identity.Key, id uuid.UUID) []byte {
	return append(slices.Clone(user[:]), id[:]...)
}

func (b *Inbox) Add(n *Notification) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate notification id: %w", err)
		}

		n.ID = id
	}

	return b.put(n)
}

func (b *Inbox) put(n *Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = b.notifications.Put(key(n.User, n.ID), raw)
	if err != nil {
		return fmt.Errorf("failed to put notification: %w", err)
	}

	return nil
}

// All returns every notification of user, oldest first.
func (b *Inbox) All(user identity.Key) ([]Notification, error) {
	result := []Notification{}

	c := b.notifications.Cursor()

	for k, v := c.Seek(user[:]); k != nil && bytes.HasPrefix(k, user[:]); k, v = c.Next() {
		var n Notification

		err := json.Unmarshal(v, &n)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
		}

		result = append(result, n)
	}

	return result, nil
}

func (b *Inbox) MarkRead(user identity.Key, id uuid.UUID) error {
	raw := b.notifications.Get(key(user, id))
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}

	var n Notification

	err := json.Unmarshal(raw, &n)
	if err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	if n.Read {
		return nil
	}

	n.Read = true

	return b.put(&n)
}

// MarkAllRead returns how many notifications changed.
func (b *Inbox) MarkAllRead(user identity.Key) (int, error) {
	all, err := b.All(user)
	if err != nil {
		return 0, err
	}

	updated := 0

	for _, n := range all {
		if n.Read {
			continue
		}

		n.Read = true

		err = b.put(&n)
		if err != nil {
			return 0, err
		}

		updated++
	}

	return updated, nil
}
