package notification

import (
	"github.com/google/uuid"
	"github.com/vreid/dareme/internal/pkg/identity"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type Type string

const (
	TypeDareAccepted   Type = "dare_accepted"
	TypeDareRefused    Type = "dare_refused"
	TypeProofSubmitted Type = "proof_submitted"
	TypeDareApproved   Type = "dare_approved"
	TypeDareRejected   Type = "dare_rejected"
	TypeDareCancelled  Type = "dare_cancelled"
	TypeDareExpired    Type = "dare_expired"
)

// Notification tells User that a dare they take part in changed status.
// The dare is named by its challenger and id.
type Notification struct {
	ID         uuid.UUID    `json:"id"`
	User       identity.Key `json:"user"`
	Challenger identity.Key `json:"challenger"`
	DareID     uint64       `json:"dare_id"`
	Type       Type         `json:"type"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Read       bool         `json:"read"`
	CreatedAt  int64        `json:"created_at"`
}

type Page struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	TotalPages    int            `json:"total_pages"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

type Updated struct {
	Updated int `json:"updated"`
}
