package dare

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vreid/dareme/internal/pkg/identity"
)

const (
	// MaxDeadlineDuration bounds how far past creation a deadline may be set.
	MaxDeadlineDuration int64 = 30 * 24 * 60 * 60

	// DisputeWindow is how long after the deadline a challenger can still
	// reject a submitted proof before anyone may auto-approve it.
	DisputeWindow int64 = 72 * 60 * 60
)

var (
	DareSeed      = []byte("dare")
	VaultSeed     = []byte("vault")
	UserStatsSeed = []byte("user_stats")
)

type Status uint8

const (
	StatusCreated Status = iota
	StatusActive
	StatusProofSubmitted
	StatusCompleted
	StatusExpired
	StatusCancelled
	StatusRejected
	StatusRefused
)

type DareType uint8

const (
	DirectDare DareType = iota
	PublicBounty
)

// WinnerSelection is persisted with the dare. CommunityVote is reserved and
// no transition branches on it.
type WinnerSelection uint8

const (
	ChallengerSelect WinnerSelection = iota
	CommunityVote
)

// Hash is a 32-byte commitment to off-record content (description, proof).
type Hash [32]byte

func HashOf(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = Hash{}

		return nil
	}

	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash: %w", err)
	}

	if len(raw) != len(h) {
		return fmt.Errorf("invalid hash: expected %d bytes, got %d", len(h), len(raw))
	}

	copy(h[:], raw)

	return nil
}

// Dare is the state-machine subject, one per (challenger, dare id).
type Dare struct {
	Challenger      identity.Key    `json:"challenger"`
	Daree           identity.Key    `json:"daree"`
	HasDaree        bool            `json:"has_daree"`
	DareID          uint64          `json:"dare_id"`
	DescriptionHash Hash            `json:"description_hash"`
	Amount          uint64          `json:"amount"`
	Status          Status          `json:"status"`
	DareType        DareType        `json:"dare_type"`
	WinnerSelection WinnerSelection `json:"winner_selection"`
	ProofHash       Hash            `json:"proof_hash"`
	HasProof        bool            `json:"has_proof"`
	CreatedAt       int64           `json:"created_at"`
	Deadline        int64           `json:"deadline"`
	AcceptedAt      int64           `json:"accepted_at"`
	CompletedAt     int64           `json:"completed_at"`
	Bump            uint8           `json:"bump"`
	VaultBump       uint8           `json:"vault_bump"`
}

// UserStats holds per-identity counters. A zero User marks a record that
// has not been initialized yet.
type UserStats struct {
	User           identity.Key `json:"user"`
	DaresCreated   uint32       `json:"dares_created"`
	DaresAccepted  uint32       `json:"dares_accepted"`
	DaresCompleted uint32       `json:"dares_completed"`
	DaresFailed    uint32       `json:"dares_failed"`
	TotalEarned    uint64       `json:"total_earned"`
	TotalSpent     uint64       `json:"total_spent"`
	Bump           uint8        `json:"bump"`
}

type CreateParams struct {
	DareID          uint64
	DescriptionHash Hash
	Amount          uint64
	Deadline        int64
	DareType        DareType
	WinnerSelection WinnerSelection
	// TargetDaree is identity.Zero for an untargeted dare.
	TargetDaree identity.Key
}

// Vault identifies a dare's custody account together with the seeds that
// prove the protocol's authority over it.
type Vault struct {
	Dare    identity.Key
	Address identity.Key
	Bump    uint8
}

// Funds is the host's value-transfer primitive.
type Funds interface {
	// Deposit moves amount out of a user-held account into vault, with the
	// user's consent.
	Deposit(from identity.Key, vault Vault, amount uint64) error
	// Sweep moves the entire current balance of vault to recipient and
	// returns the amount moved.
	Sweep(vault Vault, recipient identity.Key) (uint64, error)
}
