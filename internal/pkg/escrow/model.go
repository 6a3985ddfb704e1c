package escrow

import (
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
)

const (
	DefaultFeedLimit     = 20
	MaxFeedLimit         = 50
	DefaultTrendingLimit = 10
)

// DareRef locates a dare the same way its record key is derived.
type DareRef struct {
	Challenger identity.Key `json:"challenger"`
	DareID     uint64       `json:"dare_id"`
}

type DareView struct {
	dare.Dare

	Address      identity.Key `json:"address"`
	Vault        identity.Key `json:"vault"`
	VaultBalance uint64       `json:"vault_balance"`
}

type Sort string

const (
	SortNewest   Sort = "newest"
	SortAmount   Sort = "amount"
	SortDeadline Sort = "deadline"
)

type Filter struct {
	Status     *dare.Status
	DareType   *dare.DareType
	Challenger identity.Key
	Daree      identity.Key
	Sort       Sort
	Page       int
	Limit      int
}

type Feed struct {
	Dares      []DareView `json:"dares"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// ExpiryCandidate is a dare whose deadline (or dispute window) has passed,
// together with the recipient its state implies.
type ExpiryCandidate struct {
	Ref       DareRef
	Recipient identity.Key
}

type CreateDareRequest struct {
	DareID          uint64               `json:"dare_id"`
	Description     string               `json:"description"`
	DescriptionHash dare.Hash            `json:"description_hash"`
	Amount          uint64               `json:"amount"`
	Deadline        int64                `json:"deadline"`
	DareType        dare.DareType        `json:"dare_type"`
	WinnerSelection dare.WinnerSelection `json:"winner_selection"`
	TargetDaree     identity.Key         `json:"target_daree"`
}

type SubmitProofRequest struct {
	ProofHash dare.Hash `json:"proof_hash"`
}

type ApproveRequest struct {
	Daree identity.Key `json:"daree"`
}

type ExpireRequest struct {
	Recipient identity.Key `json:"recipient"`
}

type BalanceResponse struct {
	Account identity.Key `json:"account"`
	Balance uint64       `json:"balance"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
