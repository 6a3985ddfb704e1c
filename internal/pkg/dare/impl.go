package dare

import (
	"fmt"

	"github.com/vreid/dareme/internal/pkg/identity"
)

// Each handler validates every precondition and computes every counter
// change before it moves funds. Records are only written after the
// transfer succeeds, so a failed call leaves them exactly as they were.

//nolint:cyclop,funlen
func Create(now int64, funds Funds, challenger identity.Key, stats *UserStats, p CreateParams) (*Dare, error) {
	if challenger.IsZero() {
		return nil, ErrZeroIdentity
	}

	if p.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	if p.Deadline <= now {
		return nil, ErrDeadlinePassed
	}

	horizon, err := checkedDeadline(now, MaxDeadlineDuration)
	if err != nil {
		return nil, err
	}

	if p.Deadline > horizon {
		return nil, ErrDeadlineTooFar
	}

	if !p.WinnerSelection.Valid() {
		return nil, fmt.Errorf("%w: winner selection %d", ErrInvalidEncoding, uint8(p.WinnerSelection))
	}

	hasTarget := !p.TargetDaree.IsZero()

	switch p.DareType {
	case DirectDare:
		if hasTarget && p.TargetDaree == challenger {
			return nil, ErrSelfTarget
		}
	case PublicBounty:
		if hasTarget {
			return nil, ErrInvalidDareType
		}
	default:
		return nil, fmt.Errorf("%w: dare type %d", ErrInvalidEncoding, uint8(p.DareType))
	}

	next, err := touchStats(stats, challenger)
	if err != nil {
		return nil, err
	}

	if next.DaresCreated, err = checkedAdd(next.DaresCreated, 1); err != nil {
		return nil, err
	}

	if next.TotalSpent, err = checkedAdd(next.TotalSpent, p.Amount); err != nil {
		return nil, err
	}

	dareKey, bump, err := DareAddress(challenger, p.DareID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive dare address: %w", err)
	}

	vaultKey, vaultBump, err := VaultAddress(dareKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault address: %w", err)
	}

	d := &Dare{
		Challenger:      challenger,
		Daree:           p.TargetDaree,
		HasDaree:        hasTarget,
		DareID:          p.DareID,
		DescriptionHash: p.DescriptionHash,
		Amount:          p.Amount,
		Status:          StatusCreated,
		DareType:        p.DareType,
		WinnerSelection: p.WinnerSelection,
		ProofHash:       Hash{},
		HasProof:        false,
		CreatedAt:       now,
		Deadline:        p.Deadline,
		AcceptedAt:      0,
		CompletedAt:     0,
		Bump:            bump,
		VaultBump:       vaultBump,
	}

	err = funds.Deposit(challenger, Vault{Dare: dareKey, Address: vaultKey, Bump: vaultBump}, p.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to lock funds: %w", err)
	}

	*stats = next

	return d, nil
}

func Accept(now int64, d *Dare, daree identity.Key, stats *UserStats) error {
	if daree.IsZero() {
		return ErrZeroIdentity
	}

	switch d.DareType {
	case DirectDare:
	case PublicBounty:
		return ErrInvalidDareType
	default:
		return ErrInvalidDareType
	}

	if d.Status != StatusCreated {
		return ErrInvalidDareStatus
	}

	if daree == d.Challenger {
		return ErrCannotAcceptOwnDare
	}

	if d.Deadline <= now {
		return ErrDareExpired
	}

	if d.HasDaree && daree != d.Daree {
		return ErrUnauthorizedDaree
	}

	next, err := touchStats(stats, daree)
	if err != nil {
		return err
	}

	if next.DaresAccepted, err = checkedAdd(next.DaresAccepted, 1); err != nil {
		return err
	}

	d.Daree = daree
	d.HasDaree = true
	d.Status = StatusActive
	d.AcceptedAt = now

	*stats = next

	return nil
}

// SubmitProof on a PublicBounty binds the submitter as daree; the first
// valid submitter claims the bounty, and a rejection reopens it.
//
//nolint:cyclop
func SubmitProof(now int64, d *Dare, submitter identity.Key, proof Hash, stats *UserStats) error {
	if submitter.IsZero() {
		return ErrZeroIdentity
	}

	if d.Deadline <= now {
		return ErrDareExpired
	}

	if submitter == d.Challenger {
		return ErrCannotAcceptOwnDare
	}

	claim := false

	switch d.DareType {
	case DirectDare:
		if d.Status != StatusActive && d.Status != StatusRejected {
			return ErrInvalidDareStatus
		}

		if !d.HasDaree || submitter != d.Daree {
			return ErrUnauthorizedDaree
		}
	case PublicBounty:
		if d.Status != StatusCreated && d.Status != StatusRejected {
			return ErrInvalidDareStatus
		}

		claim = true
	default:
		return ErrInvalidDareType
	}

	next, err := touchStats(stats, submitter)
	if err != nil {
		return err
	}

	if claim {
		if next.DaresAccepted, err = checkedAdd(next.DaresAccepted, 1); err != nil {
			return err
		}

		d.Daree = submitter
		d.HasDaree = true
	}

	d.ProofHash = proof
	d.HasProof = true
	d.Status = StatusProofSubmitted

	*stats = next

	return nil
}

func Approve(
	now int64,
	funds Funds,
	d *Dare,
	challenger identity.Key,
	daree identity.Key,
	dareeStats *UserStats) (uint64, error) {
	if challenger != d.Challenger {
		return 0, ErrUnauthorizedChallenger
	}

	if !d.HasDaree || daree != d.Daree {
		return 0, ErrUnauthorizedDaree
	}

	next, err := requireStats(dareeStats, daree, ErrMissingDareeStats)
	if err != nil {
		return 0, err
	}

	if d.Status != StatusProofSubmitted {
		return 0, ErrInvalidDareStatus
	}

	return complete(now, funds, d, &next, dareeStats)
}

func Reject(d *Dare, challenger identity.Key) error {
	if challenger != d.Challenger {
		return ErrUnauthorizedChallenger
	}

	if d.Status != StatusProofSubmitted {
		return ErrInvalidDareStatus
	}

	d.Status = StatusRejected
	d.ProofHash = Hash{}
	d.HasProof = false

	return nil
}

func Cancel(funds Funds, d *Dare, challenger identity.Key, challengerStats *UserStats) (uint64, error) {
	if challenger != d.Challenger {
		return 0, ErrUnauthorizedChallenger
	}

	next, err := requireStats(challengerStats, challenger, ErrMissingChallengerStats)
	if err != nil {
		return 0, err
	}

	if d.Status != StatusCreated {
		return 0, ErrInvalidDareStatus
	}

	return refund(funds, d, StatusCancelled, &next, challengerStats, nil, nil)
}

// Refuse lets the targeted daree of a DirectDare turn it down before
// accepting. challenger names the refund account and must match the dare.
//
//nolint:cyclop
func Refuse(
	funds Funds,
	d *Dare,
	daree identity.Key,
	challenger identity.Key,
	challengerStats *UserStats) (uint64, error) {
	if challenger != d.Challenger {
		return 0, ErrUnauthorizedChallenger
	}

	next, err := requireStats(challengerStats, challenger, ErrMissingChallengerStats)
	if err != nil {
		return 0, err
	}

	switch d.DareType {
	case DirectDare:
	case PublicBounty:
		return 0, ErrInvalidDareType
	default:
		return 0, ErrInvalidDareType
	}

	if d.Status != StatusCreated {
		return 0, ErrInvalidDareStatus
	}

	if !d.HasDaree {
		return 0, ErrNotTargetedDare
	}

	if daree != d.Daree {
		return 0, ErrUnauthorizedDaree
	}

	return refund(funds, d, StatusRefused, &next, challengerStats, nil, nil)
}

// Expire is the permissionless crank. recipient must be the identity the
// dare's state implies (challenger on refund, daree on auto-approve); it is
// checked, never chosen.
//
//nolint:cyclop,funlen
func Expire(
	now int64,
	funds Funds,
	d *Dare,
	recipient identity.Key,
	challengerStats *UserStats,
	dareeStats *UserStats) (uint64, error) {
	next, err := requireStats(challengerStats, d.Challenger, ErrMissingChallengerStats)
	if err != nil {
		return 0, err
	}

	switch d.Status {
	case StatusCreated, StatusActive, StatusRejected:
		if now <= d.Deadline {
			return 0, ErrDareNotExpired
		}

		if recipient != d.Challenger {
			return 0, ErrUnauthorizedChallenger
		}

		if !d.HasDaree {
			return refund(funds, d, StatusExpired, &next, challengerStats, nil, nil)
		}

		failed, err := requireStats(dareeStats, d.Daree, ErrMissingDareeStats)
		if err != nil {
			return 0, err
		}

		if failed.DaresFailed, err = checkedAdd(failed.DaresFailed, 1); err != nil {
			return 0, err
		}

		return refund(funds, d, StatusExpired, &next, challengerStats, &failed, dareeStats)
	case StatusProofSubmitted:
		end, err := checkedDeadline(d.Deadline, DisputeWindow)
		if err != nil {
			return 0, err
		}

		if now <= end {
			return 0, ErrDisputeWindowActive
		}

		if !d.HasDaree || recipient != d.Daree {
			return 0, ErrUnauthorizedDaree
		}

		completed, err := requireStats(dareeStats, d.Daree, ErrMissingDareeStats)
		if err != nil {
			return 0, err
		}

		return complete(now, funds, d, &completed, dareeStats)
	case StatusCompleted, StatusExpired, StatusCancelled, StatusRefused:
		return 0, ErrInvalidDareStatus
	}

	return 0, ErrInvalidDareStatus
}

// complete releases the vault to the bound daree and credits next, which
// must be a working copy of dst.
func complete(now int64, funds Funds, d *Dare, next *UserStats, dst *UserStats) (uint64, error) {
	var err error

	if next.DaresCompleted, err = checkedAdd(next.DaresCompleted, 1); err != nil {
		return 0, err
	}

	if next.TotalEarned, err = checkedAdd(next.TotalEarned, d.Amount); err != nil {
		return 0, err
	}

	vault, err := d.Vault()
	if err != nil {
		return 0, err
	}

	released, err := funds.Sweep(vault, d.Daree)
	if err != nil {
		return 0, fmt.Errorf("failed to release vault: %w", err)
	}

	d.Status = StatusCompleted
	d.CompletedAt = now
	d.HasProof = false

	*dst = *next

	return released, nil
}

// refund returns the vault to the challenger and moves the dare to status.
// The daree pair is optional and only set on the expiry path.
func refund(
	funds Funds,
	d *Dare,
	status Status,
	challengerNext *UserStats,
	challengerDst *UserStats,
	dareeNext *UserStats,
	dareeDst *UserStats) (uint64, error) {
	challengerNext.TotalSpent = saturatingSub(challengerNext.TotalSpent, d.Amount)

	vault, err := d.Vault()
	if err != nil {
		return 0, err
	}

	refunded, err := funds.Sweep(vault, d.Challenger)
	if err != nil {
		return 0, fmt.Errorf("failed to refund vault: %w", err)
	}

	d.Status = status
	d.HasProof = false
	d.ProofHash = Hash{}

	*challengerDst = *challengerNext
	if dareeNext != nil && dareeDst != nil {
		*dareeDst = *dareeNext
	}

	return refunded, nil
}

// touchStats lazily initializes a stats record for user and returns a
// working copy.
func touchStats(stats *UserStats, user identity.Key) (UserStats, error) {
	if stats == nil {
		return UserStats{}, fmt.Errorf("%w: %s", ErrStatsNotLoaded, user)
	}

	next := *stats
	if next.User.IsZero() {
		_, bump, err := StatsAddress(user)
		if err != nil {
			return UserStats{}, fmt.Errorf("failed to derive stats address: %w", err)
		}

		next.User = user
		next.Bump = bump

		return next, nil
	}

	if next.User != user {
		return UserStats{}, ErrStatsOwnerMismatch
	}

	return next, nil
}

func requireStats(stats *UserStats, user identity.Key, missing *Error) (UserStats, error) {
	if stats == nil || stats.User.IsZero() {
		return UserStats{}, missing
	}

	if stats.User != user {
		return UserStats{}, ErrStatsOwnerMismatch
	}

	return *stats, nil
}
