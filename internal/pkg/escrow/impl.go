package escrow

import (
	"cmp"
	"fmt"
	"log"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/ledger"
	"go.etcd.io/bbolt"
)

// EscrowService hosts the dare state machine. Every operation runs in one
// bbolt write transaction, so calls are serialized and each one commits
// every record it touches or none of them.
type EscrowService struct {
	DatabaseService *common.DatabaseService

	Clock clockwork.Clock
}

func NewEscrowService(i do.Injector) (*EscrowService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	clock := do.MustInvoke[clockwork.Clock](i)

	result := &EscrowService{
		DatabaseService: databaseService,

		Clock: clock,
	}

	return result, nil
}

func (s *EscrowService) now() int64 {
	return s.Clock.Now().Unix()
}

func (s *EscrowService) CreateDare(challenger identity.Key, p dare.CreateParams) (*DareView, error) {
	now := s.now()

	var view *DareView

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		key, _, err := dare.DareAddress(challenger, p.DareID)
		if err != nil {
			return fmt.Errorf("failed to derive dare address: %w", err)
		}

		if t.hasDare(key) {
			return fmt.Errorf("%w: %s/%d", ErrDareExists, challenger, p.DareID)
		}

		stats, err := t.getStats(challenger)
		if err != nil {
			return err
		}

		d, err := dare.Create(now, t.ledger, challenger, stats, p)
		if err != nil {
			return err
		}

		err = t.putDare(d)
		if err != nil {
			return err
		}

		err = t.putStats(stats)
		if err != nil {
			return err
		}

		view, err = t.view(d)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dare: %w", err)
	}

	log.Printf("dare %s/%d created: %d locked until %d, type=%s",
		challenger, p.DareID, p.Amount, p.Deadline, p.DareType)

	return view, nil
}

func (s *EscrowService) AcceptDare(daree identity.Key, ref DareRef) (*DareView, error) {
	view, err := s.transition(ref, func(t *txn, d *dare.Dare, now int64) error {
		stats, err := t.getStats(daree)
		if err != nil {
			return err
		}

		err = dare.Accept(now, d, daree, stats)
		if err != nil {
			return err
		}

		return t.putStats(stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept dare: %w", err)
	}

	log.Printf("dare %s/%d accepted by %s", ref.Challenger, ref.DareID, daree)

	return view, nil
}

func (s *EscrowService) SubmitProof(submitter identity.Key, ref DareRef, proof dare.Hash) (*DareView, error) {
	view, err := s.transition(ref, func(t *txn, d *dare.Dare, now int64) error {
		stats, err := t.getStats(submitter)
		if err != nil {
			return err
		}

		err = dare.SubmitProof(now, d, submitter, proof, stats)
		if err != nil {
			return err
		}

		return t.putStats(stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit proof: %w", err)
	}

	log.Printf("proof %s submitted for dare %s/%d by %s", proof, ref.Challenger, ref.DareID, submitter)

	return view, nil
}

func (s *EscrowService) ApproveDare(challenger identity.Key, ref DareRef, daree identity.Key) (*DareView, error) {
	var released uint64

	view, err := s.transition(ref, func(t *txn, d *dare.Dare, now int64) error {
		stats, err := t.getStats(daree)
		if err != nil {
			return err
		}

		released, err = dare.Approve(now, t.ledger, d, challenger, daree, stats)
		if err != nil {
			return err
		}

		return t.putStats(stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve dare: %w", err)
	}

	log.Printf("dare %s/%d approved, %d released to %s", ref.Challenger, ref.DareID, released, daree)

	return view, nil
}

func (s *EscrowService) RejectDare(challenger identity.Key, ref DareRef) (*DareView, error) {
	view, err := s.transition(ref, func(_ *txn, d *dare.Dare, _ int64) error {
		return dare.Reject(d, challenger)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject dare: %w", err)
	}

	log.Printf("dare %s/%d proof rejected", ref.Challenger, ref.DareID)

	return view, nil
}

func (s *EscrowService) CancelDare(challenger identity.Key, ref DareRef) (*DareView, error) {
	var refunded uint64

	view, err := s.transition(ref, func(t *txn, d *dare.Dare, _ int64) error {
		stats, err := t.getStats(challenger)
		if err != nil {
			return err
		}

		refunded, err = dare.Cancel(t.ledger, d, challenger, stats)
		if err != nil {
			return err
		}

		return t.putStats(stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel dare: %w", err)
	}

	log.Printf("dare %s/%d cancelled, %d refunded", ref.Challenger, ref.DareID, refunded)

	return view, nil
}

// RefuseDare refunds to the challenger the dare is keyed under.
func (s *EscrowService) RefuseDare(daree identity.Key, ref DareRef) (*DareView, error) {
	var refunded uint64

	view, err := s.transition(ref, func(t *txn, d *dare.Dare, _ int64) error {
		stats, err := t.getStats(ref.Challenger)
		if err != nil {
			return err
		}

		refunded, err = dare.Refuse(t.ledger, d, daree, ref.Challenger, stats)
		if err != nil {
			return err
		}

		return t.putStats(stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refuse dare: %w", err)
	}

	log.Printf("dare %s/%d refused by %s, %d refunded", ref.Challenger, ref.DareID, daree, refunded)

	return view, nil
}

// ExpireDare may be called by anyone. caller is recorded only for the log;
// funds go to recipient, which the handler checks against the dare's state.
func (s *EscrowService) ExpireDare(caller identity.Key, ref DareRef, recipient identity.Key) (*DareView, error) {
	var moved uint64

	view, err := s.transition(ref, func(t *txn, d *dare.Dare, now int64) error {
		challengerStats, err := t.getStats(d.Challenger)
		if err != nil {
			return err
		}

		var dareeStats *dare.UserStats
		if d.HasDaree {
			dareeStats, err = t.getStats(d.Daree)
			if err != nil {
				return err
			}
		}

		moved, err = dare.Expire(now, t.ledger, d, recipient, challengerStats, dareeStats)
		if err != nil {
			return err
		}

		return t.putStats(challengerStats, dareeStats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expire dare: %w", err)
	}

	log.Printf("dare %s/%d cranked by %s: %s, %d sent to %s",
		ref.Challenger, ref.DareID, caller, view.Status, moved, recipient)

	return view, nil
}

func (s *EscrowService) transition(
	ref DareRef,
	fn func(t *txn, d *dare.Dare, now int64) error) (*DareView, error) {
	now := s.now()

	var view *DareView

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		d, err := t.getDare(ref)
		if err != nil {
			return err
		}

		prev := d.Status

		err = fn(t, d, now)
		if err != nil {
			return err
		}

		err = t.putDare(d)
		if err != nil {
			return err
		}

		if d.Status != prev {
			err = t.notify(d, now)
			if err != nil {
				return err
			}
		}

		view, err = t.view(d)

		return err
	})
	if err != nil {
		//nolint:wrapcheck
		return nil, err
	}

	return view, nil
}

func (s *EscrowService) LoadDare(ref DareRef) (*DareView, error) {
	var view *DareView

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		d, err := t.getDare(ref)
		if err != nil {
			return err
		}

		view, err = t.view(d)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dare: %w", err)
	}

	return view, nil
}

func (s *EscrowService) LoadStats(user identity.Key) (*dare.UserStats, error) {
	var stats *dare.UserStats

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		stats, err = t.getStats(user)
		if err != nil {
			return err
		}

		if stats.User.IsZero() {
			return fmt.Errorf("%w: %s", ErrStatsNotFound, user)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	return stats, nil
}

func (s *EscrowService) Balance(account identity.Key) (uint64, error) {
	var balance uint64

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		balance = t.ledger.Balance(account)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load balance: %w", err)
	}

	return balance, nil
}

// Fund credits a user-held account. It is the operator's deposit path into
// the ledger and is not exposed over HTTP.
func (s *EscrowService) Fund(account identity.Key, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, dare.ErrInvalidAmount
	}

	if !account.CanSign() {
		return 0, fmt.Errorf("failed to fund %s: %w", account, ledger.ErrUserAccountRequired)
	}

	var balance uint64

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		err = t.ledger.Credit(account, amount)
		if err != nil {
			return fmt.Errorf("failed to credit: %w", err)
		}

		balance = t.ledger.Balance(account)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fund %s: %w", account, err)
	}

	log.Printf("account %s funded with %d, balance %d", account, amount, balance)

	return balance, nil
}

//nolint:cyclop
func (s *EscrowService) ListDares(f Filter) (*Feed, error) {
	page := max(f.Page, 1)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	limit = min(limit, MaxFeedLimit)

	matches := []DareView{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		return t.forEachDare(func(d *dare.Dare) error {
			if f.Status != nil && d.Status != *f.Status {
				return nil
			}

			if f.DareType != nil && d.DareType != *f.DareType {
				return nil
			}

			if !f.Challenger.IsZero() && d.Challenger != f.Challenger {
				return nil
			}

			if !f.Daree.IsZero() && (!d.HasDaree || d.Daree != f.Daree) {
				return nil
			}

			view, err := t.view(d)
			if err != nil {
				return err
			}

			matches = append(matches, *view)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dares: %w", err)
	}

	sortDares(matches, f.Sort)

	total := len(matches)
	start, end := common.PageBounds(total, page, limit)

	return &Feed{
		Dares:      matches[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Trending returns open dares that can still be taken, largest first.
func (s *EscrowService) Trending(limit int) ([]DareView, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	limit = min(limit, MaxFeedLimit)
	now := s.now()

	open := []DareView{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		return t.forEachDare(func(d *dare.Dare) error {
			if d.Status != dare.StatusCreated && d.Status != dare.StatusActive {
				return nil
			}

			if d.Deadline <= now {
				return nil
			}

			view, err := t.view(d)
			if err != nil {
				return err
			}

			open = append(open, *view)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trending dares: %w", err)
	}

	sortDares(open, SortAmount)

	return open[:min(limit, len(open))], nil
}

// ExpiryCandidates lists every dare that Expire would currently accept.
func (s *EscrowService) ExpiryCandidates() ([]ExpiryCandidate, error) {
	now := s.now()

	var candidates []ExpiryCandidate

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		t, err := openTxn(tx)
		if err != nil {
			return err
		}

		return t.forEachDare(func(d *dare.Dare) error {
			recipient, ok := d.Expirable(now)
			if !ok {
				return nil
			}

			candidates = append(candidates, ExpiryCandidate{
				Ref:       DareRef{Challenger: d.Challenger, DareID: d.DareID},
				Recipient: recipient,
			})

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for expired dares: %w", err)
	}

	return candidates, nil
}

func sortDares(dares []DareView, by Sort) {
	switch by {
	case SortAmount:
		slices.SortStableFunc(dares, func(a, b DareView) int {
			return cmp.Compare(b.Amount, a.Amount)
		})
	case SortDeadline:
		slices.SortStableFunc(dares, func(a, b DareView) int {
			return cmp.Compare(a.Deadline, b.Deadline)
		})
	case SortNewest:
		fallthrough
	default:
		slices.SortStableFunc(dares, func(a, b DareView) int {
			if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
				return c
			}

			return cmp.Compare(b.DareID, a.DareID)
		})
	}
}
