package escrow

import (
	"errors"
	"fmt"

	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/ledger"
	"github.com/vreid/dareme/internal/pkg/notification"
	"go.etcd.io/bbolt"
)

var (
	ErrDaresBucketNotFound = errors.New("dares bucket doesn't exist")
	ErrStatsBucketNotFound = errors.New("stats bucket doesn't exist")
	ErrDareExists          = errors.New("dare already exists")
	ErrDareNotFound        = errors.New("dare not found")
	ErrStatsNotFound       = errors.New("user stats not found")
)

// txn resolves records by derived key inside one bbolt transaction.
type txn struct {
	dares  *bbolt.Bucket
	stats  *bbolt.Bucket
	ledger *ledger.Ledger
	inbox  *notification.Inbox
}

func openTxn(tx *bbolt.Tx) (*txn, error) {
	dares := tx.Bucket([]byte(common.DaresBucket))
	if dares == nil {
		return nil, ErrDaresBucketNotFound
	}

	stats := tx.Bucket([]byte(common.StatsBucket))
	if stats == nil {
		return nil, ErrStatsBucketNotFound
	}

	l, err := ledger.New(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	inbox, err := notification.NewInbox(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox: %w", err)
	}

	return &txn{dares: dares, stats: stats, ledger: l, inbox: inbox}, nil
}

func (t *txn) hasDare(key identity.Key) bool {
	return t.dares.Get(key[:]) != nil
}

func (t *txn) getDare(ref DareRef) (*dare.Dare, error) {
	key, _, err := dare.DareAddress(ref.Challenger, ref.DareID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive dare address: %w", err)
	}

	raw := t.dares.Get(key[:])
	if raw == nil {
		return nil, fmt.Errorf("%w: %s/%d", ErrDareNotFound, ref.Challenger, ref.DareID)
	}

	d := &dare.Dare{}

	err = d.UnmarshalBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dare %s/%d: %w", ref.Challenger, ref.DareID, err)
	}

	return d, nil
}

func (t *txn) putDare(d *dare.Dare) error {
	key, err := d.Address()
	if err != nil {
		return err
	}

	raw, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode dare: %w", err)
	}

	err = t.dares.Put(key[:], raw)
	if err != nil {
		return fmt.Errorf("failed to put dare: %w", err)
	}

	return nil
}

// getStats returns the stored record or, for an identity that has never
// participated, a zero record the handlers initialize lazily.
func (t *txn) getStats(user identity.Key) (*dare.UserStats, error) {
	key, _, err := dare.StatsAddress(user)
	if err != nil {
		return nil, fmt.Errorf("failed to derive stats address: %w", err)
	}

	stats := &dare.UserStats{}

	raw := t.stats.Get(key[:])
	if raw == nil {
		return stats, nil
	}

	err = stats.UnmarshalBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", user, err)
	}

	return stats, nil
}

func (t *txn) putStats(stats ...*dare.UserStats) error {
	for _, s := range stats {
		if s == nil || s.User.IsZero() {
			continue
		}

		key, err := identity.Derive(s.Bump, dare.UserStatsSeed, s.User[:])
		if err != nil {
			return fmt.Errorf("failed to derive stats address: %w", err)
		}

		raw, err := s.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}

		err = t.stats.Put(key[:], raw)
		if err != nil {
			return fmt.Errorf("failed to put stats: %w", err)
		}
	}

	return nil
}

func (t *txn) view(d *dare.Dare) (*DareView, error) {
	vault, err := d.Vault()
	if err != nil {
		return nil, err
	}

	return &DareView{
		Dare:         *d,
		Address:      vault.Dare,
		Vault:        vault.Address,
		VaultBalance: t.ledger.Balance(vault.Address),
	}, nil
}

func (t *txn) forEachDare(fn func(d *dare.Dare) error) error {
	//nolint:wrapcheck
	return t.dares.ForEach(func(_, raw []byte) error {
		d := &dare.Dare{}

		err := d.UnmarshalBinary(raw)
		if err != nil {
			return fmt.Errorf("failed to decode dare: %w", err)
		}

		return fn(d)
	})
}
