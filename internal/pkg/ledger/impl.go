package ledger

import (
	"errors"
	"fmt"

	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"go.etcd.io/bbolt"
)

var (
	ErrBalancesBucketNotFound = errors.New("balances bucket doesn't exist")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrBalanceOverflow        = errors.New("balance would overflow")
	ErrUserAccountRequired    = errors.New("deposits must come from a user-held account")
	ErrVaultAuthority         = errors.New("vault is not derived from the dare")
)

// Ledger holds the balance of every holding account. It is bound to a
// single bbolt transaction, so a failed transition rolls back every
// transfer it made.
type Ledger struct {
	balances *bbolt.Bucket
}

var _ dare.Funds = (*Ledger)(nil)

func New(tx *bbolt.Tx) (*Ledger, error) {
	balances := tx.Bucket([]byte(common.BalancesBucket))
	if balances == nil {
		return nil, ErrBalancesBucketNotFound
	}

	return &Ledger{balances: balances}, nil
}

func (l *Ledger) Balance(account identity.Key) uint64 {
	return common.BytesToUint64(l.balances.Get(account[:]), 0)
}

// Credit adds amount to account out of thin air. It is the host's deposit
// path and never used by a transition.
func (l *Ledger) Credit(account identity.Key, amount uint64) error {
	current := l.Balance(account)

	next := current + amount
	if next < current {
		return ErrBalanceOverflow
	}

	return l.put(account, next)
}

// Deposit moves amount from a user-held account into vault. Derived
// accounts hold no private key and can never consent to a deposit.
func (l *Ledger) Deposit(from identity.Key, vault dare.Vault, amount uint64) error {
	if !from.CanSign() {
		return ErrUserAccountRequired
	}

	err := authorize(vault)
	if err != nil {
		return err
	}

	return l.transfer(from, vault.Address, amount)
}

// Sweep drains vault to recipient. The protocol's authority is proven by
// re-deriving the vault address from the dare key and bump.
func (l *Ledger) Sweep(vault dare.Vault, recipient identity.Key) (uint64, error) {
	err := authorize(vault)
	if err != nil {
		return 0, err
	}

	amount := l.Balance(vault.Address)

	err = l.transfer(vault.Address, recipient, amount)
	if err != nil {
		return 0, err
	}

	return amount, nil
}

func authorize(vault dare.Vault) error {
	err := identity.Verify(vault.Address, vault.Bump, dare.VaultSeed, vault.Dare[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVaultAuthority, err)
	}

	return nil
}

func (l *Ledger) transfer(from, to identity.Key, amount uint64) error {
	if from == to || amount == 0 {
		return nil
	}

	fromBalance := l.Balance(from)
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, fromBalance, amount)
	}

	toBalance := l.Balance(to)
	if toBalance+amount < toBalance {
		return ErrBalanceOverflow
	}

	err := l.put(from, fromBalance-amount)
	if err != nil {
		return err
	}

	return l.put(to, toBalance+amount)
}

func (l *Ledger) put(account identity.Key, balance uint64) error {
	if balance == 0 {
		err := l.balances.Delete(account[:])
		if err != nil {
			return fmt.Errorf("failed to clear balance: %w", err)
		}

		return nil
	}

	err := l.balances.Put(account[:], common.Uint64ToBytes(balance))
	if err != nil {
		return fmt.Errorf("failed to put balance: %w", err)
	}

	return nil
}
