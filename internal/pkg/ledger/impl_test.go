package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/ledger"
	"go.etcd.io/bbolt"
)

func openDB(t *testing.T) *common.DatabaseService {
	t.Helper()

	db, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Shutdown()
	})

	return db
}

func newVault(t *testing.T) (identity.Key, dare.Vault) {
	t.Helper()

	challenger, _, err := identity.Generate()
	require.NoError(t, err)

	dareKey, _, err := dare.DareAddress(challenger, 7)
	require.NoError(t, err)

	addr, bump, err := dare.VaultAddress(dareKey)
	require.NoError(t, err)

	return challenger, dare.Vault{Dare: dareKey, Address: addr, Bump: bump}
}

func TestDepositAndSweep(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	challenger, vault := newVault(t)

	daree, _, err := identity.Generate()
	require.NoError(t, err)

	err = db.DB.Update(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		require.NoError(t, l.Credit(challenger, 500))
		require.NoError(t, l.Deposit(challenger, vault, 200))

		assert.Equal(t, uint64(300), l.Balance(challenger))
		assert.Equal(t, uint64(200), l.Balance(vault.Address))

		// Dust sent directly to the vault is swept along with the lock.
		require.NoError(t, l.Credit(vault.Address, 3))

		moved, err := l.Sweep(vault, daree)
		require.NoError(t, err)
		assert.Equal(t, uint64(203), moved)
		assert.Equal(t, uint64(0), l.Balance(vault.Address))
		assert.Equal(t, uint64(203), l.Balance(daree))

		return nil
	})
	require.NoError(t, err)
}

func TestDepositRejectsInsufficientFunds(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	challenger, vault := newVault(t)

	err := db.DB.Update(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		require.NoError(t, l.Credit(challenger, 10))
		require.ErrorIs(t, l.Deposit(challenger, vault, 11), ledger.ErrInsufficientFunds)
		assert.Equal(t, uint64(10), l.Balance(challenger))

		return nil
	})
	require.NoError(t, err)
}

func TestDepositRequiresUserAccount(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	_, vault := newVault(t)
	_, other := newVault(t)

	err := db.DB.Update(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		require.NoError(t, l.Credit(other.Address, 10))
		require.ErrorIs(t, l.Deposit(other.Address, vault, 10), ledger.ErrUserAccountRequired)

		return nil
	})
	require.NoError(t, err)
}

func TestSweepRequiresVaultAuthority(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	challenger, vault := newVault(t)

	err := db.DB.Update(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		require.NoError(t, l.Credit(challenger, 10))
		require.NoError(t, l.Deposit(challenger, vault, 10))

		// A vault address claimed for a different dare must not be drainable.
		_, forged := newVault(t)
		forged.Address = vault.Address

		_, err = l.Sweep(forged, challenger)
		require.ErrorIs(t, err, ledger.ErrVaultAuthority)
		assert.Equal(t, uint64(10), l.Balance(vault.Address))

		return nil
	})
	require.NoError(t, err)
}

func TestFailedTransactionRollsBack(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	challenger, vault := newVault(t)

	_ = db.DB.Update(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		require.NoError(t, l.Credit(challenger, 10))
		require.NoError(t, l.Deposit(challenger, vault, 10))

		return ledger.ErrInsufficientFunds
	})

	err := db.DB.View(func(tx *bbolt.Tx) error {
		l, err := ledger.New(tx)
		require.NoError(t, err)

		assert.Equal(t, uint64(0), l.Balance(challenger))
		assert.Equal(t, uint64(0), l.Balance(vault.Address))

		return nil
	})
	require.NoError(t, err)
}
