package dare

import (
	"encoding/binary"
	"fmt"

	"github.com/vreid/dareme/internal/pkg/identity"
)

func idSeed(dareID uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, dareID)
}

// DareAddress is the record key of the dare a challenger creates under dareID.
func DareAddress(challenger identity.Key, dareID uint64) (identity.Key, uint8, error) {
	//nolint:wrapcheck
	return identity.FindDerived(DareSeed, challenger[:], idSeed(dareID))
}

// VaultAddress is keyed off the dare record itself, never off a participant.
func VaultAddress(dareKey identity.Key) (identity.Key, uint8, error) {
	//nolint:wrapcheck
	return identity.FindDerived(VaultSeed, dareKey[:])
}

func StatsAddress(user identity.Key) (identity.Key, uint8, error) {
	//nolint:wrapcheck
	return identity.FindDerived(UserStatsSeed, user[:])
}

// Address re-derives the record key from the stored bump.
func (d *Dare) Address() (identity.Key, error) {
	k, err := identity.Derive(d.Bump, DareSeed, d.Challenger[:], idSeed(d.DareID))
	if err != nil {
		return identity.Zero, fmt.Errorf("failed to derive dare address: %w", err)
	}

	return k, nil
}

func (d *Dare) Vault() (Vault, error) {
	dareKey, err := d.Address()
	if err != nil {
		return Vault{}, err
	}

	addr, err := identity.Derive(d.VaultBump, VaultSeed, dareKey[:])
	if err != nil {
		return Vault{}, fmt.Errorf("failed to derive vault address: %w", err)
	}

	return Vault{Dare: dareKey, Address: addr, Bump: d.VaultBump}, nil
}

// Expirable reports whether Expire would pass its time checks at now and,
// if so, which identity the dare's state names as the recipient.
func (d *Dare) Expirable(now int64) (identity.Key, bool) {
	if d.Status.Terminal() {
		return identity.Zero, false
	}

	if d.Status != StatusProofSubmitted {
		return d.Challenger, now > d.Deadline
	}

	end, err := checkedDeadline(d.Deadline, DisputeWindow)
	if err != nil || !d.HasDaree {
		return identity.Zero, false
	}

	return d.Daree, now > end
}
