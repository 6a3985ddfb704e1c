package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

func Parse(s string) (Key, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	if len(raw) != KeySize {
		return Zero, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(raw))
	}

	var k Key

	copy(k[:], raw)

	return k, nil
}

// Generate returns the public half of a fresh ed25519 key pair.
func Generate() (Key, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Zero, nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	var k Key

	copy(k[:], pub)

	return k, priv, nil
}

func (k Key) String() string {
	return base58.Encode(k[:])
}

func (k Key) IsZero() bool {
	return k == Zero
}

// OnCurve reports whether k decodes as an ed25519 point. Derived addresses
// never do.
func (k Key) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(k[:])

	return err == nil
}

// CanSign reports whether k could be the public half of a user key pair.
// The zero key and every other small-order point decode fine but no clamped
// ed25519 scalar produces them.
func (k Key) CanSign() bool {
	p, err := new(edwards25519.Point).SetBytes(k[:])
	if err != nil {
		return false
	}

	return new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 0
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = Zero

		return nil
	}

	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// Derive hashes seeds and bump into an address. Addresses that land on the
// curve are rejected so that only the protocol can ever authorize them.
func Derive(bump uint8, seeds ...[]byte) (Key, error) {
	if len(seeds) >= MaxSeeds {
		return Zero, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}

	buf := make([]byte, 0, len(seeds)*MaxSeedLength+1+len(derivationMarker))

	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Zero, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}

		buf = append(buf, seed...)
	}

	buf = append(buf, bump)
	buf = append(buf, derivationMarker...)

	k := Key(blake2b.Sum256(buf))
	if k.OnCurve() {
		return Zero, ErrOnCurve
	}

	return k, nil
}

// FindDerived returns the canonical derived address for seeds: the one with
// the highest bump that lands off the curve.
func FindDerived(seeds ...[]byte) (Key, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		//nolint:gosec // bump is bounded to [0, 255]
		k, err := Derive(uint8(bump), seeds...)
		if err == nil {
			//nolint:gosec
			return k, uint8(bump), nil
		}

		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}

	return Zero, 0, ErrNoViableBump
}

// Verify checks that expected is the address derived from seeds and bump.
func Verify(expected Key, bump uint8, seeds ...[]byte) error {
	k, err := Derive(bump, seeds...)
	if err != nil {
		return err
	}

	if k != expected {
		return ErrBumpMismatch
	}

	return nil
}
