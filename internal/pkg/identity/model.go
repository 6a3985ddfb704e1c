package identity

import "errors"

// KeySize is the width of every identity and derived address.
const KeySize = 32

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrInvalidKey    = errors.New("invalid identity key")
	ErrOnCurve       = errors.New("derived address is on the ed25519 curve")
	ErrSeedTooLong   = errors.New("derivation seed exceeds 32 bytes")
	ErrTooManySeeds  = errors.New("too many derivation seeds")
	ErrNoViableBump  = errors.New("unable to find a viable derivation bump")
	ErrBumpMismatch  = errors.New("derived address does not match the expected key")
	derivationMarker = []byte("DareMeDerivedAddress")
)

// Key is a 32-byte identity. User identities are ed25519 public keys;
// derived addresses are guaranteed to lie off the curve.
type Key [KeySize]byte

// Zero is the default identity, used as "no identity".
var Zero Key
