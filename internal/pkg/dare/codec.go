package dare

import (
	"encoding/binary"
	"fmt"

	"github.com/vreid/dareme/internal/pkg/identity"
)

const (
	DareSize      = 183
	UserStatsSize = 65
)

func (d *Dare) MarshalBinary() ([]byte, error) {
	if !d.Status.Valid() || !d.DareType.Valid() || !d.WinnerSelection.Valid() {
		return nil, fmt.Errorf("%w: dare %d has an unknown enum value", ErrInvalidEncoding, d.DareID)
	}

	buf := make([]byte, 0, DareSize)
	buf = append(buf, d.Challenger[:]...)
	buf = append(buf, d.Daree[:]...)
	buf = appendBool(buf, d.HasDaree)
	buf = binary.LittleEndian.AppendUint64(buf, d.DareID)
	buf = append(buf, d.DescriptionHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, d.Amount)
	buf = append(buf, byte(d.Status), byte(d.DareType), byte(d.WinnerSelection))
	buf = append(buf, d.ProofHash[:]...)
	buf = appendBool(buf, d.HasProof)
	buf = appendInt64(buf, d.CreatedAt)
	buf = appendInt64(buf, d.Deadline)
	buf = appendInt64(buf, d.AcceptedAt)
	buf = appendInt64(buf, d.CompletedAt)
	buf = append(buf, d.Bump, d.VaultBump)

	return buf, nil
}

func (d *Dare) UnmarshalBinary(data []byte) error {
	if len(data) != DareSize {
		return fmt.Errorf("%w: dare is %d bytes, want %d", ErrInvalidLength, len(data), DareSize)
	}

	r := reader{data: data}

	var out Dare

	out.Challenger = r.key()
	out.Daree = r.key()
	out.HasDaree = r.bool()
	out.DareID = r.uint64()
	out.DescriptionHash = Hash(r.key())
	out.Amount = r.uint64()
	out.Status = Status(r.byte())
	out.DareType = DareType(r.byte())
	out.WinnerSelection = WinnerSelection(r.byte())
	out.ProofHash = Hash(r.key())
	out.HasProof = r.bool()
	out.CreatedAt = r.int64()
	out.Deadline = r.int64()
	out.AcceptedAt = r.int64()
	out.CompletedAt = r.int64()
	out.Bump = r.byte()
	out.VaultBump = r.byte()

	if r.err != nil {
		return r.err
	}

	if !out.Status.Valid() || !out.DareType.Valid() || !out.WinnerSelection.Valid() {
		return fmt.Errorf("%w: dare %d has an unknown enum value", ErrInvalidEncoding, out.DareID)
	}

	*d = out

	return nil
}

func (s *UserStats) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, UserStatsSize)
	buf = append(buf, s.User[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, s.DaresCreated)
	buf = binary.LittleEndian.AppendUint32(buf, s.DaresAccepted)
	buf = binary.LittleEndian.AppendUint32(buf, s.DaresCompleted)
	buf = binary.LittleEndian.AppendUint32(buf, s.DaresFailed)
	buf = binary.LittleEndian.AppendUint64(buf, s.TotalEarned)
	buf = binary.LittleEndian.AppendUint64(buf, s.TotalSpent)
	buf = append(buf, s.Bump)

	return buf, nil
}

func (s *UserStats) UnmarshalBinary(data []byte) error {
	if len(data) != UserStatsSize {
		return fmt.Errorf("%w: user stats is %d bytes, want %d", ErrInvalidLength, len(data), UserStatsSize)
	}

	r := reader{data: data}

	var out UserStats

	out.User = r.key()
	out.DaresCreated = r.uint32()
	out.DaresAccepted = r.uint32()
	out.DaresCompleted = r.uint32()
	out.DaresFailed = r.uint32()
	out.TotalEarned = r.uint64()
	out.TotalSpent = r.uint64()
	out.Bump = r.byte()

	if r.err != nil {
		return r.err
	}

	*s = out

	return nil
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}

	return append(buf, 0)
}

func appendInt64(buf []byte, v int64) []byte {
	//nolint:gosec // Intentional conversion for binary encoding
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}

	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: short read at offset %d", ErrInvalidLength, r.off)

		return make([]byte, n)
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) key() identity.Key {
	var k identity.Key

	copy(k[:], r.next(identity.KeySize))

	return k
}

func (r *reader) byte() byte {
	return r.next(1)[0]
}

func (r *reader) bool() bool {
	switch b := r.byte(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: invalid bool byte %d at offset %d", ErrInvalidEncoding, b, r.off-1)
		}

		return false
	}
}

func (r *reader) uint32() uint32 {
	return binary.LittleEndian.Uint32(r.next(4))
}

func (r *reader) uint64() uint64 {
	return binary.LittleEndian.Uint64(r.next(8))
}

func (r *reader) int64() int64 {
	//nolint:gosec // Intentional conversion from binary encoding
	return int64(r.uint64())
}
