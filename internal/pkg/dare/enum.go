package dare

import "fmt"

var (
	statusNames = map[Status]string{
		StatusCreated:        "created",
		StatusActive:         "active",
		StatusProofSubmitted: "proof_submitted",
		StatusCompleted:      "completed",
		StatusExpired:        "expired",
		StatusCancelled:      "cancelled",
		StatusRejected:       "rejected",
		StatusRefused:        "refused",
	}
	dareTypeNames = map[DareType]string{
		DirectDare:   "direct_dare",
		PublicBounty: "public_bounty",
	}
	winnerSelectionNames = map[WinnerSelection]string{
		ChallengerSelect: "challenger_select",
		CommunityVote:    "community_vote",
	}
)

func (s Status) Valid() bool {
	_, ok := statusNames[s]

	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether no further transition may touch the dare.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled, StatusRefused:
		return true
	case StatusCreated, StatusActive, StatusProofSubmitted, StatusRejected:
		return false
	}

	return false
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidEncoding, uint8(s))
	}

	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	return unmarshalEnum(statusNames, text, s)
}

func (t DareType) Valid() bool {
	_, ok := dareTypeNames[t]

	return ok
}

func (t DareType) String() string {
	if name, ok := dareTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("dare_type(%d)", uint8(t))
}

func (t DareType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: dare type %d", ErrInvalidEncoding, uint8(t))
	}

	return []byte(t.String()), nil
}

func (t *DareType) UnmarshalText(text []byte) error {
	return unmarshalEnum(dareTypeNames, text, t)
}

func (w WinnerSelection) Valid() bool {
	_, ok := winnerSelectionNames[w]

	return ok
}

func (w WinnerSelection) String() string {
	if name, ok := winnerSelectionNames[w]; ok {
		return name
	}

	return fmt.Sprintf("winner_selection(%d)", uint8(w))
}

func (w WinnerSelection) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: winner selection %d", ErrInvalidEncoding, uint8(w))
	}

	return []byte(w.String()), nil
}

func (w *WinnerSelection) UnmarshalText(text []byte) error {
	return unmarshalEnum(winnerSelectionNames, text, w)
}

func unmarshalEnum[T comparable](names map[T]string, text []byte, out *T) error {
	for value, name := range names {
		if name == string(text) {
			*out = value

			return nil
		}
	}

	return fmt.Errorf("%w: unknown value %q", ErrInvalidEncoding, string(text))
}
