package dare

import "errors"

// Kind groups rejection reasons by what the caller has to change.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindState
	KindAuthorization
	KindDomainMismatch
	KindArithmetic
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindDomainMismatch:
		return "domain_mismatch"
	case KindArithmetic:
		return "arithmetic"
	}

	return "unknown"
}

// Error is a named rejection. Every failed transition returns exactly one
// of the values below and leaves all records untouched.
type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func newError(code string, kind Kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidAmount  = newError("invalid_amount", KindValidation, "amount must be greater than zero")
	ErrDeadlinePassed = newError("deadline_passed", KindValidation, "deadline must be in the future")
	ErrDeadlineTooFar = newError("deadline_too_far", KindValidation, "deadline is too far in the future (max 30 days)")
	ErrSelfTarget     = newError("self_target", KindValidation, "a dare cannot target its own challenger")
	ErrZeroIdentity   = newError("zero_identity", KindValidation, "the default identity cannot take part in a dare")

	ErrInvalidDareStatus   = newError("invalid_dare_status", KindState, "dare is not in the expected status")
	ErrDareExpired         = newError("dare_expired", KindState, "the dare has expired")
	ErrDareNotExpired      = newError("dare_not_expired", KindState, "the dare has not expired yet")
	ErrDisputeWindowActive = newError("dispute_window_active", KindState, "the dispute window has not passed yet")

	ErrCannotAcceptOwnDare    = newError("cannot_accept_own_dare", KindAuthorization, "you cannot accept your own dare")
	ErrUnauthorizedChallenger = newError("unauthorized_challenger", KindAuthorization, "only the challenger can perform this action")
	ErrUnauthorizedDaree      = newError("unauthorized_daree", KindAuthorization, "only the daree can perform this action")
	ErrMissingDareeStats      = newError("missing_daree_stats", KindAuthorization, "daree stats record is required but missing")
	ErrMissingChallengerStats = newError("missing_challenger_stats", KindAuthorization, "challenger stats record is required but missing")
	ErrStatsOwnerMismatch     = newError("stats_owner_mismatch", KindAuthorization, "stats record belongs to a different identity")

	ErrInvalidDareType = newError("invalid_dare_type", KindDomainMismatch, "this dare type does not support this action")
	ErrNotTargetedDare = newError("not_targeted_dare", KindDomainMismatch, "this dare does not have a target daree to refuse")

	ErrArithmeticOverflow = newError("arithmetic_overflow", KindArithmetic, "arithmetic overflow occurred")
)

var (
	ErrInvalidLength   = errors.New("invalid record length")
	ErrInvalidEncoding = errors.New("invalid record encoding")
	ErrStatsNotLoaded  = errors.New("stats record was not loaded")
)

// KindOf returns the kind of a domain rejection wrapped anywhere in err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}

	return 0, false
}
