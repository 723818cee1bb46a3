package betting

import "errors"

// Rejections. They are handled inside the engine and reported on Step.Rejection.
var (
	ErrResolverUnavailable = errors.New("resolver unavailable")
	ErrInvalidPlayers      = errors.New("unknown players in bet")
	ErrNoPlayers           = errors.New("no players identified")
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrUnknownStat         = errors.New("unknown stat type")
	ErrUnknownLine         = errors.New("unknown line value")
	ErrInvalidSide         = errors.New("invalid bet side")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNonPositiveAmount   = errors.New("wager amount must be positive")
	ErrStaleLineMismatch   = errors.New("cart line no longer matches dataset")
	ErrUnexpectedInput     = errors.New("input not expected in current phase")
)

var rejectionKinds = map[error]string{
	ErrResolverUnavailable: "resolver_unavailable",
	ErrInvalidPlayers:      "invalid_players",
	ErrNoPlayers:           "no_players",
	ErrUnknownPlayer:       "unknown_player",
	ErrUnknownStat:         "unknown_stat",
	ErrUnknownLine:         "unknown_line",
	ErrInvalidSide:         "invalid_side",
	ErrEmptyCart:           "empty_cart",
	ErrNonPositiveAmount:   "non_positive_amount",
	ErrStaleLineMismatch:   "stale_line",
	ErrUnexpectedInput:     "unexpected_input",
}

// RejectionKind returns a stable label for a rejection, used in metrics.
func RejectionKind(err error) string {
	for sentinel, kind := range rejectionKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return "other"
}

// StaleLinesError lists every cart line that failed the final dataset check.
type StaleLinesError struct {
	Lines []Line
}

func (e *StaleLinesError) Error() string {
	return ErrStaleLineMismatch.Error()
}

func (e *StaleLinesError) Unwrap() error {
	return ErrStaleLineMismatch
}
