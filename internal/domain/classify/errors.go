package classify

import "errors"

// Sentinel kinds for games that are not folded into the index.
var (
	ErrOngoing      = errors.New("game still in progress")
	ErrUnindexable  = errors.New("game finished without a result")
	ErrCasual       = errors.New("casual game")
	ErrVariant      = errors.New("unsupported variant")
	ErrRatingTooLow = errors.New("average rating below lowest group")
	ErrInvalidGame  = errors.New("invalid game")
)

// Reason returns a short label for err, suitable as a metrics label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrOngoing):
		return "ongoing"
	case errors.Is(err, ErrUnindexable):
		return "unindexable"
	case errors.Is(err, ErrCasual):
		return "casual"
	case errors.Is(err, ErrVariant):
		return "variant"
	case errors.Is(err, ErrRatingTooLow):
		return "rating"
	case errors.Is(err, ErrInvalidGame):
		return "invalid"
	default:
		return "other"
	}
}
