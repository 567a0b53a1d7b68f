package lichess

import "errors"

// ErrInvalidData marks malformed input: a truncated stream, a reserved bit
// field value or a value outside a closed set.
var ErrInvalidData = errors.New("invalid data")
