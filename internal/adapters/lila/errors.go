package lila

import "errors"

// Sentinel kinds for lichess API errors.
var (
	ErrInvalidUser      = errors.New("invalid user name")
	ErrUserNotFound     = errors.New("user not found")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrDecode           = errors.New("decode game")
)
