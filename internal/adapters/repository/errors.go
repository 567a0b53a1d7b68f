package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("position not found")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
