package money

import "errors"

// Sentinel kinds for money errors.
var (
	ErrOverflow = errors.New("money overflow")
	ErrNegative = errors.New("negative amount")
	ErrParse    = errors.New("invalid money amount")
)
