package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrNoData           = errors.New("insufficient data")
	ErrUnavailable      = errors.New("data unavailable")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownRating    = errors.New("unknown rating type")
)
