package models

import "errors"

// ErrInvalidInput marks a caller contract violation (negative depths,
// unsorted peaks, unknown peak types, out of range thresholds).
// Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")
