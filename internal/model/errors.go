package model

import "errors"

// Error taxonomy for the numeric engine. Failures wrap one of these sentinels
// so callers can branch with errors.Is. An unreached target or stop during
// backtesting is never an error — it is a nil timestamp in the OutcomeRecord.
var (
	// ErrData marks malformed, non-numeric, or insufficient input rows.
	ErrData = errors.New("malformed or insufficient input data")

	// ErrInsufficientHistory marks fewer completed sessions or warm-up bars
	// than a computation requires.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrParameter marks an invalid window or length argument.
	ErrParameter = errors.New("invalid parameter")
)
