package portfolio

import "errors"

var (
	// ErrNotFound means the symbol has no position, or no data to export
	ErrNotFound = errors.New("not found")
	// ErrInvalidOperation means a sell would take the share balance below zero
	ErrInvalidOperation = errors.New("not enough shares to sell")
	// ErrInvalidInput means a required request field is missing or malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrExternalFetch means the price source was unreachable or returned no usable rows
	ErrExternalFetch = errors.New("scraping failed")
)
