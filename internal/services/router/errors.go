package router

import "errors"

var (
	// ErrUnknownToken is returned when a query references an address outside the current token universe.
	ErrUnknownToken = errors.New("unknown token")
	// ErrNoPathFound means the search completed without a candidate. It is a valid empty result.
	ErrNoPathFound = errors.New("no path found")
	// ErrDataIntegrity aborts a graph build; the previous snapshot stays live.
	ErrDataIntegrity = errors.New("data integrity error")
	ErrInvalidMaxHops = errors.New("invalid max hops")

	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidFee            = errors.New("invalid fee")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrAmountOverflow        = errors.New("amount overflows 256 bits")
)
