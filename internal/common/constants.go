// Package common contains common constants and variables used across services
package common

const (
	// DefaultFeeBps is the Uniswap V2 swap fee.
	DefaultFeeBps uint16 = 30
	MaxFeeBps     uint16 = 10000

	MaxSearchResults = 50
)
