package router

import (
	"fmt"
	"math"
	"strings"
)

// RateFunc returns the spot rate of the directed edge from -> to.
type RateFunc func(from, to TokenID) float64

// RateStrategy scores a path so that a higher score means a higher end-to-end rate.
type RateStrategy interface {
	Name() string
	// Score reduces the edge rates along path into a comparable value.
	Score(path []TokenID, rate RateFunc) float64
	// Rate turns a score back into the end-to-end conversion rate.
	Rate(score float64) float64
}

const (
	StrategyLog    = "log"
	StrategyLinear = "linear"
)

// LogStrategy sums log2 of each edge rate. Long chains of very small or very large rates stay
// in range where a plain product would underflow or overflow.
type LogStrategy struct{}

func (LogStrategy) Name() string { return StrategyLog }

func (LogStrategy) Score(path []TokenID, rate RateFunc) float64 {
	var sum float64
	for i := 0; i+1 < len(path); i++ {
		sum += math.Log2(rate(path[i], path[i+1]))
	}
	return sum
}

func (LogStrategy) Rate(score float64) float64 {
	return math.Exp2(score)
}

// LinearStrategy multiplies edge rates directly.
type LinearStrategy struct{}

func (LinearStrategy) Name() string { return StrategyLinear }

func (LinearStrategy) Score(path []TokenID, rate RateFunc) float64 {
	product := 1.0
	for i := 0; i+1 < len(path); i++ {
		product *= rate(path[i], path[i+1])
	}
	return product
}

func (LinearStrategy) Rate(score float64) float64 {
	return score
}

func StrategyByName(name string) (RateStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyLog:
		return LogStrategy{}, nil
	case StrategyLinear:
		return LinearStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown rate strategy %q", name)
	}
}
