package domain

import "time"

// BestPathResult is the winning conversion path for one routing query.
type BestPathResult struct {
	Rate       float64   `json:"rate"`
	BestPath   []string  `json:"bestPath"`
	Route      []string  `json:"route"`
	Hops       int       `json:"hops"`
	Candidates int       `json:"candidates"`
	Time       time.Time `json:"time"`
}

type PathCandidate struct {
	Path  []string `json:"path"`
	Route []string `json:"route"`
	Rate  float64  `json:"rate"`
}

type AllPathsResult struct {
	Paths []PathCandidate `json:"paths"`
	Time  time.Time       `json:"time"`
}
