package router

import "sync"

// Buffer pools for the per-query path search. Every query needs a visited set sized to the
// token count; reusing them keeps concurrent queries from churning the GC.

const defaultVisitedCap = 1024

var visitedPool = sync.Pool{
	New: func() interface{} {
		s := make([]bool, 0, defaultVisitedCap)
		return &s
	},
}

// getVisited returns a cleared visited set of length n
func getVisited(n int) *[]bool {
	p := visitedPool.Get().(*[]bool)
	if cap(*p) < n {
		*p = make([]bool, n)
		return p
	}
	*p = (*p)[:n]
	clear(*p)
	return p
}

// putVisited returns a visited set to the pool. The search leaves it all false on exit.
func putVisited(p *[]bool) {
	visitedPool.Put(p)
}
