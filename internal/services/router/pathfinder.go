package router

// findPaths enumerates every simple path from src to dst using depth-first search.
//
// The visited set is scoped to the path under exploration: a vertex is marked on entry and
// cleared on backtrack, so it can appear in many candidates but never twice in one. A path is
// captured the first time dst is reached and never extended past it. Neighbors are explored in
// adjacency insertion order, which makes the output order deterministic for a given snapshot.
//
// maxHops counts intermediate hops: 0 allows only a direct market,
// and a returned path has at most maxHops+1 edges. A simple path never visits more than every
// token once, so budgets beyond the token count are clamped.
//
// Cost is exponential in out-degree and hop budget (O(V^V) for a complete graph). That is the
// accepted ceiling for sparse graphs and budgets of 2-4; callers bound maxHops instead of the
// search pruning branches.
func (s *graphSnapshot) findPaths(src, dst TokenID, maxHops int) [][]TokenID {
	if maxHops < 0 || int(src) >= len(s.adj) || int(dst) >= len(s.adj) {
		return nil
	}
	if maxHops > len(s.adj) {
		maxHops = len(s.adj)
	}

	visited := getVisited(len(s.adj))
	defer putVisited(visited)

	path := make([]TokenID, 1, maxHops+2)
	path[0] = src

	var out [][]TokenID
	s.walk(src, dst, maxHops, *visited, path, &out)
	return out
}

func (s *graphSnapshot) walk(u, dst TokenID, budget int, visited []bool, path []TokenID, out *[][]TokenID) {
	if u == dst {
		found := make([]TokenID, len(path))
		copy(found, path)
		*out = append(*out, found)
		return
	}
	if budget < 0 {
		return
	}

	visited[u] = true
	for _, v := range s.adj[u] {
		if visited[v] {
			continue
		}
		s.walk(v, dst, budget-1, visited, append(path, v), out)
	}
	visited[u] = false
}
