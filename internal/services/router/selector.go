package router

// selectBest returns the candidate with the highest score. Only a strictly greater score
// replaces the incumbent, so ties keep the first path found. Zero-edge candidates carry no
// conversion and are skipped. ok is false when nothing qualifies.
func selectBest(candidates [][]TokenID, score func(path []TokenID) float64) (best []TokenID, bestScore float64, ok bool) {
	for _, path := range candidates {
		if len(path) < 2 {
			continue
		}
		s := score(path)
		if !ok || s > bestScore {
			best, bestScore, ok = path, s, true
		}
	}
	return best, bestScore, ok
}
