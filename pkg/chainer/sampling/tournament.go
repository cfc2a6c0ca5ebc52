package sampling

// Tournament picks an index by tournament selection: about half of the
// candidates (drawn with replacement) compete and the fittest contestant
// wins. Ties go to the contestant drawn first. Returns -1 when fitness is
// empty.
func Tournament(r *Rand, fitness []float64) int {
	n := len(fitness)
	if n == 0 {
		return -1
	}
	size := (n + 1) / 2

	winner := r.IntN(n)
	for i := 1; i < size; i++ {
		c := r.IntN(n)
		if fitness[c] > fitness[winner] {
			winner = c
		}
	}
	return winner
}
