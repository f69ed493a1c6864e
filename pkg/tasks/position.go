package tasks

// PositionGap is the spacing between consecutive tasks in a lane. Sparse
// positions let a task drop between two neighbors without rewriting the
// rest of the lane.
const PositionGap = 1000

// NextPosition returns the position for appending after the current last
// position in a lane. Pass 0 for an empty lane.
func NextPosition(last int64) int64 {
	return last + PositionGap
}

// Between returns a position strictly between before and after. The second
// return is false when the gap is exhausted and the lane needs reindexing.
func Between(before, after int64) (int64, bool) {
	if after-before < 2 {
		return 0, false
	}
	return before + (after-before)/2, true
}

// Spread returns evenly spaced positions for n tasks, used when reindexing
// a lane.
func Spread(n int) []int64 {
	positions := make([]int64, n)
	for i := range positions {
		positions[i] = int64(i+1) * PositionGap
	}
	return positions
}
