// Package dataset provides deterministic shuffling and partitioning of
// in-memory datasets across simulated learners.
//
// All randomness is driven by an explicit seed so that a given seed always
// produces the same permutation and therefore the same per-learner splits:
//
//	perm, err := dataset.Shuffle(42, n)
//	x, y, err := dataset.ShuffleData(x, y, 42)
//	ranges, err := dataset.SplitByChunkSizes(len(x), dataset.EqualSplit(3))
//	for _, r := range ranges {
//	    shardX := x[r.Start:r.End]
//	}
package dataset
