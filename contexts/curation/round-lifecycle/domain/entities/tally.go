package entities

// TallyResult is the pass/fail outcome for one nomination's poll.
type TallyResult struct {
	YesVotes int
	NoVotes  int
	Ratio    float64
	Passed   bool
}

// EvaluateTally computes the outcome of a Yes/No poll against a threshold in
// [0, 1]. A poll with zero total votes has an undefined ratio; it is treated
// as ratio 0 and failing so that no NaN ever propagates. The threshold
// boundary is inclusive: exactly-at-threshold passes.
func EvaluateTally(yesVotes int, noVotes int, threshold float64) TallyResult {
	result := TallyResult{
		YesVotes: yesVotes,
		NoVotes:  noVotes,
	}
	total := yesVotes + noVotes
	if total == 0 {
		return result
	}
	result.Ratio = float64(yesVotes) / float64(total)
	result.Passed = result.Ratio >= threshold
	return result
}
