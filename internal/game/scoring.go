package game

import "math"

// Scoring constants. The base award dominates so that speed is rewarded
// without punishing a careful correct answer.
const (
	BasePoints       = 100
	MaxBonusPoints   = 50
	BonusTimeLimitMs = 20000
)

// Score maps (correctness, elapsed time) to points. Incorrect answers score
// zero. Correct answers earn the base award plus a bonus that decays linearly
// from MaxBonusPoints at 0ms to zero at BonusTimeLimitMs.
func Score(correct bool, elapsedMs int) int {
	if !correct {
		return 0
	}
	return BasePoints + timeBonus(elapsedMs)
}

func timeBonus(elapsedMs int) int {
	if elapsedMs >= BonusTimeLimitMs {
		return 0
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	return int(math.Round(MaxBonusPoints * (1 - float64(elapsedMs)/BonusTimeLimitMs)))
}
