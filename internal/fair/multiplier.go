package fair

import "math"

// HouseEdge is applied once per revealed tile, compounding. The raw
// multiplier is the inverse of the hypergeometric probability of having
// revealed that many safe tiles in a row, so before the edge the game has
// expected value exactly equal to the stake.
const HouseEdge = 0.99

// Multiplier returns the payout multiplier after revealed safe tiles on a
// grid of gridSize cells hiding mineCount mines. revealed = 0 yields
// exactly 1.0.
func Multiplier(gridSize, mineCount, revealed int) float64 {
	safeTiles := gridSize - mineCount

	multiplier := 1.0
	for i := 0; i < revealed; i++ {
		probSafe := float64(safeTiles-i) / float64(gridSize-i)
		multiplier *= HouseEdge / probSafe
	}
	return multiplier
}

// Payout converts a stake and multiplier into an integer token payout.
// Truncation, never rounding up: the house is never short-paid by
// fractional tokens.
func Payout(stake int64, multiplier float64) int64 {
	return int64(math.Floor(float64(stake) * multiplier))
}
