package fair

// VerifyCommitment checks that a disclosed server seed matches the hash
// published at session start. This is the half of the fairness proof that
// shows the server could not have swapped seeds after seeing the player's
// moves.
func VerifyCommitment(serverSeed, serverSeedHash string) bool {
	return SeedHash(serverSeed) == serverSeedHash
}

// VerifyRound recomputes the mine layout from the disclosed inputs and
// checks it against the positions the server returned at close time. Both
// checks must pass for a round to be provably fair.
func VerifyRound(serverSeed, serverSeedHash, clientSeed string, nonce int64, mineCount, gridSize int, positions []int) bool {
	if !VerifyCommitment(serverSeed, serverSeedHash) {
		return false
	}

	expected := MinePositions(serverSeed, clientSeed, nonce, mineCount, gridSize)
	if len(expected) != len(positions) {
		return false
	}
	for i := range expected {
		if expected[i] != positions[i] {
			return false
		}
	}
	return true
}
