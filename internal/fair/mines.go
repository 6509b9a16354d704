package fair

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
)

// MinePositions derives the mine layout for a session. It is a pure
// function: the same (serverSeed, clientSeed, nonce) always produces the
// same sorted set of mineCount distinct cells in [0, gridSize).
//
// Derivation: hash "serverSeed:clientSeed:nonce:i" for i = 0, 1, 2, ...,
// take the first 4 bytes of each digest as a big-endian uint32 and reduce
// it modulo gridSize. A candidate that is already a mine is discarded and
// the next i is tried (rejection sampling, so every accepted draw stays
// uniform over the remaining cells). Verifiers must reimplement exactly
// this loop.
func MinePositions(serverSeed, clientSeed string, nonce int64, mineCount, gridSize int) []int {
	positions := make([]int, 0, mineCount)
	used := make(map[int]bool, mineCount)

	for i := 0; len(positions) < mineCount; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%d", serverSeed, clientSeed, nonce, i)))
		candidate := int(binary.BigEndian.Uint32(sum[:4])) % gridSize
		if used[candidate] {
			continue
		}
		used[candidate] = true
		positions = append(positions, candidate)
	}

	sort.Ints(positions)
	return positions
}

// IsMine reports whether cell is in positions. positions is the sorted
// output of MinePositions.
func IsMine(positions []int, cell int) bool {
	i := sort.SearchInts(positions, cell)
	return i < len(positions) && positions[i] == cell
}
