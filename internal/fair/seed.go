// Package fair implements the provably-fair primitives for the mines game:
// seed commitment, deterministic mine placement and the payout multiplier.
// Everything here is a pure function of its inputs so that players can
// re-run the same math after a round closes and confirm the server never
// had room to cheat.
package fair

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ServerSeedBytes is the entropy of a server seed. 32 bytes (256 bits)
// hex-encodes to a 64 character string.
const ServerSeedBytes = 32

// NewServerSeed draws a fresh server seed from the OS entropy source.
// The seed stays hidden until the session closes; only its hash is
// published up front.
func NewServerSeed() (string, error) {
	buf := make([]byte, ServerSeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// SeedHash returns the hex SHA-256 commitment for a server seed. This is
// what gets disclosed to the player at session start.
func SeedHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
