package fair_test

import (
	"encoding/hex"
	"testing"

	"mines-arcade-backend/internal/fair"
)

func TestNewServerSeed(t *testing.T) {
	seed, err := fair.NewServerSeed()
	if err != nil {
		t.Fatalf("failed to generate server seed: %v", err)
	}

	if len(seed) != fair.ServerSeedBytes*2 {
		t.Errorf("expected %d hex chars, got %d", fair.ServerSeedBytes*2, len(seed))
	}
	if _, err := hex.DecodeString(seed); err != nil {
		t.Errorf("seed should be valid hex: %v", err)
	}

	other, err := fair.NewServerSeed()
	if err != nil {
		t.Fatalf("failed to generate second seed: %v", err)
	}
	if seed == other {
		t.Error("two generated seeds should not collide")
	}
}

func TestVerifyCommitment(t *testing.T) {
	seed, err := fair.NewServerSeed()
	if err != nil {
		t.Fatalf("failed to generate server seed: %v", err)
	}

	hash := fair.SeedHash(seed)
	if !fair.VerifyCommitment(seed, hash) {
		t.Error("commitment should verify against its own seed")
	}
	if fair.VerifyCommitment(seed+"tampered", hash) {
		t.Error("tampered seed should fail commitment check")
	}
}

func TestVerifyRound(t *testing.T) {
	seed, err := fair.NewServerSeed()
	if err != nil {
		t.Fatalf("failed to generate server seed: %v", err)
	}
	hash := fair.SeedHash(seed)

	positions := fair.MinePositions(seed, "player-chosen-seed", 0, 5, 25)

	if !fair.VerifyRound(seed, hash, "player-chosen-seed", 0, 5, 25, positions) {
		t.Error("honest round should verify")
	}

	if fair.VerifyRound(seed, hash, "different-client-seed", 0, 5, 25, positions) {
		t.Error("round with a different client seed should not verify")
	}

	tampered := append([]int(nil), positions...)
	tampered[0] = (tampered[0] + 1) % 25
	if fair.VerifyRound(seed, hash, "player-chosen-seed", 0, 5, 25, tampered) {
		t.Error("tampered positions should not verify")
	}

	if fair.VerifyRound(seed, hash, "player-chosen-seed", 0, 5, 25, positions[:4]) {
		t.Error("truncated positions should not verify")
	}
}
