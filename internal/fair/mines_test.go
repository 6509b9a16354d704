package fair_test

import (
	"sort"
	"testing"

	"mines-arcade-backend/internal/fair"
)

func TestMinePositionsShape(t *testing.T) {
	for _, mineCount := range []int{1, 3, 12, 24} {
		positions := fair.MinePositions("server-seed", "client-seed", 0, mineCount, 25)

		if len(positions) != mineCount {
			t.Fatalf("expected %d mines, got %d", mineCount, len(positions))
		}

		if !sort.IntsAreSorted(positions) {
			t.Errorf("positions should be sorted: %v", positions)
		}

		seen := make(map[int]bool)
		for _, p := range positions {
			if p < 0 || p >= 25 {
				t.Errorf("position %d out of grid range", p)
			}
			if seen[p] {
				t.Errorf("duplicate position %d", p)
			}
			seen[p] = true
		}
	}
}

func TestMinePositionsDeterministic(t *testing.T) {
	a := fair.MinePositions("seed-a", "seed-b", 7, 5, 25)
	b := fair.MinePositions("seed-a", "seed-b", 7, 5, 25)

	if len(a) != len(b) {
		t.Fatalf("repeated derivation changed length: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("repeated derivation changed positions: %v vs %v", a, b)
		}
	}
}

func TestMinePositionsVaryWithNonce(t *testing.T) {
	base := fair.MinePositions("seed-a", "seed-b", 0, 5, 25)

	varied := false
	for nonce := int64(1); nonce <= 20; nonce++ {
		other := fair.MinePositions("seed-a", "seed-b", nonce, 5, 25)
		for i := range base {
			if base[i] != other[i] {
				varied = true
				break
			}
		}
		if varied {
			break
		}
	}

	if !varied {
		t.Error("20 different nonces all produced the identical layout")
	}
}

func TestMinePositionsVaryWithClientSeed(t *testing.T) {
	base := fair.MinePositions("seed-a", "client-1", 0, 12, 25)

	varied := false
	for _, clientSeed := range []string{"client-2", "client-3", "client-4", "client-5"} {
		other := fair.MinePositions("seed-a", clientSeed, 0, 12, 25)
		for i := range base {
			if base[i] != other[i] {
				varied = true
				break
			}
		}
		if varied {
			break
		}
	}

	if !varied {
		t.Error("changing the client seed never changed the layout")
	}
}

func TestMinePositionsFullGrid(t *testing.T) {
	// 24 mines on 25 cells must still terminate and leave exactly one
	// safe cell.
	positions := fair.MinePositions("seed-a", "seed-b", 0, 24, 25)
	if len(positions) != 24 {
		t.Fatalf("expected 24 mines, got %d", len(positions))
	}
}

func TestIsMine(t *testing.T) {
	positions := fair.MinePositions("seed-a", "seed-b", 0, 3, 25)

	for _, p := range positions {
		if !fair.IsMine(positions, p) {
			t.Errorf("IsMine should report %d as a mine", p)
		}
	}

	mines := 0
	for cell := 0; cell < 25; cell++ {
		if fair.IsMine(positions, cell) {
			mines++
		}
	}
	if mines != 3 {
		t.Errorf("expected 3 mine cells across the grid, got %d", mines)
	}
}
