package fair_test

import (
	"math"
	"testing"

	"mines-arcade-backend/internal/fair"
)

func TestMultiplierZeroReveals(t *testing.T) {
	for mineCount := 1; mineCount <= 24; mineCount++ {
		if m := fair.Multiplier(25, mineCount, 0); m != 1.0 {
			t.Errorf("multiplier with zero reveals should be exactly 1.0, got %f for %d mines", m, mineCount)
		}
	}
}

func TestMultiplierMonotonic(t *testing.T) {
	for _, mineCount := range []int{1, 3, 10, 24} {
		safeTiles := 25 - mineCount
		prev := fair.Multiplier(25, mineCount, 0)
		for revealed := 1; revealed <= safeTiles; revealed++ {
			m := fair.Multiplier(25, mineCount, revealed)
			if m <= prev {
				t.Errorf("multiplier should grow with each reveal: %f -> %f at %d mines, %d revealed",
					prev, m, mineCount, revealed)
			}
			prev = m
		}
	}
}

func TestMultiplierThreeMinesFiveReveals(t *testing.T) {
	// 25 cells, 3 mines, 5 safe reveals:
	// 0.99^5 * (25*24*23*22*21)/(22*21*20*19*18) = 0.99^5 * 13800/6840
	m := fair.Multiplier(25, 3, 5)
	want := math.Pow(0.99, 5) * 13800.0 / 6840.0

	if math.Abs(m-want) > 1e-9 {
		t.Errorf("expected multiplier %f, got %f", want, m)
	}

	if payout := fair.Payout(100, m); payout != 191 {
		t.Errorf("expected payout 191 for stake 100, got %d", payout)
	}
}

func TestMultiplierNearMaxMines(t *testing.T) {
	// 24 mines leaves a single safe tile; surviving the first reveal pays
	// 0.99 * 25/1.
	m := fair.Multiplier(25, 24, 1)
	if math.Abs(m-24.75) > 1e-9 {
		t.Errorf("expected multiplier 24.75, got %f", m)
	}

	if payout := fair.Payout(50, m); payout != 1237 {
		t.Errorf("expected payout 1237 for stake 50, got %d", payout)
	}
}

func TestPayoutTruncates(t *testing.T) {
	// 1.999... multiplier on an odd stake must round down, never up.
	if payout := fair.Payout(101, 1.9999); payout != 201 {
		t.Errorf("expected truncated payout 201, got %d", payout)
	}
	if payout := fair.Payout(100, 1.0); payout != 100 {
		t.Errorf("expected payout 100 at 1.0x, got %d", payout)
	}
}
