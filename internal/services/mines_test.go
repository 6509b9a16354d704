package services_test

import (
	"context"
	"errors"
	"testing"

	"mines-arcade-backend/internal/fair"
	"mines-arcade-backend/internal/models"
	"mines-arcade-backend/internal/services"
)

func setupEngine(t *testing.T) (*services.MinesEngine, *services.RedisService) {
	t.Helper()
	redisService := setupTestRedis(t)
	return services.NewMinesEngine(testConfig(), redisService), redisService
}

func cleanupUser(t *testing.T, store *services.RedisService, userID int64, gameIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range gameIDs {
		if session, err := store.GetMinesSession(ctx, id); err == nil {
			store.DeleteMinesSession(ctx, session)
		}
	}
	store.DeleteWallet(ctx, userID)
}

// boardFor loads the persisted session and derives one known-safe and
// one known-mine cell. Tests read the server seed from the store
// directly; the API never leaks it while a round is open.
func boardFor(t *testing.T, store *services.RedisService, gameID string) (session *models.MinesSession, safe, mine int) {
	t.Helper()

	session, err := store.GetMinesSession(context.Background(), gameID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}

	positions := fair.MinePositions(session.ServerSeed, session.ClientSeed, session.Nonce, session.MineCount, session.GridSize)

	safe, mine = -1, -1
	for cell := 0; cell < session.GridSize; cell++ {
		if fair.IsMine(positions, cell) {
			if mine < 0 {
				mine = cell
			}
		} else if safe < 0 {
			safe = cell
		}
	}
	return session, safe, mine
}

func TestMinesCashoutFlow(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910001)

	session, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      100,
		MineCount:  3,
		ClientSeed: "cashout-flow-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, userID, session.ID)

	if session.ServerSeedHash != fair.SeedHash(session.ServerSeed) {
		t.Error("Commitment must be the hash of the server seed")
	}

	wallet, _ := store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance-100 || wallet.LockedBalance != 100 {
		t.Errorf("Stake should be debited exactly once: balance=%d locked=%d", wallet.Balance, wallet.LockedBalance)
	}

	_, safe, _ := boardFor(t, store, session.ID)

	result, err := engine.Reveal(ctx, userID, session.ID, safe)
	if err != nil {
		t.Fatalf("Failed to reveal safe tile: %v", err)
	}
	if result.Busted {
		t.Fatal("Known-safe tile reported as mine")
	}
	if len(result.State.Revealed) != 1 || result.State.Revealed[0] != safe {
		t.Errorf("Expected revealed [%d], got %v", safe, result.State.Revealed)
	}

	wantMult := fair.Multiplier(25, 3, 1)
	if result.State.CurrentMultiplier != wantMult {
		t.Errorf("Expected multiplier %f, got %f", wantMult, result.State.CurrentMultiplier)
	}

	// Same tile again is invalid, not a duplicate reveal.
	if _, err := engine.Reveal(ctx, userID, session.ID, safe); !errors.Is(err, services.ErrInvalidCell) {
		t.Errorf("Re-revealing a tile should fail ErrInvalidCell, got %v", err)
	}

	cashout, err := engine.Cashout(ctx, userID, session.ID)
	if err != nil {
		t.Fatalf("Failed to cash out: %v", err)
	}

	wantPayout := fair.Payout(100, wantMult)
	if cashout.Payout != wantPayout {
		t.Errorf("Expected payout %d, got %d", wantPayout, cashout.Payout)
	}
	if !fair.VerifyRound(cashout.ServerSeed, session.ServerSeedHash, session.ClientSeed, session.Nonce, 3, 25, cashout.MinePositions) {
		t.Error("Disclosed round should verify against the commitment")
	}

	wallet, _ = store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance-100+wantPayout {
		t.Errorf("Payout should be credited exactly once: balance=%d", wallet.Balance)
	}
	if wallet.LockedBalance != 0 {
		t.Errorf("Locked balance should be released on close, got %d", wallet.LockedBalance)
	}

	// Terminal session rejects further operations.
	if _, err := engine.Reveal(ctx, userID, session.ID, safe+1); !errors.Is(err, services.ErrSessionClosed) {
		t.Errorf("Reveal on cashed-out session should fail ErrSessionClosed, got %v", err)
	}
	if _, err := engine.Cashout(ctx, userID, session.ID); !errors.Is(err, services.ErrSessionClosed) {
		t.Errorf("Second cashout should fail ErrSessionClosed, got %v", err)
	}
}

func TestMinesBustFlow(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910002)

	session, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      200,
		MineCount:  24,
		ClientSeed: "bust-flow-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, userID, session.ID)

	_, _, mine := boardFor(t, store, session.ID)

	result, err := engine.Reveal(ctx, userID, session.ID, mine)
	if err != nil {
		t.Fatalf("Failed to reveal mine tile: %v", err)
	}
	if !result.Busted {
		t.Fatal("Known mine tile reported as safe")
	}
	if len(result.MinePositions) != 24 {
		t.Errorf("Bust should disclose all 24 mines, got %d", len(result.MinePositions))
	}
	if !fair.VerifyRound(result.ServerSeed, session.ServerSeedHash, session.ClientSeed, session.Nonce, 24, 25, result.MinePositions) {
		t.Error("Disclosed bust should verify against the commitment")
	}

	// Stake forfeited, nothing credited, lock released.
	wallet, _ := store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance-200 {
		t.Errorf("Bust must not credit: balance=%d", wallet.Balance)
	}
	if wallet.LockedBalance != 0 {
		t.Errorf("Locked balance should be released on bust, got %d", wallet.LockedBalance)
	}

	// No transition out of busted, and no second disclosure.
	if _, err := engine.Reveal(ctx, userID, session.ID, 0); !errors.Is(err, services.ErrSessionClosed) {
		t.Errorf("Reveal on busted session should fail ErrSessionClosed, got %v", err)
	}
	if _, err := engine.Cashout(ctx, userID, session.ID); !errors.Is(err, services.ErrSessionClosed) {
		t.Errorf("Cashout on busted session should fail ErrSessionClosed, got %v", err)
	}

	wallet, _ = store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance-200 {
		t.Errorf("Rejected operations must not touch the ledger: balance=%d", wallet.Balance)
	}
}

func TestMinesStartValidation(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910003)
	defer cleanupUser(t, store, userID)

	cases := []struct {
		name string
		req  models.MinesStartRequest
	}{
		{"stake below minimum", models.MinesStartRequest{Stake: 5, MineCount: 3, ClientSeed: "seed"}},
		{"stake above maximum", models.MinesStartRequest{Stake: 1000000, MineCount: 3, ClientSeed: "seed"}},
		{"zero mines", models.MinesStartRequest{Stake: 100, MineCount: 0, ClientSeed: "seed"}},
		{"mines fill grid", models.MinesStartRequest{Stake: 100, MineCount: 25, ClientSeed: "seed"}},
		{"empty client seed", models.MinesStartRequest{Stake: 100, MineCount: 3, ClientSeed: "   "}},
		{"client seed too long", models.MinesStartRequest{Stake: 100, MineCount: 3, ClientSeed: string(make([]byte, 65))}},
	}

	for _, tc := range cases {
		if _, err := engine.Start(ctx, userID, &tc.req); !errors.Is(err, services.ErrInvalidParameters) {
			t.Errorf("%s: expected ErrInvalidParameters, got %v", tc.name, err)
		}
	}

	// Invalid starts must not have debited anything.
	wallet, _ := store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance {
		t.Errorf("Rejected starts must not debit: balance=%d", wallet.Balance)
	}

	if _, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      models.StartingBalance * 2,
		MineCount:  3,
		ClientSeed: "seed",
	}); !errors.Is(err, services.ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMinesOwnershipAndMissing(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	owner := int64(910004)
	stranger := int64(910005)

	session, err := engine.Start(ctx, owner, &models.MinesStartRequest{
		Stake:      100,
		MineCount:  3,
		ClientSeed: "ownership-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, owner, session.ID)
	defer cleanupUser(t, store, stranger)

	if _, err := engine.Reveal(ctx, stranger, session.ID, 0); !errors.Is(err, services.ErrForbidden) {
		t.Errorf("Stranger reveal should fail ErrForbidden, got %v", err)
	}
	if _, err := engine.Cashout(ctx, stranger, session.ID); !errors.Is(err, services.ErrForbidden) {
		t.Errorf("Stranger cashout should fail ErrForbidden, got %v", err)
	}

	if _, err := engine.Reveal(ctx, owner, session.ID, -1); !errors.Is(err, services.ErrInvalidCell) {
		t.Errorf("Negative tile should fail ErrInvalidCell, got %v", err)
	}
	if _, err := engine.Reveal(ctx, owner, session.ID, 25); !errors.Is(err, services.ErrInvalidCell) {
		t.Errorf("Out-of-grid tile should fail ErrInvalidCell, got %v", err)
	}

	if _, err := engine.Cashout(ctx, owner, session.ID); !errors.Is(err, services.ErrNothingRevealed) {
		t.Errorf("Cashout with no reveals should fail ErrNothingRevealed, got %v", err)
	}

	if _, err := engine.Reveal(ctx, owner, "no-such-game", 0); !errors.Is(err, services.ErrSessionNotFound) {
		t.Errorf("Unknown game should fail ErrSessionNotFound, got %v", err)
	}
}

func TestMinesConcurrencyConflict(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910006)

	session, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      100,
		MineCount:  3,
		ClientSeed: "conflict-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, userID, session.ID)

	// Hold the per-session lock; every engine operation must lose the
	// race rather than proceed on a stale read.
	token, err := store.AcquireSessionLock(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to acquire session lock: %v", err)
	}

	if _, err := engine.Reveal(ctx, userID, session.ID, 0); !errors.Is(err, services.ErrConcurrencyConflict) {
		t.Errorf("Reveal under held lock should fail ErrConcurrencyConflict, got %v", err)
	}
	if _, err := engine.Cashout(ctx, userID, session.ID); !errors.Is(err, services.ErrConcurrencyConflict) {
		t.Errorf("Cashout under held lock should fail ErrConcurrencyConflict, got %v", err)
	}

	store.ReleaseSessionLock(ctx, session.ID, token)

	_, safe, _ := boardFor(t, store, session.ID)
	if _, err := engine.Reveal(ctx, userID, session.ID, safe); err != nil {
		t.Errorf("Reveal after lock release should succeed, got %v", err)
	}
}

func TestMinesSingleOpenRound(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910007)

	session, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      100,
		MineCount:  3,
		ClientSeed: "single-round-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, userID, session.ID)

	if _, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      100,
		MineCount:  3,
		ClientSeed: "second-round-seed",
	}); !errors.Is(err, services.ErrInvalidParameters) {
		t.Errorf("Second open round should be rejected, got %v", err)
	}

	state, err := engine.ActiveSession(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to load active session: %v", err)
	}
	if state.GameID != session.ID {
		t.Errorf("Active session mismatch: expected %s, got %s", session.ID, state.GameID)
	}
	if state.ServerSeedHash != session.ServerSeedHash {
		t.Error("Active view should expose the commitment hash")
	}
}

func TestMinesExpireStaleSessions(t *testing.T) {
	engine, store := setupEngine(t)
	defer store.Close()

	ctx := context.Background()
	userID := int64(910008)

	session, err := engine.Start(ctx, userID, &models.MinesStartRequest{
		Stake:      300,
		MineCount:  5,
		ClientSeed: "expiry-seed",
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	defer cleanupUser(t, store, userID, session.ID)

	// maxAge 0 treats every active session as stale.
	if n := engine.ExpireStaleSessions(ctx, 0); n < 1 {
		t.Fatalf("Expected at least one expired session, got %d", n)
	}

	expired, err := store.GetMinesSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to load expired session: %v", err)
	}
	if expired.Status != models.StatusExpired {
		t.Errorf("Expected status expired, got %s", expired.Status)
	}

	wallet, _ := store.GetWallet(ctx, userID)
	if wallet.Balance != models.StartingBalance {
		t.Errorf("Expiry should refund the stake in full: balance=%d", wallet.Balance)
	}
	if wallet.LockedBalance != 0 {
		t.Errorf("Expiry should release the lock bucket, got %d", wallet.LockedBalance)
	}

	if _, err := engine.Reveal(ctx, userID, session.ID, 0); !errors.Is(err, services.ErrSessionClosed) {
		t.Errorf("Reveal on expired session should fail ErrSessionClosed, got %v", err)
	}
}
