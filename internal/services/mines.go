package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mines-arcade-backend/internal/config"
	"mines-arcade-backend/internal/fair"
	"mines-arcade-backend/internal/models"
)

// Broadcaster pushes round outcomes to connected clients. The engine
// works fine with a nil broadcaster.
type Broadcaster interface {
	BroadcastRoundClosed(record *models.RoundRecord)
}

// MinesEngine is the session state machine. It is stateless between
// requests: every operation loads the session from the store, validates
// the transition under the per-session lock and persists the result.
type MinesEngine struct {
	store       *RedisService
	broadcaster Broadcaster

	gridSize int
	minStake int64
	maxStake int64
}

func NewMinesEngine(cfg *config.Config, store *RedisService) *MinesEngine {
	return &MinesEngine{
		store:    store,
		gridSize: cfg.GridSize,
		minStake: cfg.MinStake,
		maxStake: cfg.MaxStake,
	}
}

// SetBroadcaster wires the live feed after construction; main builds the
// websocket hub with a reference to the engine.
func (e *MinesEngine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// GridSize is the fixed cell count of the game configuration.
func (e *MinesEngine) GridSize() int {
	return e.gridSize
}

// Start opens a new round: commits a fresh server seed, debits the stake
// and persists the session as active with no reveals. The debit happens
// before the session write; if the write fails the stake is refunded so
// no orphaned debit survives.
func (e *MinesEngine) Start(ctx context.Context, userID int64, req *models.MinesStartRequest) (*models.MinesSession, error) {
	if err := e.validateStart(req); err != nil {
		return nil, err
	}

	if _, err := e.store.GetUserActiveSessionID(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: finish the open round first", ErrInvalidParameters)
	}

	serverSeed, err := fair.NewServerSeed()
	if err != nil {
		return nil, fmt.Errorf("failed to commit server seed: %v", err)
	}

	// Creates the wallet row on first contact; the debit script requires
	// it to exist.
	if _, err := e.store.GetWallet(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: wallet: %v", ErrLedgerFailure, err)
	}

	if _, err := e.store.DebitStake(ctx, userID, req.Stake); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.MinesSession{
		ID:             models.GenerateGameID(),
		UserID:         userID,
		Stake:          req.Stake,
		MineCount:      req.MineCount,
		GridSize:       e.gridSize,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.SeedHash(serverSeed),
		ClientSeed:     strings.TrimSpace(req.ClientSeed),
		Nonce:          0,
		Revealed:       []int{},
		Status:         models.StatusActive,
		CreatedAt:      now,
	}

	if err := e.store.SaveMinesSession(ctx, session); err != nil {
		// Compensate the debit; the round never existed.
		if _, refundErr := e.store.RefundStake(ctx, userID, req.Stake); refundErr != nil {
			log.Printf("[Mines Start] refund failed for user %d stake %d: %v", userID, req.Stake, refundErr)
		}
		return nil, fmt.Errorf("%w: session persist: %v", ErrLedgerFailure, err)
	}

	e.recordTransaction(ctx, session, models.TransactionTypeStake, req.Stake)

	log.Printf("[Mines Start] user=%d game=%s stake=%d mines=%d", userID, session.ID, req.Stake, req.MineCount)

	return session, nil
}

func (e *MinesEngine) validateStart(req *models.MinesStartRequest) error {
	if req.Stake < e.minStake || req.Stake > e.maxStake {
		return fmt.Errorf("%w: stake must be between %d and %d", ErrInvalidParameters, e.minStake, e.maxStake)
	}
	if req.MineCount < 1 || req.MineCount >= e.gridSize {
		return fmt.Errorf("%w: mine count must be between 1 and %d", ErrInvalidParameters, e.gridSize-1)
	}
	seed := strings.TrimSpace(req.ClientSeed)
	if seed == "" || len(seed) > models.MaxClientSeedLength {
		return fmt.Errorf("%w: client seed must be 1-%d characters", ErrInvalidParameters, models.MaxClientSeedLength)
	}
	return nil
}

// Reveal uncovers one tile. The mine layout is re-derived from the
// committed seeds on every call; it is a pure function so the session row
// never needs to materialize it. Hitting a mine closes the round and
// discloses the seed; a safe tile grows the multiplier.
func (e *MinesEngine) Reveal(ctx context.Context, userID int64, gameID string, tile int) (*models.MinesRevealResult, error) {
	token, err := e.store.AcquireSessionLock(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer e.store.ReleaseSessionLock(ctx, gameID, token)

	session, err := e.loadOwned(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	if tile < 0 || tile >= session.GridSize || session.HasRevealed(tile) {
		return nil, ErrInvalidCell
	}

	positions := fair.MinePositions(session.ServerSeed, session.ClientSeed, session.Nonce, session.MineCount, session.GridSize)

	if fair.IsMine(positions, tile) {
		return e.bust(ctx, session, positions, tile)
	}

	session.Revealed = append(session.Revealed, tile)
	if err := e.store.SaveMinesSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %v", err)
	}

	multiplier := fair.Multiplier(session.GridSize, session.MineCount, len(session.Revealed))

	log.Printf("[Mines Reveal] user=%d game=%s tile=%d safe multiplier=%.4f", userID, gameID, tile, multiplier)

	return &models.MinesRevealResult{
		Busted: false,
		State:  e.gameState(session, multiplier),
	}, nil
}

func (e *MinesEngine) bust(ctx context.Context, session *models.MinesSession, positions []int, tile int) (*models.MinesRevealResult, error) {
	session.Status = models.StatusBusted
	session.ClosedAt = time.Now()

	if err := e.store.SaveMinesSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist bust: %v", err)
	}

	// Stake is forfeited; settle with zero payout.
	if _, err := e.store.SettleRound(ctx, session.UserID, session.Stake, 0); err != nil {
		log.Printf("[Mines Reveal] settle after bust failed for game %s: %v", session.ID, err)
	}

	record := &models.RoundRecord{
		GameID:     session.ID,
		UserID:     session.UserID,
		Stake:      session.Stake,
		MineCount:  session.MineCount,
		Multiplier: 0,
		Payout:     0,
		Profit:     -session.Stake,
		Status:     models.StatusBusted,
		ClosedAt:   session.ClosedAt,
	}
	if err := e.store.RecordRound(ctx, record); err != nil {
		log.Printf("[Mines Reveal] history record failed for game %s: %v", session.ID, err)
	}
	if e.broadcaster != nil {
		e.broadcaster.BroadcastRoundClosed(record)
	}

	log.Printf("[Mines Reveal] user=%d game=%s tile=%d MINE", session.UserID, session.ID, tile)

	return &models.MinesRevealResult{
		Busted:        true,
		MinePositions: positions,
		ServerSeed:    session.ServerSeed,
	}, nil
}

// Cashout closes the round at the current multiplier and credits the
// payout. The terminal state is persisted before the credit; a credit
// failure rolls the session back to active and surfaces a retryable
// error, so the payout can never be taken twice.
func (e *MinesEngine) Cashout(ctx context.Context, userID int64, gameID string) (*models.MinesCashoutResult, error) {
	token, err := e.store.AcquireSessionLock(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer e.store.ReleaseSessionLock(ctx, gameID, token)

	session, err := e.loadOwned(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	if len(session.Revealed) == 0 {
		return nil, ErrNothingRevealed
	}

	multiplier := fair.Multiplier(session.GridSize, session.MineCount, len(session.Revealed))
	payout := fair.Payout(session.Stake, multiplier)

	session.Status = models.StatusCashedOut
	session.ClosedAt = time.Now()

	if err := e.store.SaveMinesSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist cashout: %v", err)
	}

	newBalance, err := e.store.SettleRound(ctx, session.UserID, session.Stake, payout)
	if err != nil {
		// Reopen the session so the player can retry the cash-out.
		session.Status = models.StatusActive
		session.ClosedAt = time.Time{}
		if saveErr := e.store.SaveMinesSession(ctx, session); saveErr != nil {
			log.Printf("[Mines Cashout] failed to reopen game %s after credit failure: %v", session.ID, saveErr)
		}
		return nil, err
	}

	e.recordTransaction(ctx, session, models.TransactionTypePayout, payout)

	record := &models.RoundRecord{
		GameID:     session.ID,
		UserID:     session.UserID,
		Stake:      session.Stake,
		MineCount:  session.MineCount,
		Multiplier: multiplier,
		Payout:     payout,
		Profit:     payout - session.Stake,
		Status:     models.StatusCashedOut,
		ClosedAt:   session.ClosedAt,
	}
	if err := e.store.RecordRound(ctx, record); err != nil {
		log.Printf("[Mines Cashout] history record failed for game %s: %v", session.ID, err)
	}
	if e.broadcaster != nil {
		e.broadcaster.BroadcastRoundClosed(record)
	}

	positions := fair.MinePositions(session.ServerSeed, session.ClientSeed, session.Nonce, session.MineCount, session.GridSize)

	log.Printf("[Mines Cashout] user=%d game=%s payout=%d multiplier=%.4f", userID, gameID, payout, multiplier)

	return &models.MinesCashoutResult{
		Payout:        payout,
		Multiplier:    multiplier,
		Profit:        payout - session.Stake,
		MinePositions: positions,
		ServerSeed:    session.ServerSeed,
		NewBalance:    newBalance,
	}, nil
}

// ActiveSession returns the player's open round for resuming, without the
// server seed or mine layout.
func (e *MinesEngine) ActiveSession(ctx context.Context, userID int64) (*models.MinesGameState, error) {
	gameID, err := e.store.GetUserActiveSessionID(ctx, userID)
	if err != nil {
		return nil, err
	}

	session, err := e.loadOwned(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	multiplier := fair.Multiplier(session.GridSize, session.MineCount, len(session.Revealed))
	return e.gameState(session, multiplier), nil
}

// ExpireStaleSessions closes rounds that have seen no activity since
// maxAge ago. Policy: the stake is refunded in full and the round is
// recorded as expired; the seed commitment is left unverifiable because
// nothing was ever at risk. Returns the number of sessions expired.
func (e *MinesEngine) ExpireStaleSessions(ctx context.Context, maxAge time.Duration) int {
	ids, err := e.store.StaleActiveSessionIDs(ctx, time.Now().Add(-maxAge))
	if err != nil {
		log.Printf("[Mines Sweep] failed to list stale sessions: %v", err)
		return 0
	}

	expired := 0
	for _, gameID := range ids {
		token, err := e.store.AcquireSessionLock(ctx, gameID)
		if err != nil {
			continue
		}

		session, err := e.store.GetMinesSession(ctx, gameID)
		if err != nil || session.Status.Terminal() {
			e.store.ReleaseSessionLock(ctx, gameID, token)
			continue
		}

		session.Status = models.StatusExpired
		session.ClosedAt = time.Now()

		if err := e.store.SaveMinesSession(ctx, session); err != nil {
			log.Printf("[Mines Sweep] failed to expire game %s: %v", gameID, err)
			e.store.ReleaseSessionLock(ctx, gameID, token)
			continue
		}

		if _, err := e.store.RefundStake(ctx, session.UserID, session.Stake); err != nil {
			log.Printf("[Mines Sweep] refund failed for game %s: %v", gameID, err)
		} else {
			e.recordTransaction(ctx, session, models.TransactionTypeRefund, session.Stake)
		}

		log.Printf("[Mines Sweep] expired game=%s user=%d stake=%d", gameID, session.UserID, session.Stake)
		expired++

		e.store.ReleaseSessionLock(ctx, gameID, token)
	}

	return expired
}

func (e *MinesEngine) loadOwned(ctx context.Context, userID int64, gameID string) (*models.MinesSession, error) {
	session, err := e.store.GetMinesSession(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Status.Terminal() {
		return nil, ErrSessionClosed
	}
	return session, nil
}

func (e *MinesEngine) gameState(session *models.MinesSession, multiplier float64) *models.MinesGameState {
	return &models.MinesGameState{
		GameID:            session.ID,
		Stake:             session.Stake,
		MineCount:         session.MineCount,
		GridSize:          session.GridSize,
		Revealed:          session.Revealed,
		CurrentMultiplier: multiplier,
		PotentialPayout:   fair.Payout(session.Stake, multiplier),
		ServerSeedHash:    session.ServerSeedHash,
		ClientSeed:        session.ClientSeed,
		Nonce:             session.Nonce,
	}
}

func (e *MinesEngine) recordTransaction(ctx context.Context, session *models.MinesSession, txType models.TransactionType, amount int64) {
	tx := &models.Transaction{
		ID:          models.GenerateTransactionID(),
		UserID:      session.UserID,
		Type:        txType,
		Amount:      amount,
		GameID:      session.ID,
		Description: fmt.Sprintf("%s on mines round %s", txType, session.ID),
		CreatedAt:   time.Now(),
	}
	if err := e.store.SaveTransaction(ctx, tx); err != nil {
		log.Printf("[Mines] transaction record failed for game %s: %v", session.ID, err)
	}
}
