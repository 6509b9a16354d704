package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mines-arcade-backend/internal/config"
	"mines-arcade-backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisService is the session store and the token ledger gateway. The
// engine keeps no session state in process; every request loads and
// persists through here so any number of instances can serve the same
// players.
type RedisService struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client:     client,
		sessionTTL: cfg.SessionTTL,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// ---- Ledger gateway -------------------------------------------------------

func (s *RedisService) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		wallet := &models.Wallet{
			UserID:  userID,
			Balance: models.StartingBalance,
		}
		if err := s.SaveWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}

	return &wallet, nil
}

func (s *RedisService) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.UserID)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}

	return s.client.Set(ctx, key, data, 0).Err()
}

var debitStakeScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.locked_balance = wallet.locked_balance + amount
	wallet.total_wagered = wallet.total_wagered + amount

	redis.call("SET", key, cjson.encode(wallet))

	return wallet.balance
`)

// DebitStake atomically moves the stake from the spendable balance into
// the locked bucket. This is the exactly-once debit at session start.
func (s *RedisService) DebitStake(ctx context.Context, userID, stake int64) (int64, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	balance, err := debitStakeScript.Run(ctx, s.client, []string{key}, stake).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("%w: debit: %v", ErrLedgerFailure, err)
	}
	return balance, nil
}

var settleRoundScript = redis.NewScript(`
	local key = KEYS[1]
	local stake = tonumber(ARGV[1])
	local payout = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.locked_balance = wallet.locked_balance - stake
	if wallet.locked_balance < 0 then
		wallet.locked_balance = 0
	end

	if payout > 0 then
		wallet.balance = wallet.balance + payout
		wallet.total_won = wallet.total_won + payout
	end

	redis.call("SET", key, cjson.encode(wallet))

	return wallet.balance
`)

// SettleRound releases the locked stake at round close. A payout of zero
// settles a bust (stake lost); a positive payout credits a cash-out.
// Exactly one settle happens per session.
func (s *RedisService) SettleRound(ctx context.Context, userID, stake, payout int64) (int64, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	balance, err := settleRoundScript.Run(ctx, s.client, []string{key}, stake, payout).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: settle: %v", ErrLedgerFailure, err)
	}
	return balance, nil
}

var refundStakeScript = redis.NewScript(`
	local key = KEYS[1]
	local stake = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.locked_balance = wallet.locked_balance - stake
	if wallet.locked_balance < 0 then
		wallet.locked_balance = 0
	end
	wallet.balance = wallet.balance + stake
	wallet.total_wagered = wallet.total_wagered - stake

	redis.call("SET", key, cjson.encode(wallet))

	return wallet.balance
`)

// RefundStake is the compensating action when a session could not be
// persisted after a successful debit, and the expiry policy for abandoned
// sessions. The stake goes back to the spendable balance as if the round
// never happened.
func (s *RedisService) RefundStake(ctx context.Context, userID, stake int64) (int64, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	balance, err := refundStakeScript.Run(ctx, s.client, []string{key}, stake).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: refund: %v", ErrLedgerFailure, err)
	}
	return balance, nil
}

// ---- Session store --------------------------------------------------------

// SaveMinesSession persists the session row and, while the session is
// active, keeps it in the active index (scored by last update, which the
// housekeeping sweep uses) and in the per-user active pointer.
func (s *RedisService) SaveMinesSession(ctx context.Context, session *models.MinesSession) error {
	key := fmt.Sprintf(KeyMinesSession, session.ID)

	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	if err := s.client.Set(ctx, key, data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %v", err)
	}

	if session.Status == models.StatusActive {
		if err := s.client.ZAdd(ctx, KeyActiveSessions, redis.Z{
			Score:  float64(session.UpdatedAt.Unix()),
			Member: session.ID,
		}).Err(); err != nil {
			return fmt.Errorf("failed to index active session: %v", err)
		}

		userKey := fmt.Sprintf(KeyUserActiveSession, session.UserID)
		if err := s.client.Set(ctx, userKey, session.ID, s.sessionTTL).Err(); err != nil {
			return fmt.Errorf("failed to set active session pointer: %v", err)
		}
	} else {
		s.client.ZRem(ctx, KeyActiveSessions, session.ID)
		s.client.Del(ctx, fmt.Sprintf(KeyUserActiveSession, session.UserID))
	}

	return nil
}

func (s *RedisService) GetMinesSession(ctx context.Context, gameID string) (*models.MinesSession, error) {
	key := fmt.Sprintf(KeyMinesSession, gameID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.MinesSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return &session, nil
}

// GetUserActiveSessionID returns the id of the player's open session, or
// ErrSessionNotFound if none is open.
func (s *RedisService) GetUserActiveSessionID(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf(KeyUserActiveSession, userID)

	gameID, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get active session pointer: %v", err)
	}
	return gameID, nil
}

// StaleActiveSessionIDs lists active sessions not touched since cutoff,
// for the housekeeping sweep.
func (s *RedisService) StaleActiveSessionIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, KeyActiveSessions, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %v", err)
	}
	return ids, nil
}

func (s *RedisService) DeleteMinesSession(ctx context.Context, session *models.MinesSession) error {
	s.client.ZRem(ctx, KeyActiveSessions, session.ID)
	s.client.Del(ctx, fmt.Sprintf(KeyUserActiveSession, session.UserID))
	return s.client.Del(ctx, fmt.Sprintf(KeyMinesSession, session.ID)).Err()
}

// ---- Per-session mutual exclusion -----------------------------------------

var releaseLockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// AcquireSessionLock serializes reveal/cash-out/expiry against one
// session. Callers that fail to get the lock lost the race and should
// surface ErrConcurrencyConflict rather than wait.
func (s *RedisService) AcquireSessionLock(ctx context.Context, gameID string) (string, error) {
	key := fmt.Sprintf(KeyMinesSessionLock, gameID)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, SessionLockTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire session lock: %v", err)
	}
	if !ok {
		return "", ErrConcurrencyConflict
	}
	return token, nil
}

// ReleaseSessionLock releases only if the token still matches, so an
// expired-and-reacquired lock is never deleted from under its new owner.
func (s *RedisService) ReleaseSessionLock(ctx context.Context, gameID, token string) {
	key := fmt.Sprintf(KeyMinesSessionLock, gameID)
	releaseLockScript.Run(ctx, s.client, []string{key}, token)
}

// ---- History and transactions ---------------------------------------------

func (s *RedisService) RecordRound(ctx context.Context, record *models.RoundRecord) error {
	key := fmt.Sprintf(KeyUserHistory, record.UserID)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal round record: %v", err)
	}

	if err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(record.ClosedAt.Unix()),
		Member: data,
	}).Err(); err != nil {
		return fmt.Errorf("failed to record round: %v", err)
	}

	s.client.ZRemRangeByRank(ctx, key, 0, int64(-HistoryKeepCount-1))

	return nil
}

func (s *RedisService) GetRoundHistory(ctx context.Context, userID int64, limit int64) ([]*models.RoundRecord, error) {
	if limit <= 0 || limit > HistoryKeepCount {
		limit = 50
	}

	key := fmt.Sprintf(KeyUserHistory, userID)

	entries, err := s.client.ZRevRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round history: %v", err)
	}

	records := make([]*models.RoundRecord, 0, len(entries))
	for _, entry := range entries {
		var record models.RoundRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transaction: %v", err)
	}

	s.client.ZRemRangeByRank(ctx, userTxKey, 0, int64(-TransactionKeepCount-1))

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > TransactionKeepCount {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, userID)

	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction ids: %v", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

// ---- Rate limiting --------------------------------------------------------

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int64, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}

func (s *RedisService) DeleteWallet(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, userID)).Err()
}
