package services

import "time"

const (
	KeyWallet            = "wallet:%d"
	KeyMinesSession      = "mines:session:%s"
	KeyMinesSessionLock  = "mines:lock:%s"
	KeyUserActiveSession = "user:%d:mines_active"
	KeyActiveSessions    = "mines:active"
	KeyUserHistory       = "user:%d:mines_history"
	KeyTransaction       = "transaction:%s"
	KeyUserTransactions  = "user:%d:transactions"
	KeyRateLimit         = "ratelimit:%d:%s"

	TTLTransaction = 30 * 24 * time.Hour

	// SessionLockTTL caps how long a crashed handler can hold a session
	// hostage before the lock self-expires.
	SessionLockTTL = 5 * time.Second

	HistoryKeepCount     = 100
	TransactionKeepCount = 100

	RateLimitStart   = 30  // starts per minute
	RateLimitReveal  = 120 // reveals per minute
	RateLimitCashout = 60  // cashouts per minute
)
