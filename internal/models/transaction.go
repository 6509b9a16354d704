package models

import "time"

type TransactionType string

const (
	TransactionTypeStake  TransactionType = "stake"
	TransactionTypePayout TransactionType = "payout"
	TransactionTypeRefund TransactionType = "refund"
)

type Transaction struct {
	ID          string          `json:"id" redis:"id"`
	UserID      int64           `json:"user_id" redis:"user_id"`
	Type        TransactionType `json:"type" redis:"type"`
	Amount      int64           `json:"amount" redis:"amount"`
	GameID      string          `json:"game_id,omitempty" redis:"game_id"`
	Description string          `json:"description" redis:"description"`
	CreatedAt   time.Time       `json:"created_at" redis:"created_at"`
}

// RoundRecord is one closed round in the player's history feed.
type RoundRecord struct {
	GameID     string        `json:"game_id"`
	UserID     int64         `json:"user_id"`
	Stake      int64         `json:"stake"`
	MineCount  int           `json:"mine_count"`
	Multiplier float64       `json:"multiplier"`
	Payout     int64         `json:"payout"`
	Profit     int64         `json:"profit"`
	Status     SessionStatus `json:"status"`
	ClosedAt   time.Time     `json:"closed_at"`
}
