package models

// StartingBalance is granted when a wallet is first created.
const StartingBalance int64 = 10000

// Wallet is the token balance ledger row for one player. Balances are
// integer tokens; a stake moves from Balance into LockedBalance while a
// round is open and is settled back on close.
type Wallet struct {
	UserID        int64 `json:"user_id" redis:"user_id"`
	Balance       int64 `json:"balance" redis:"balance"`
	LockedBalance int64 `json:"locked_balance" redis:"locked_balance"`
	TotalWagered  int64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon      int64 `json:"total_won" redis:"total_won"`
}
