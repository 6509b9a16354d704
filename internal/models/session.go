package models

import "time"

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusBusted    SessionStatus = "busted"
	StatusCashedOut SessionStatus = "cashed_out"
	StatusExpired   SessionStatus = "expired"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s != StatusActive
}

// MinesSession is one wagering round. The server seed is persisted with
// the session but only ever serialized back to the player once the round
// is closed; while active, only its hash leaves the server.
type MinesSession struct {
	ID     string `json:"id" redis:"id"`
	UserID int64  `json:"user_id" redis:"user_id"`

	Stake     int64 `json:"stake" redis:"stake"`
	MineCount int   `json:"mine_count" redis:"mine_count"`
	GridSize  int   `json:"grid_size" redis:"grid_size"`

	ServerSeed     string `json:"server_seed" redis:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	Nonce          int64  `json:"nonce" redis:"nonce"`

	Revealed []int         `json:"revealed" redis:"revealed"`
	Status   SessionStatus `json:"status" redis:"status"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
	ClosedAt  time.Time `json:"closed_at" redis:"closed_at"`
}

// HasRevealed reports whether the player already revealed cell.
func (s *MinesSession) HasRevealed(cell int) bool {
	for _, r := range s.Revealed {
		if r == cell {
			return true
		}
	}
	return false
}

// SafeTiles is the number of cells that are not mines.
func (s *MinesSession) SafeTiles() int {
	return s.GridSize - s.MineCount
}
