package models

// MaxClientSeedLength bounds the player-supplied seed. Non-empty is
// enforced by binding; emptiness after trimming and the upper bound are
// re-checked by the engine before any state mutation.
const MaxClientSeedLength = 64

type MinesStartRequest struct {
	Stake      int64  `json:"stake" binding:"required,min=1"`
	MineCount  int    `json:"mine_count" binding:"required,min=1,max=24"`
	ClientSeed string `json:"client_seed" binding:"required,min=1,max=64"`
}

type MinesRevealRequest struct {
	GameID string `json:"game_id" binding:"required"`
	// Pointer so tile 0 survives the required check.
	Tile *int `json:"tile" binding:"required"`
}

type MinesCashoutRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

type VerifyRoundRequest struct {
	ServerSeed     string `json:"server_seed" binding:"required"`
	ServerSeedHash string `json:"server_seed_hash" binding:"required"`
	ClientSeed     string `json:"client_seed" binding:"required"`
	Nonce          int64  `json:"nonce"`
	MineCount      int    `json:"mine_count" binding:"required,min=1,max=24"`
	MinePositions  []int  `json:"mine_positions" binding:"required"`
}

// MinesGameState is the player-visible view of an open session. It never
// carries the server seed or the mine positions.
type MinesGameState struct {
	GameID            string  `json:"game_id"`
	Stake             int64   `json:"stake"`
	MineCount         int     `json:"mine_count"`
	GridSize          int     `json:"grid_size"`
	Revealed          []int   `json:"revealed"`
	CurrentMultiplier float64 `json:"current_multiplier"`
	PotentialPayout   int64   `json:"potential_payout"`
	ServerSeedHash    string  `json:"server_seed_hash"`
	ClientSeed        string  `json:"client_seed"`
	Nonce             int64   `json:"nonce"`
}

// MinesRevealResult is returned from a reveal. On a safe reveal State is
// populated; on a bust the mine positions and server seed are disclosed
// for verification.
type MinesRevealResult struct {
	Busted        bool            `json:"busted"`
	State         *MinesGameState `json:"game_state,omitempty"`
	MinePositions []int           `json:"mine_positions,omitempty"`
	ServerSeed    string          `json:"server_seed,omitempty"`
}

// MinesCashoutResult closes the fairness loop: along with the payout it
// discloses everything a third party needs to re-derive the layout.
type MinesCashoutResult struct {
	Payout        int64   `json:"payout"`
	Multiplier    float64 `json:"multiplier"`
	Profit        int64   `json:"profit"`
	MinePositions []int   `json:"mine_positions"`
	ServerSeed    string  `json:"server_seed"`
	NewBalance    int64   `json:"new_balance"`
}
