package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mines-arcade-backend/internal/fair"
	"mines-arcade-backend/internal/models"
	"mines-arcade-backend/internal/services"
)

type GameHandler struct {
	engine       *services.MinesEngine
	redisService *services.RedisService
}

func NewGameHandler(engine *services.MinesEngine, redisService *services.RedisService) *GameHandler {
	return &GameHandler{
		engine:       engine,
		redisService: redisService,
	}
}

// statusFor maps the engine error taxonomy onto HTTP statuses. Unknown
// errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidParameters),
		errors.Is(err, services.ErrInvalidCell),
		errors.Is(err, services.ErrNothingRevealed),
		errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrLedgerFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *GameHandler) MinesStart(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.engine.Start(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game_state": gin.H{
			"game_id":            session.ID,
			"stake":              session.Stake,
			"mine_count":         session.MineCount,
			"grid_size":          session.GridSize,
			"revealed":           session.Revealed,
			"current_multiplier": 1.0,
			"potential_payout":   session.Stake,
			"server_seed_hash":   session.ServerSeedHash,
			"client_seed":        session.ClientSeed,
			"nonce":              session.Nonce,
		},
	})
}

func (h *GameHandler) MinesReveal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesRevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.Reveal(c.Request.Context(), userID, req.GameID, *req.Tile)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if result.Busted {
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"result":         "mine",
			"mine_positions": result.MinePositions,
			"server_seed":    result.ServerSeed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"result":     "safe",
		"game_state": result.State,
	})
}

func (h *GameHandler) MinesCashout(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.MinesCashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.Cashout(c.Request.Context(), userID, req.GameID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) MinesActive(c *gin.Context) {
	userID := c.GetInt64("user_id")

	state, err := h.engine.ActiveSession(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "game_state": nil})
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"game_state": state,
	})
}

// VerifyRound is a courtesy endpoint wrapping the fair package; the whole
// point of the scheme is that clients can run the same check themselves.
func (h *GameHandler) VerifyRound(c *gin.Context) {
	var req models.VerifyRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	valid := fair.VerifyRound(
		req.ServerSeed,
		req.ServerSeedHash,
		req.ClientSeed,
		req.Nonce,
		req.MineCount,
		h.engine.GridSize(),
		req.MinePositions,
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   valid,
		"expected_positions": fair.MinePositions(
			req.ServerSeed, req.ClientSeed, req.Nonce, req.MineCount, h.engine.GridSize()),
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"available":     wallet.Balance,
			"locked":        wallet.LockedBalance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	records, err := h.redisService.GetRoundHistory(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  records,
	})
}

func (h *GameHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	transactions, err := h.redisService.GetUserTransactions(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch transactions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
	})
}
