package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mines-arcade-backend/internal/config"
	"mines-arcade-backend/internal/handlers"
	"mines-arcade-backend/internal/middleware"
	"mines-arcade-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	engine := services.NewMinesEngine(cfg, redisService)

	wsHandler := handlers.NewWebSocketHandler(redisService)
	engine.SetBroadcaster(wsHandler)

	// Housekeeping: abandoned rounds are refunded and closed after the
	// configured inactivity window.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			if n := engine.ExpireStaleSessions(context.Background(), cfg.StaleSessionAge); n > 0 {
				log.Printf("Expired %d stale mines sessions", n)
			}
		}
	}()

	authHandler := handlers.NewAuthHandler(jwtService)
	gameHandler := handlers.NewGameHandler(engine, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if cfg.Env != "production" {
		router.POST("/auth/token", authHandler.IssueDevToken)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/balance", gameHandler.GetBalance)
			games.GET("/history", gameHandler.GetHistory)
			games.GET("/transactions", gameHandler.GetTransactions)
			games.POST("/verify", gameHandler.VerifyRound)

			mines := games.Group("/mines")
			{
				mines.POST("/start", gameHandler.MinesStart)
				mines.POST("/reveal", gameHandler.MinesReveal)
				mines.POST("/cashout", gameHandler.MinesCashout)
				mines.GET("/active", gameHandler.MinesActive)
			}
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
