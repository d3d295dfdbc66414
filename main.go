package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Varga-Levente/catch-the-impostor/config"
	"github.com/Varga-Levente/catch-the-impostor/game"
	"github.com/Varga-Levente/catch-the-impostor/words"
	"github.com/Varga-Levente/catch-the-impostor/ws"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	// Registered after the CORS middleware; gin snapshots the handler
	// chain at registration time.
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	return r
}

func main() {
	// logger setup
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	godotenv.Load()
	cfg := config.Load()
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	provider := words.NewProvider(cfg.DataDir)
	if _, _, err := provider.Reload(); err != nil {
		log.Fatal().Err(err).Msg("failed to load words and settings")
	}

	hub := ws.NewHub()
	registry := game.NewRegistry(
		provider,
		hub,
		hub,
		game.NewIDGenerator(),
		game.NewRand(),
		game.NewTickerSource(),
		cfg.PrivateWordDeals,
	)
	hub.OnDisconnect(registry.HandleDisconnect)
	registry.StartSweep(context.Background())

	r := CreateServer(cfg.AllowedOrigins)
	game.NewHandler(registry, provider).RegisterRoutes(r)
	r.GET("/ws", hub.ServeWS(registry))

	log.Info().Str("addr", cfg.Addr).Int("words", len(provider.Words())).Msg("server listening")
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
