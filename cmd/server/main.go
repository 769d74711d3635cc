package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"riskierwas/internal/app"
	"riskierwas/internal/config"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("started")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	log.Printf("Game config:")
	log.Printf("  Points:  base %d, step %d", cfg.Game.BasePoints, cfg.Game.PointStep)
	log.Printf("  Decay:   every %s (progress %s)", cfg.Game.DecayInterval, cfg.Game.ProgressInterval)
	log.Printf("  Teams:   %d..%d", cfg.Game.MinTeams, cfg.Game.MaxTeams)
	log.Printf("  Forfeit: %s", cfg.Game.ForfeitRule)

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Printf("Host auth: username=%s", cfg.Auth.HostUsername)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  GET/POST /v1/bank/questions")
		log.Println("  GET/POST /v1/library")
		log.Println("  POST /v1/games")
		log.Println("  GET  /v1/games/{code}")
		log.Println("  GET  /v1/games/{code}/qr")
		log.Println("  POST /v1/games/{code}/{advance,reveal/{i},pass,end}")
		log.Println("  WS   /v1/ws/games/{code}/host")
		log.Println("  WS   /v1/ws/games/{code}/view")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
