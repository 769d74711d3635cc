package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"riskierwas/internal/cache"
	"riskierwas/internal/config"
	"riskierwas/internal/engine"
	"riskierwas/internal/repository"
	"riskierwas/internal/service"
	"riskierwas/internal/transport/rest"
	"riskierwas/internal/transport/ws"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App wires storage, services and transport for the server
type App struct {
	Config *config.Config

	Mongo  *mongo.Client // nil when MongoDB is unreachable and not required
	Redis  *redis.Client
	SQLite *sql.DB // nil unless results go to SQLite

	Hub  *ws.Hub
	Auth *service.AuthService
	Bank *service.BankService
	Game *service.GameService

	Router http.Handler
}

// New connects to the backing stores and builds the services
func New(ctx context.Context, cfg *config.Config, engineOpts ...engine.Option) (*App, error) {
	a := &App{Config: cfg}

	// MongoDB is only mandatory when it stores results; otherwise the
	// question library is switched off without it.
	mongoClient, err := connectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		if cfg.Results.Store == config.ResultStoreMongo {
			return nil, err
		}
		log.Printf("Warning: %v, question library disabled", err)
	} else {
		a.Mongo = mongoClient
		log.Println("Connected to MongoDB")
	}

	a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	if _, err := a.Redis.Ping(ctx).Result(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Println("Connected to Redis")

	var (
		sets    repository.QuestionSetRepo
		results repository.ResultRepo
	)
	if a.Mongo != nil {
		db := a.Mongo.Database(cfg.Mongo.Database)
		sets = repository.NewQuestionSetRepo(db)
		results = repository.NewResultRepo(db)
	}
	if cfg.Results.Store == config.ResultStoreSQLite {
		a.SQLite, err = repository.OpenSQLite(cfg.Results.SQLitePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		if results, err = repository.NewSQLiteResultRepo(a.SQLite); err != nil {
			a.Close()
			return nil, err
		}
		log.Printf("Storing results in %s", cfg.Results.SQLitePath)
	}

	// Initialize WebSocket hub
	a.Hub = ws.NewHub()

	// Initialize services
	a.Auth = service.NewAuthService(cfg.Auth.HostUsername, cfg.Auth.HostPassword, cfg.Auth.JWTSecret)
	a.Bank = service.NewBankService(repository.NewQuestionFile(), sets, cfg.DataDir, cfg.Game.MaxAnswers)
	a.Bank.LoadDefault(repository.ResolveDataPath(cfg.DefaultBankPath()))
	a.Game = service.NewGameService(
		a.Bank,
		cfg.Game,
		cache.NewGameCache(a.Redis),
		cache.NewLeaderboardCache(a.Redis),
		results,
		cfg.PublicBaseURL,
		engineOpts...,
	)

	// Inject broadcaster (hub implements service.Broadcaster)
	a.Game.SetBroadcaster(a.Hub)

	a.Router = rest.NewRouter(&rest.Container{
		AuthService: a.Auth,
		BankService: a.Bank,
		GameService: a.Game,
		WSHub:       a.Hub,
		CORSOrigins: cfg.CORS.AllowedOrigins,
	})
	return a, nil
}

// Close stops every game and releases connections
func (a *App) Close() {
	if a.Game != nil {
		a.Game.Close()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.SQLite != nil {
		a.SQLite.Close()
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Mongo.Disconnect(ctx)
	}
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}
