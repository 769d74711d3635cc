package rest

import (
	"net/http"
	"riskierwas/internal/engine"
	"riskierwas/internal/service"
	"riskierwas/internal/transport/rest/handler"
	"riskierwas/internal/transport/rest/middleware"
	"riskierwas/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	BankService *service.BankService
	GameService *service.GameService
	WSHub       *ws.Hub
	CORSOrigins string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	bankHandler := handler.NewBankHandler(c.BankService)
	libraryHandler := handler.NewLibraryHandler(c.BankService)
	gameHandler := handler.NewGameHandler(c.GameService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.GameService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/games/{code}", gameHandler.View).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games/{code}/qr", gameHandler.QR).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games/{code}/leaderboard", gameHandler.Leaderboard).Methods("GET", "OPTIONS")

	// WebSocket routes (host token in query param)
	v1.HandleFunc("/ws/games/{code}/host", wsHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/games/{code}/view", wsHandler.ViewerWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	// Question editor
	hostRoutes.HandleFunc("/bank/questions", bankHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions", bankHandler.AddQuestion).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions/{qi:[0-9]+}", bankHandler.UpdateQuestion).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions/{qi:[0-9]+}", bankHandler.RemoveQuestion).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions/{qi:[0-9]+}/answers", bankHandler.AddAnswer).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions/{qi:[0-9]+}/answers/{ai:[0-9]+}", bankHandler.UpdateAnswer).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/bank/questions/{qi:[0-9]+}/answers/{ai:[0-9]+}", bankHandler.RemoveAnswer).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/bank/select-random", bankHandler.SelectRandom).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/bank/load", bankHandler.Load).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/bank/save", bankHandler.Save).Methods("POST", "OPTIONS")

	// Question library (MongoDB)
	hostRoutes.HandleFunc("/library", libraryHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/library", libraryHandler.Save).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/library/{id}/load", libraryHandler.Load).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/library/{id}", libraryHandler.Delete).Methods("DELETE", "OPTIONS")

	// Games
	hostRoutes.HandleFunc("/games", gameHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/host", gameHandler.Host).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/advance", gameHandler.Command(engine.CmdAdvance)).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/reveal/{index:[0-9]+}", gameHandler.Command(engine.CmdReveal)).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/pass", gameHandler.Command(engine.CmdPass)).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/decay/pause", gameHandler.Command(engine.CmdPauseDecay)).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/decay/resume", gameHandler.Command(engine.CmdResumeDecay)).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/end", gameHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/results", gameHandler.Results).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/results/{code}", gameHandler.Result).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
