package handler

import (
	"encoding/json"
	"net/http"
	"riskierwas/internal/engine"
	"riskierwas/internal/model"
	"riskierwas/internal/service"
	"riskierwas/internal/transport/rest/middleware"
	"strconv"

	"github.com/gorilla/mux"
)

// GameHandler handles game endpoints
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// CreateGameResponse is returned by POST /v1/games
type CreateGameResponse struct {
	Game     *model.Game     `json:"game"`
	JoinURL  string          `json:"joinUrl"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// CommandResponse is returned by every game command
type CommandResponse struct {
	Applied  bool            `json:"applied"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// Create handles POST /v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var settings model.GameSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, snap, err := h.gameSvc.CreateGame(r.Context(), hostID, settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateGameResponse{
		Game:     game,
		JoinURL:  h.gameSvc.JoinURL(game.Code),
		Snapshot: snap,
	})
}

// View handles GET /v1/games/{code}
func (h *GameHandler) View(w http.ResponseWriter, r *http.Request) {
	snap, err := h.gameSvc.ViewerSnapshot(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Host handles GET /v1/games/{code}/host
func (h *GameHandler) Host(w http.ResponseWriter, r *http.Request) {
	snap, err := h.gameSvc.HostSnapshot(mux.Vars(r)["code"], middleware.GetHostID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// QR handles GET /v1/games/{code}/qr
func (h *GameHandler) QR(w http.ResponseWriter, r *http.Request) {
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	png, err := h.gameSvc.QRCode(r.Context(), mux.Vars(r)["code"], size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Leaderboard handles GET /v1/games/{code}/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gameSvc.Leaderboard(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Command returns a handler running one engine command
func (h *GameHandler) Command(cmd engine.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index := 0
		if cmd == engine.CmdReveal {
			var ok bool
			if index, ok = intVar(r, "index"); !ok {
				writeError(w, http.StatusBadRequest, "invalid answer index")
				return
			}
		}

		snap, applied, err := h.gameSvc.Execute(mux.Vars(r)["code"], middleware.GetHostID(r.Context()), cmd, index)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CommandResponse{Applied: applied, Snapshot: snap})
	}
}

// End handles POST /v1/games/{code}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	result, err := h.gameSvc.EndGame(r.Context(), mux.Vars(r)["code"], middleware.GetHostID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Results handles GET /v1/results
func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.gameSvc.Results(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Result handles GET /v1/results/{code}
func (h *GameHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.gameSvc.Result(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
