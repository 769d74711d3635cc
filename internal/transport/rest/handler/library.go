package handler

import (
	"encoding/json"
	"net/http"
	"riskierwas/internal/service"
	"riskierwas/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// LibraryHandler handles the stored question sets
type LibraryHandler struct {
	bankSvc *service.BankService
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(bankSvc *service.BankService) *LibraryHandler {
	return &LibraryHandler{bankSvc: bankSvc}
}

// SaveSetRequest is the body of POST /v1/library
type SaveSetRequest struct {
	Name string `json:"name"`
}

// List handles GET /v1/library
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	sets, err := h.bankSvc.ListLibrary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

// Save handles POST /v1/library
func (h *LibraryHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	set, err := h.bankSvc.SaveToLibrary(r.Context(), middleware.GetHostID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":            set.ID,
		"name":          set.Name,
		"questionCount": len(set.Questions),
	})
}

// Load handles POST /v1/library/{id}/load
func (h *LibraryHandler) Load(w http.ResponseWriter, r *http.Request) {
	n, err := h.bankSvc.LoadFromLibrary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Delete handles DELETE /v1/library/{id}
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.bankSvc.DeleteFromLibrary(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
