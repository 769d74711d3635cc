package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"riskierwas/internal/model"
	"riskierwas/internal/service"
	"strconv"

	"github.com/gorilla/mux"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrAnswerNotFound),
		errors.Is(err, service.ErrSetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotGameHost):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrTooManyAnswers),
		errors.Is(err, service.ErrNoQuestions),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrUnknownCmd):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrLibraryDisabled):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}

// intVar reads a numeric path variable
func intVar(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	return n, err == nil
}
