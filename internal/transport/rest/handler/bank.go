package handler

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"riskierwas/internal/model"
	"riskierwas/internal/service"
	"strings"
)

// BankHandler serves the question editor
type BankHandler struct {
	bankSvc *service.BankService
}

// NewBankHandler creates a new bank handler
func NewBankHandler(bankSvc *service.BankService) *BankHandler {
	return &BankHandler{bankSvc: bankSvc}
}

// BankResponse is the full editor view
type BankResponse struct {
	service.BankInfo
	Questions []*model.Question `json:"questions"`
}

// FileRequest names a question file below the data directory. An empty path
// means the default bank.
type FileRequest struct {
	Path string `json:"path"`
}

// SelectRandomRequest is the body of POST /v1/bank/select-random
type SelectRandomRequest struct {
	Count int `json:"count"`
}

// List handles GET /v1/bank/questions
func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	h.writeBank(w, http.StatusOK)
}

// AddQuestion handles POST /v1/bank/questions
func (h *BankHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	idx, q := h.bankSvc.AddQuestion()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"index":    idx,
		"question": q,
	})
}

// UpdateQuestion handles PUT /v1/bank/questions/{qi}
func (h *BankHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	qi, ok := intVar(r, "qi")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question index")
		return
	}

	var patch service.QuestionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.bankSvc.UpdateQuestion(qi, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// RemoveQuestion handles DELETE /v1/bank/questions/{qi}
func (h *BankHandler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	qi, ok := intVar(r, "qi")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	if err := h.bankSvc.RemoveQuestion(qi); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAnswer handles POST /v1/bank/questions/{qi}/answers
func (h *BankHandler) AddAnswer(w http.ResponseWriter, r *http.Request) {
	qi, ok := intVar(r, "qi")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question index")
		return
	}

	ai, err := h.bankSvc.AddAnswer(qi)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": ai})
}

// UpdateAnswer handles PUT /v1/bank/questions/{qi}/answers/{ai}
func (h *BankHandler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	qi, ok1 := intVar(r, "qi")
	ai, ok2 := intVar(r, "ai")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	var patch service.AnswerPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.bankSvc.UpdateAnswer(qi, ai, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RemoveAnswer handles DELETE /v1/bank/questions/{qi}/answers/{ai}
func (h *BankHandler) RemoveAnswer(w http.ResponseWriter, r *http.Request) {
	qi, ok1 := intVar(r, "qi")
	ai, ok2 := intVar(r, "ai")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.bankSvc.RemoveAnswer(qi, ai); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRandom handles POST /v1/bank/select-random
func (h *BankHandler) SelectRandom(w http.ResponseWriter, r *http.Request) {
	var req SelectRandomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Count < 0 {
		writeError(w, http.StatusBadRequest, "count must not be negative")
		return
	}

	h.bankSvc.SelectRandom(req.Count)
	h.writeBank(w, http.StatusOK)
}

// Load handles POST /v1/bank/load
func (h *BankHandler) Load(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFileRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.bankSvc.Load(req.Path); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPath):
			writeServiceError(w, err)
		case errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, "question file not found")
		default:
			// Unparseable file, the bank is unchanged
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	h.writeBank(w, http.StatusOK)
}

// Save handles POST /v1/bank/save
func (h *BankHandler) Save(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFileRequest(w, r)
	if !ok {
		return
	}

	if err := h.bankSvc.Save(req.Path); err != nil {
		writeServiceError(w, err)
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		path = h.bankSvc.DefaultPath()
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (h *BankHandler) writeBank(w http.ResponseWriter, status int) {
	writeJSON(w, status, BankResponse{
		BankInfo:  h.bankSvc.Info(),
		Questions: h.bankSvc.Questions(),
	})
}

func decodeFileRequest(w http.ResponseWriter, r *http.Request) (FileRequest, bool) {
	var req FileRequest
	// An empty body selects the default bank
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}
