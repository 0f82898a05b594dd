package assessment

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sbs-helper/certification-backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) StartTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	// An empty body starts a default all-category test.
	var req models.StartTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	resp, err := h.service.BuildTest(r.Context(), rng, userID, req.QuestionCount, req.CategoryID)
	if errors.Is(err, ErrEmptyPool) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No questions available for the requested scope"})
		return
	}
	if err != nil {
		log.Printf("assessment: start test for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start test"})
		return
	}

	// The assembler returns questions grouped by ascending difficulty;
	// interleaving is purely presentational.
	if req.Interleave {
		rng.Shuffle(len(resp.Questions), func(i, j int) {
			resp.Questions[i], resp.Questions[j] = resp.Questions[j], resp.Questions[i]
		})
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.SubmitAnswer(r.Context(), userID, mux.Vars(r)["token"], req.QuestionID, req.Answer)
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CompleteTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.CompleteAttempt(r.Context(), userID, mux.Vars(r)["token"])
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.CancelAttempt(r.Context(), userID, mux.Vars(r)["token"]); err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.AttemptCancelled)})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	resp, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		log.Printf("assessment: history for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load history"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, userID int64, err error) {
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Attempt not found"})
	case errors.Is(err, ErrAttemptFinished):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Attempt already finished"})
	case errors.Is(err, ErrQuestionNotInAttempt):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Question is not part of this attempt"})
	case errors.Is(err, ErrInvalidAnswer):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Answer must be one of A, B, C, D"})
	default:
		log.Printf("assessment: user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
