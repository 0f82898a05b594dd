package mastery

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) GetProfileSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.ProfileSummary(r.Context(), userID, time.Now())
	if errors.Is(err, ErrInvalidLadder) {
		log.Printf("mastery: ladder misconfigured: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Rank ladder misconfigured"})
		return
	}
	if err != nil {
		log.Printf("mastery: profile summary for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load profile summary"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCategoryStandings(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.CategoryStandings(r.Context(), userID, time.Now())
	if err != nil {
		log.Printf("mastery: category standings for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load category standings"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
