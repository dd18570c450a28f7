package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cryptoexchange/internal/middleware"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/validator"
)

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.Me(w, r)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	req.FirstName = trimmed(req.FirstName)
	req.LastName = trimmed(req.LastName)
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Email != nil {
		taken, err := h.users.EmailTaken(r.Context(), *req.Email, userID)
		if err != nil {
			h.respondErr(w, r, err)
			return
		}
		if taken {
			respondError(w, http.StatusConflict, "email_taken", "email already in use")
			return
		}
	}
	user, err := h.users.UpdateProfile(r.Context(), userID, store.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, user)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
