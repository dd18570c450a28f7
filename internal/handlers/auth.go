package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cryptoexchange/internal/auth"
	"cryptoexchange/internal/db"
	"cryptoexchange/internal/middleware"
	"cryptoexchange/internal/models"
	"cryptoexchange/internal/store"
	"cryptoexchange/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tomasen/realip"
	"go.uber.org/zap"
)

const tokenCookie = "token"

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	taken, err := h.users.EmailTaken(r.Context(), req.Email, "")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "email_taken", "user with this email already exists")
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	userID := uuid.NewString()
	token, err := auth.GenerateToken(h.cfg.JWTSecret, userID, h.cfg.TokenTTL)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		role := models.RoleUser
		hasAdmin, err := h.users.HasAnyAdmin(r.Context(), tx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			role = models.RoleAdmin
		}
		if err := h.users.Create(r.Context(), tx, store.UserInput{
			ID:           userID,
			Email:        req.Email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         role,
		}); err != nil {
			return err
		}
		if err := h.wallets.SeedDefaultWallets(r.Context(), tx, userID); err != nil {
			return err
		}
		if err := h.sessions.Create(r.Context(), tx, h.sessionInput(r, userID, token)); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"email": req.Email,
			"role":  role,
			"ip":    realip.FromRequest(r),
		})
		return h.audit.Log(r.Context(), tx, userID, "user_registered", "user", userID, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "email_taken", "user with this email already exists")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", userID), zap.String("role", user.Role))
	h.setTokenCookie(w, token)
	respondData(w, http.StatusCreated, authResponse{User: user, Token: token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "account_disabled", "account is deactivated")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.sessions.Create(r.Context(), tx, h.sessionInput(r, user.ID, token)); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"ip":         realip.FromRequest(r),
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, user.ID, "user_login", "user", user.ID, string(data))
	}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.setTokenCookie(w, token)
	respondData(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	if token, ok := middleware.TokenFromContext(r.Context()); ok {
		if _, err := h.sessions.Expire(r.Context(), userID, token); err != nil {
			h.respondErr(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	respondData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
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

func (h *Handler) sessionInput(r *http.Request, userID, token string) store.SessionInput {
	return store.SessionInput{
		UserID:    userID,
		Token:     token,
		IPAddress: realip.FromRequest(r),
		UserAgent: r.UserAgent(),
		ExpiresAt: h.now().Add(h.cfg.TokenTTL),
	}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  h.now().Add(h.cfg.TokenTTL),
		MaxAge:   int(h.cfg.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}
