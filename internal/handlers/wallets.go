package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"cryptoexchange/internal/middleware"
	"cryptoexchange/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createWalletRequest struct {
	Currency string `json:"currency" validate:"required,currency"`
}

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	wallets, err := h.wallets.GetWallets(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, wallets)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	currency := strings.ToUpper(chi.URLParam(r, "currency"))
	if err := validator.ValidateCurrency(currency); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	wallet, err := h.wallets.GetWallet(r.Context(), userID, currency)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, wallet)
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	wallet, err := h.wallets.CreateWallet(r.Context(), userID, req.Currency)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, wallet)
}

func (h *Handler) TotalBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	total, err := h.wallets.GetTotalBalanceInUSD(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, total)
}
