package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"cryptoexchange/internal/apperr"
	"cryptoexchange/internal/middleware"
	"cryptoexchange/internal/money"
	"cryptoexchange/internal/services"
	"cryptoexchange/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type exchangeRequest struct {
	FromCurrency string `json:"from_currency" validate:"required,currency"`
	ToCurrency   string `json:"to_currency" validate:"required,currency"`
	Amount       string `json:"amount" validate:"required"`
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(chi.URLParam(r, "from"))
	to := strings.ToUpper(chi.URLParam(r, "to"))
	if validator.ValidateCurrency(from) != nil || validator.ValidateCurrency(to) != nil {
		respondError(w, http.StatusBadRequest, "validation_error", validator.ErrInvalidCurrency.Error())
		return
	}
	rate, err := h.rates.GetRate(r.Context(), from, to)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"from_currency": from,
		"to_currency":   to,
		"rate":          rate,
		"timestamp":     h.now().UTC(),
	})
}

func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	req.FromCurrency = strings.ToUpper(strings.TrimSpace(req.FromCurrency))
	req.ToCurrency = strings.ToUpper(strings.TrimSpace(req.ToCurrency))
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		h.respondErr(w, r, apperr.Wrap(apperr.InvalidAmount, err.Error(), err))
		return
	}
	result, err := h.trading.ExecuteTrade(r.Context(), services.TradeRequest{
		UserID:       userID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Amount:       amount,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, result)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	page := parsePagination(r)
	history, err := h.trading.GetTransactionHistory(r.Context(), userID, page.Limit, page.offset())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"transactions": history.Transactions,
		"pagination":   page.withTotal(history.Total),
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	transactionID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(transactionID); err != nil {
		h.respondErr(w, r, apperr.New(apperr.TransactionNotFound, "transaction not found"))
		return
	}
	transaction, err := h.trading.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, transaction)
}
