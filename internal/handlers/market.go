package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"cryptoexchange/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencies.ListActive(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if currencies == nil {
		currencies = []models.Currency{}
	}
	respondData(w, http.StatusOK, currencies)
}

func (h *Handler) ListExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.ListRates(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if rates == nil {
		rates = []models.ExchangeRate{}
	}
	respondData(w, http.StatusOK, rates)
}

func (h *Handler) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(chi.URLParam(r, "from"))
	to := strings.ToUpper(chi.URLParam(r, "to"))
	rate, err := h.rates.StoredRate(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "rate_not_found", "exchange rate not found")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, rate)
}
