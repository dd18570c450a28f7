package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cryptoexchange/internal/apperr"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

// respondErr maps taxonomy errors to their status and hides everything else
// behind a 500.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Kind.Internal() {
			h.logger.Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("code", appErr.Kind.Code()),
				zap.Error(err),
			)
		}
		respondError(w, appErr.Kind.HTTPStatus(), appErr.Kind.Code(), appErr.Message)
		return
	}
	h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total,omitempty"`
	Pages int `json:"pages,omitempty"`
}

func (p pagination) offset() int {
	return (p.Page - 1) * p.Limit
}

func (p pagination) withTotal(total int) pagination {
	p.Total = total
	p.Pages = (total + p.Limit - 1) / p.Limit
	return p
}

func parsePagination(r *http.Request) pagination {
	p := pagination{Page: 1, Limit: defaultPageSize}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		p.Limit = min(limit, maxPageSize)
	}
	return p
}
