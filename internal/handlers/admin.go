package handlers

import (
	"net/http"

	"cryptoexchange/internal/models"
)

func (h *Handler) AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	logs, err := h.audit.List(r.Context(), page.Limit, page.offset())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	respondData(w, http.StatusOK, map[string]any{
		"audit_logs": logs,
		"pagination": page,
	})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	transactions, err := h.transactions.ListAll(r.Context(), page.Limit, page.offset())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	respondData(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"pagination":   page,
	})
}
