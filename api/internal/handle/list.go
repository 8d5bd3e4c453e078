package handle

import (
	"net/http"
	"strconv"

	"cardscan-bot/api/internal/export"
	"cardscan-bot/api/internal/store"
)

func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.chatRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handle) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.chatRows(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cards.csv"`)
	if err := export.WriteCSV(w, rows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handle) ExportVCard(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.chatRows(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cards.vcf"`)
	if err := export.WriteVCard(w, rows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// chatRows resolves ?chat_id= and ?limit= and loads the chat's saved cards.
// It writes the error response itself when something is off.
func (h *Handle) chatRows(w http.ResponseWriter, r *http.Request) ([]store.CardRow, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return nil, false
	}
	if h.cards == nil {
		http.Error(w, "storage is not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return nil, false
	}
	limit := 500
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	rows, err := h.cards.ListByChat(r.Context(), chatID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return rows, true
}
