package handle

import (
	"encoding/json"
	"net/http"

	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/store"
)

type Handle struct {
	orch  *pipeline.Orchestrator
	engs  *extract.Engines
	cards *store.CardRepo // optional
}

func New(orch *pipeline.Orchestrator, engs *extract.Engines, cards *store.CardRepo) *Handle {
	return &Handle{
		orch:  orch,
		engs:  engs,
		cards: cards,
	}
}

// Routes registers every endpoint on the mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/cards/scan", h.Scan)
	mux.HandleFunc("/v1/cards", h.List)
	mux.HandleFunc("/v1/cards/export.csv", h.ExportCSV)
	mux.HandleFunc("/v1/cards/export.vcf", h.ExportVCard)
	mux.HandleFunc("/v1/enhance/available", h.EnhanceAvailable)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
