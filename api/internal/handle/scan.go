package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/util"
)

type ScanRequest struct {
	ImageB64 string `json:"image_base64"`
	// LLMName overrides the default extraction engine: "gemini"|"gpt"|"deepseek".
	LLMName string `json:"llm_name,omitempty"`
	// NoEnhance skips the remote stage even when it is available.
	NoEnhance bool `json:"no_enhance,omitempty"`
	// ChatID attributes the saved card; 0 keeps the scan unsaved.
	ChatID int64 `json:"chat_id,omitempty"`
}

type ScanResponse struct {
	Status string       `json:"status"` // "success" | "ocr_failed" | "processing_failed"
	Fields *card.Fields `json:"fields,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (h *Handle) Scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	img, _, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_base64", http.StatusBadRequest)
		return
	}

	deadline := 180 * time.Second
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), deadline)
	defer cancel()

	var extractor extract.Client
	if req.LLMName != "" {
		extractor, err = h.engs.Get(req.LLMName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	out := h.orch.Process(ctx, img, pipeline.ProcessOptions{
		NoEnhance: req.NoEnhance,
		Extractor: extractor,
	})

	switch out.Status {
	case pipeline.StatusSuccess:
		if h.cards != nil && req.ChatID != 0 {
			name, model := engineIdentity(extractor, h.orch)
			_ = h.cards.Upsert(ctx, req.ChatID, util.SHA256Hex(img), name, model, "", out.Fields)
		}
		writeJSON(w, http.StatusOK, ScanResponse{Status: string(out.Status), Fields: &out.Fields})
	case pipeline.StatusOcrFailed:
		writeJSON(w, http.StatusOK, ScanResponse{Status: string(out.Status)})
	default:
		writeJSON(w, http.StatusBadGateway, ScanResponse{Status: string(out.Status), Error: out.Err.Error()})
	}
}

func (h *Handle) EnhanceAvailable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"available": h.orch.IsEnhancementAvailable()})
}

// engineIdentity names the engine a scan was stored under. Scans without a
// remote stage are keyed as local-only.
func engineIdentity(extractor extract.Client, orch *pipeline.Orchestrator) (string, string) {
	if extractor != nil {
		return extractor.Name(), extractor.GetModel()
	}
	if orch.IsEnhancementAvailable() {
		return "default", ""
	}
	return "local", ""
}
