package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/util"
)

// Engine extracts card fields through the OpenAI chat completions API.
type Engine struct {
	APIKey  string
	Model   string
	BaseURL string // overridable in tests
	// SendImage controls whether the raw card image is attached to the
	// request in addition to the OCR text.
	SendImage bool
	httpc     *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: "https://api.openai.com",
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string      { return "gpt" }
func (e *Engine) GetModel() string  { return e.Model }
func (e *Engine) SetModel(m string) { e.Model = m }
func (e *Engine) IsAvailable() bool { return e.APIKey != "" }

func (e *Engine) Extract(ctx context.Context, ocrText string, image []byte) (card.Fields, error) {
	if !e.IsAvailable() {
		return card.Fields{}, extract.NewError(extract.KindServiceUnavailable, e.Name(), fmt.Errorf("OPENAI_API_KEY is empty"))
	}

	user := []any{
		map[string]any{"type": "text", "text": "OCR text of the card:\n" + ocrText + "\n\nAnswer with the JSON object only."},
	}
	if e.SendImage && len(image) > 0 {
		mime := util.SniffMimeHTTP(image)
		dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(image))
		user = append(user, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL, "detail": "high"},
		})
	}

	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "system", "content": extract.SystemPrompt},
			map[string]any{"role": "user", "content": user},
		},
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(e.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return card.Fields{}, extract.FromTransport(e.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return card.Fields{}, extract.FromStatus(e.Name(), resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return card.Fields{}, extract.NewError(extract.KindInvalidResponse, e.Name(), err)
	}
	if len(raw.Choices) == 0 {
		return card.Fields{}, extract.NewError(extract.KindInvalidResponse, e.Name(), fmt.Errorf("empty response"))
	}
	return extract.ParseContent(e.Name(), raw.Choices[0].Message.Content)
}
