package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/util"
)

// Engine extracts card fields through the Gemini SDK.
type Engine struct {
	APIKey string
	Model  string
	// SendImage controls whether the raw card image is attached to the
	// request in addition to the OCR text.
	SendImage bool
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string      { return "gemini" }
func (e *Engine) GetModel() string  { return e.Model }
func (e *Engine) SetModel(m string) { e.Model = m }
func (e *Engine) IsAvailable() bool { return e.APIKey != "" }

func (e *Engine) Extract(ctx context.Context, ocrText string, image []byte) (card.Fields, error) {
	if !e.IsAvailable() {
		return card.Fields{}, extract.NewError(extract.KindServiceUnavailable, e.Name(), fmt.Errorf("GEMINI_API_KEY is empty"))
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return card.Fields{}, mapErr(e.Name(), err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extract.SystemPrompt)},
	}

	parts := []genai.Part{
		genai.Text("OCR text of the card:\n" + ocrText + "\n\nAnswer with the JSON object only."),
	}
	if e.SendImage && len(image) > 0 {
		parts = append(parts, &genai.Blob{MIMEType: util.SniffMimeHTTP(image), Data: image})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return card.Fields{}, mapErr(e.Name(), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return card.Fields{}, extract.NewError(extract.KindInvalidResponse, e.Name(), fmt.Errorf("empty response"))
	}
	txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return card.Fields{}, extract.NewError(extract.KindInvalidResponse, e.Name(), fmt.Errorf("non-text part"))
	}
	return extract.ParseContent(e.Name(), string(txt))
}

// mapErr classifies SDK errors by the underlying HTTP status when present.
func mapErr(provider string, err error) *extract.Error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return extract.FromStatus(provider, ge.Code, ge.Message)
	}
	return extract.FromTransport(provider, err)
}

func ptrFloat32(v float32) *float32 { return &v }
