package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"cardscan-bot/api/internal/card"
)

type stubClient struct{ name, model string }

func (c *stubClient) Name() string      { return c.name }
func (c *stubClient) GetModel() string  { return c.model }
func (c *stubClient) IsAvailable() bool { return true }
func (c *stubClient) Extract(ctx context.Context, ocrText string, image []byte) (card.Fields, error) {
	return card.Fields{}, nil
}

func TestEngineKey(t *testing.T) {
	name, model := engineKey(&stubClient{name: "gemini", model: "gemini-2.5-flash"})
	assert.Equal(t, "gemini", name)
	assert.Equal(t, "gemini-2.5-flash", model)

	// without an engine, scans are still keyed for persistence
	name, model = engineKey(nil)
	assert.Equal(t, "local", name)
	assert.Empty(t, model)
}
