package extract

import (
	"context"
	"sync"

	"cardscan-bot/api/internal/card"
)

// Client extracts structured card fields from OCR text (optionally with the
// raw image) via a remote LLM. Extract returns a record with Source=ai or a
// typed *Error. IsAvailable is a cheap credential check without I/O, meant to
// be consulted before Extract.
type Client interface {
	Name() string
	GetModel() string
	IsAvailable() bool
	Extract(ctx context.Context, ocrText string, image []byte) (card.Fields, error)
}

// Manager keeps a per-chat client selection with a default fallback.
type Manager struct {
	def Client
	m   sync.Map // chatID -> Client
}

func NewManager(defaultClient Client) *Manager {
	return &Manager{def: defaultClient}
}

func (m *Manager) Get(chatID int64) Client {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Client)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, c Client) {
	m.m.Store(chatID, c)
}
