package telegram

import (
	"sync"
	"time"

	"cardscan-bot/api/internal/card"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
	cacheAge  = 30 * 24 * time.Hour
)

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

// fixPending tracks a card awaiting a manual correction from the user.
type fixPending struct {
	ImageHash string
	Fields    card.Fields
}

var (
	batches     sync.Map // key -> *photoBatch
	pendingFix  sync.Map // chatID -> *fixPending (last shown card)
	awaitingFix sync.Map // chatID -> bool (user pressed "fix", next text is the correction)
)
