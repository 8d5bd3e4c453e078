package telegram

import (
	"bytes"
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cardscan-bot/api/internal/export"
	"cardscan-bot/api/internal/store"
)

func (r *Router) handleExportCSV(chatID int64) {
	rows, ok := r.loadRows(chatID)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		r.sendError(chatID, err)
		return
	}
	r.sendDocument(chatID, "cards.csv", buf.Bytes())
}

func (r *Router) handleExportVCard(chatID int64) {
	rows, ok := r.loadRows(chatID)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteVCard(&buf, rows); err != nil {
		r.sendError(chatID, err)
		return
	}
	r.sendDocument(chatID, "cards.vcf", buf.Bytes())
}

func (r *Router) loadRows(chatID int64) ([]store.CardRow, bool) {
	if r.Cards == nil {
		r.send(chatID, "Storage is not configured.")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.Cards.ListByChat(ctx, chatID, 500)
	if err != nil {
		r.sendError(chatID, err)
		return nil, false
	}
	if len(rows) == 0 {
		r.send(chatID, "No cards saved yet.")
		return nil, false
	}
	return rows, true
}

func (r *Router) sendDocument(chatID int64, name string, data []byte) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	_, _ = r.Bot.Send(doc)
}
