package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"cardscan-bot/api/internal/card"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch cb.Data {
	case "card_ok":
		r.onCardOK(cid, cb.Message.MessageID)
	case "card_fix":
		r.onCardFix(cid, cb.Message.MessageID)
	}
}

func (r *Router) onCardOK(chatID int64, msgID int) {
	awaitingFix.Delete(chatID)
	pendingFix.Delete(chatID)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)
	r.send(chatID, "Saved. Send the next card whenever you like.")
}

func (r *Router) onCardFix(chatID int64, msgID int) {
	if _, ok := pendingFix.Load(chatID); !ok {
		r.send(chatID, "Nothing to fix — send a card photo first.")
		return
	}
	awaitingFix.Store(chatID, true)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)
	r.send(chatID, "Send the corrections, one per line, like:\n"+
		"name: 王大明\ncompany: ABC科技公司\n"+
		"Fields: name, phonetic, company, title, department, phone, mobile, email, website, address")
}

// applyCorrection merges user-typed "field: value" lines into the last shown
// card. Manual edits take the record over: Source becomes manual and the
// confidence is pinned to 1.
func (r *Router) applyCorrection(chatID int64, text string) {
	awaitingFix.Delete(chatID)
	v, ok := pendingFix.Load(chatID)
	if !ok {
		r.send(chatID, "The card to fix is gone — send the photo again, please.")
		return
	}
	p := v.(*fixPending)

	f := p.Fields
	applied := applyFieldEdits(&f, text)
	if applied == 0 {
		r.send(chatID, "I could not read any \"field: value\" line there. The card stays as shown.")
		return
	}
	f.Source = card.SourceManual
	f.Confidence = 1
	f.Trim()
	p.Fields = f

	if r.Cards != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Cards.UpdateFields(ctx, p.ImageHash, f); err != nil {
			log.Warn().Err(err).Int64("chat", chatID).Msg("telegram: correction save failed")
		}
	}
	r.send(chatID, "Updated:\n\n"+formatCard(f))
}

// applyFieldEdits parses "field: value" lines and writes them into f.
// Returns the number of fields changed.
func applyFieldEdits(f *card.Fields, text string) int {
	applied := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		idx := strings.IndexAny(line, ":：")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		val := strings.TrimSpace(strings.TrimLeft(line[idx:], ":："))
		var slot *string
		switch key {
		case "name", "姓名":
			slot = &f.Name
		case "phonetic", "namephonetic", "拼音":
			slot = &f.NamePhonetic
		case "company", "公司":
			slot = &f.Company
		case "title", "jobtitle", "職稱":
			slot = &f.JobTitle
		case "department", "部門":
			slot = &f.Department
		case "phone", "tel", "電話":
			slot = &f.Phone
		case "mobile", "cell", "手機":
			slot = &f.Mobile
		case "email", "信箱":
			slot = &f.Email
		case "website", "url", "網站":
			slot = &f.Website
		case "address", "地址":
			slot = &f.Address
		default:
			continue
		}
		*slot = val
		applied++
	}
	return applied
}
