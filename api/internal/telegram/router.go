package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/store"
)

type Router struct {
	Bot        *tgbotapi.BotAPI
	Orch       *pipeline.Orchestrator
	EngManager *extract.Manager
	Engines    extract.Engines
	Cards      *store.CardRepo
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	// a text message right after "fix a field" is the correction
	if _, ok := awaitingFix.Load(cid); ok && upd.Message.Text != "" && !upd.Message.IsCommand() {
		r.applyCorrection(cid, upd.Message.Text)
		return
	}

	if upd.Message.IsCommand() {
		r.handleCommand(upd)
		return
	}

	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
	}
}

func (r *Router) handleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, "Send me a photo of a business card and I will extract the contact.\n"+
			"Two-sided card? Send both photos in a row, I will stitch them.\n"+
			"Commands: /engine, /recent, /delete, /export, /vcard, /health")
	case "health":
		if r.Orch.IsEnhancementAvailable() {
			r.send(cid, "✅ OK (AI enhancement available)")
		} else {
			r.send(cid, "✅ OK (local heuristics only)")
		}
	case "engine":
		r.handleEngineCommand(cid, upd.Message.Text)
	case "recent":
		r.handleRecent(cid)
	case "delete":
		r.handleDelete(cid)
	case "export":
		r.handleExportCSV(cid)
	case "vcard":
		r.handleExportVCard(cid)
	default:
		r.send(cid, "Unknown command")
	}
}

// handleEngineCommand switches the extraction engine for this chat.
// Formats:
//
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine deepseek
func (r *Router) handleEngineCommand(chatID int64, cmd string) {
	args := strings.Fields(strings.TrimSpace(strings.TrimPrefix(cmd, "/engine")))
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		if cur == nil {
			r.send(chatID, "No extraction engine configured.")
			return
		}
		r.send(chatID, "Current engine: "+cur.Name()+" ("+cur.GetModel()+")"+
			"\nUsage:\n/engine gemini [model]\n/engine gpt [model]\n/engine deepseek")
		return
	}
	name := strings.ToLower(args[0])
	var modelArg string
	if len(args) > 1 {
		modelArg = strings.TrimSpace(args[1])
	}

	eng, err := r.Engines.Get(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error()+". Available: gemini | gpt | deepseek")
		return
	}
	type modelSetter interface{ SetModel(string) }
	if modelArg != "" {
		if ms, ok := any(eng).(modelSetter); ok {
			ms.SetModel(modelArg)
		}
	}
	r.EngManager.Set(chatID, eng)
	note := ""
	if name == "deepseek" {
		note = " Note: deepseek works from OCR text only, the card image is never sent."
	}
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+")."+note)
}

func (r *Router) handleRecent(chatID int64) {
	if r.Cards == nil {
		r.send(chatID, "Storage is not configured.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.Cards.ListByChat(ctx, chatID, 10)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	if len(rows) == 0 {
		r.send(chatID, "No cards saved yet.")
		return
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last %d cards:\n", len(rows)))
	for i, row := range rows {
		f := row.Fields
		line := f.Name
		if f.Company != "" {
			line += " — " + f.Company
		}
		if line == "" {
			line = "(empty)"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	r.send(chatID, b.String())
}

// handleDelete forgets the last shown card (storage row included).
func (r *Router) handleDelete(chatID int64) {
	v, ok := pendingFix.Load(chatID)
	if !ok {
		r.send(chatID, "Nothing to delete — send a card photo first.")
		return
	}
	p := v.(*fixPending)
	awaitingFix.Delete(chatID)
	pendingFix.Delete(chatID)

	if r.Cards != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Cards.Delete(ctx, p.ImageHash); err != nil && err != store.ErrNotFound {
			r.sendError(chatID, err)
			return
		}
	}
	r.send(chatID, "Deleted.")
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Something went wrong: %v", err))
}
