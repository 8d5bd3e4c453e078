package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/pipeline"
	"cardscan-bot/api/internal/util"
)

func (r *Router) processBatch(key string) {
	ctx := context.Background()
	bi, ok := batches.Load(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID := b.ChatID
	batches.Delete(key)
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}

	merged, err := combineAsOne(images)
	if err != nil {
		r.sendError(chatID, fmt.Errorf("stitching: %w", err))
		return
	}

	r.runScan(ctx, chatID, merged)
}

func (r *Router) runScan(ctx context.Context, chatID int64, image []byte) {
	engine := r.EngManager.Get(chatID)
	imgHash := util.SHA256Hex(image)
	engName, engModel := engineKey(engine)

	// same image scanned before with the same engine → reuse
	if r.Cards != nil {
		if row, err := r.Cards.FindByHash(ctx, imgHash, engName, engModel, cacheAge); err == nil {
			log.Info().Int64("chat", chatID).Str("hash", imgHash[:12]).Msg("telegram: cache hit")
			r.sendCard(chatID, imgHash, row.Fields)
			return
		}
	}

	out := r.Orch.Process(ctx, image, pipeline.ProcessOptions{Extractor: engine})
	switch out.Status {
	case pipeline.StatusOcrFailed:
		r.send(chatID, "I could not read any text on this photo. Please retake it with better lighting and focus.")
		return
	case pipeline.StatusProcessingFailed:
		r.sendError(chatID, out.Err)
		return
	}

	fields := out.Fields
	if fields.IsEmpty() {
		r.send(chatID, "The photo was readable but I found no contact fields on it. Is it really a business card?")
		return
	}

	if r.Cards != nil {
		if err := r.Cards.Upsert(ctx, chatID, imgHash, engName, engModel, "", fields); err != nil {
			log.Warn().Err(err).Int64("chat", chatID).Msg("telegram: save failed")
		}
	}

	r.sendCard(chatID, imgHash, fields)
}

// engineKey names the storage key of a scan. Local-only scans (no extraction
// engine configured) are keyed as "local" so they are still saved and listed.
func engineKey(engine extract.Client) (string, string) {
	if engine == nil {
		return "local", ""
	}
	return engine.Name(), engine.GetModel()
}

// sendCard shows the extracted record with a confirm/fix keyboard.
func (r *Router) sendCard(chatID int64, imgHash string, f card.Fields) {
	msg := tgbotapi.NewMessage(chatID, formatCard(f))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Looks right", "card_ok"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Fix a field", "card_fix"),
		),
	)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("telegram: send failed")
		return
	}
	pendingFix.Store(chatID, &fixPending{ImageHash: imgHash, Fields: f})
}
