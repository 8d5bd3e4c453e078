package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"cardscan-bot/api/internal/card"
)

var ErrNotFound = sql.ErrNoRows

// CardRepo persists finalized card records. It also doubles as an extraction
// cache keyed by (image_hash, engine, model).
type CardRepo struct{ DB *sql.DB }

func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{DB: db} }

type CardRow struct {
	ID        int64
	CreatedAt time.Time
	ChatID    int64
	ImageHash string
	Engine    string
	Model     string
	OCRText   string
	Fields    card.Fields
}

// EnsureSchema creates the cards table when it does not exist yet.
func (r *CardRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists cards (
  id          bigserial primary key,
  created_at  timestamptz not null default now(),
  chat_id     bigint,
  image_hash  text not null,
  engine      text not null default '',
  model       text not null default '',
  ocr_text    text,
  fields_json jsonb not null,
  confidence  double precision not null default 0,
  source      text not null default 'local',
  unique (image_hash, engine, model)
)`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

// FindByHash fetches the freshest record for (image_hash, engine, model).
// If maxAge > 0 it also checks freshness, otherwise age is ignored.
func (r *CardRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*CardRow, error) {
	const q = `
select id, created_at,
       coalesce(chat_id,0) as chat_id,
       image_hash, engine, model,
       coalesce(ocr_text,'') as ocr_text,
       fields_json
from cards
where image_hash = $1 and engine = $2 and model = $3
order by created_at desc
limit 1`
	row := r.DB.QueryRowContext(ctx, q, imageHash, engine, model)

	var (
		id      int64
		ts      time.Time
		chatID  int64
		imgHash string
		engName string
		mdlName string
		ocrText string
		js      []byte
	)
	if err := row.Scan(&id, &ts, &chatID, &imgHash, &engName, &mdlName, &ocrText, &js); err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return nil, ErrNotFound
	}
	var f card.Fields
	if err := json.Unmarshal(js, &f); err != nil {
		// broken JSON in the cache counts as a miss
		return nil, ErrNotFound
	}
	return &CardRow{
		ID:        id,
		CreatedAt: ts,
		ChatID:    chatID,
		ImageHash: imgHash,
		Engine:    engName,
		Model:     mdlName,
		OCRText:   ocrText,
		Fields:    f,
	}, nil
}

// Upsert saves a finalized record. An existing row for
// (image_hash, engine, model) is overwritten.
func (r *CardRepo) Upsert(
	ctx context.Context,
	chatID int64,
	imageHash, engine, model, ocrText string,
	f card.Fields,
) error {
	js, _ := json.Marshal(f)
	const q = `
insert into cards (
  chat_id, image_hash, engine, model,
  ocr_text, fields_json, confidence, source
) values ($1,$2,$3,$4,$5,$6,$7,$8)
on conflict (image_hash, engine, model) do update
set chat_id = excluded.chat_id,
    ocr_text = excluded.ocr_text,
    fields_json = excluded.fields_json,
    confidence = excluded.confidence,
    source = excluded.source`
	_, err := r.DB.ExecContext(ctx, q,
		chatID, imageHash, engine, model,
		ocrText, js, f.Confidence, string(f.Source),
	)
	return err
}

// UpdateFields overwrites the record's fields after a manual correction.
func (r *CardRepo) UpdateFields(ctx context.Context, imageHash string, f card.Fields) error {
	js, _ := json.Marshal(f)
	const q = `update cards set fields_json=$2, confidence=$3, source=$4 where image_hash=$1`
	res, err := r.DB.ExecContext(ctx, q, imageHash, js, f.Confidence, string(f.Source))
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes every record of an image (all engines).
func (r *CardRepo) Delete(ctx context.Context, imageHash string) error {
	const q = `delete from cards where image_hash = $1`
	res, err := r.DB.ExecContext(ctx, q, imageHash)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByChat returns the most recent cards saved from a chat.
func (r *CardRepo) ListByChat(ctx context.Context, chatID int64, limit int) ([]CardRow, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
select id, created_at, coalesce(chat_id,0), image_hash, engine, model,
       coalesce(ocr_text,''), fields_json
from cards
where chat_id = $1
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CardRow
	for rows.Next() {
		var cr CardRow
		var js []byte
		if err := rows.Scan(&cr.ID, &cr.CreatedAt, &cr.ChatID, &cr.ImageHash,
			&cr.Engine, &cr.Model, &cr.OCRText, &js); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &cr.Fields); err != nil {
			continue
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes stale rows so the cache does not grow unbounded.
func (r *CardRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from cards where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
