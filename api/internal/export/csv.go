package export

import (
	"encoding/csv"
	"io"

	"cardscan-bot/api/internal/store"
)

var csvHeader = []string{
	"name", "name_phonetic", "company", "job_title", "department",
	"phone", "mobile", "email", "website", "address",
	"confidence", "source", "created_at",
}

// WriteCSV renders saved cards as UTF-8 CSV with a BOM so spreadsheet apps
// pick up the encoding.
func WriteCSV(w io.Writer, rows []store.CardRow) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		f := r.Fields
		rec := []string{
			f.Name, f.NamePhonetic, f.Company, f.JobTitle, f.Department,
			f.Phone, f.Mobile, f.Email, f.Website, f.Address,
			formatFloat(f.Confidence), string(f.Source),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
