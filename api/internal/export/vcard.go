package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"cardscan-bot/api/internal/store"
)

// WriteVCard renders saved cards as a vCard 3.0 stream, one VCARD block per
// record.
func WriteVCard(w io.Writer, rows []store.CardRow) error {
	var sb strings.Builder
	for _, r := range rows {
		f := r.Fields
		if f.IsEmpty() {
			continue
		}
		sb.WriteString("BEGIN:VCARD\r\nVERSION:3.0\r\n")
		if f.Name != "" {
			writeProp(&sb, "FN", f.Name)
			writeCompound(&sb, "N", f.Name, "", "", "", "")
		}
		if f.NamePhonetic != "" {
			writeProp(&sb, "X-PHONETIC-FIRST-NAME", f.NamePhonetic)
		}
		if f.Company != "" {
			if f.Department != "" {
				writeCompound(&sb, "ORG", f.Company, f.Department)
			} else {
				writeCompound(&sb, "ORG", f.Company)
			}
		}
		if f.JobTitle != "" {
			writeProp(&sb, "TITLE", f.JobTitle)
		}
		if f.Phone != "" {
			writeProp(&sb, "TEL;TYPE=WORK,VOICE", f.Phone)
		}
		if f.Mobile != "" {
			writeProp(&sb, "TEL;TYPE=CELL", f.Mobile)
		}
		if f.Email != "" {
			writeProp(&sb, "EMAIL;TYPE=WORK", f.Email)
		}
		if f.Website != "" {
			writeProp(&sb, "URL", f.Website)
		}
		if f.Address != "" {
			writeCompound(&sb, "ADR;TYPE=WORK", "", "", f.Address, "", "", "", "")
		}
		writeProp(&sb, "REV", r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
		sb.WriteString("END:VCARD\r\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// writeProp emits one simple property line with the value escaped per
// RFC 2426, semicolons included.
func writeProp(sb *strings.Builder, prop, value string) {
	fmt.Fprintf(sb, "%s:%s\r\n", prop, escapeValue(value))
}

// writeCompound emits a structured property (N, ORG, ADR). Each component is
// escaped on its own so only the separators stay literal ";".
func writeCompound(sb *strings.Builder, prop string, components ...string) {
	esc := make([]string, len(components))
	for i, c := range components {
		esc[i] = escapeValue(c)
	}
	fmt.Fprintf(sb, "%s:%s\r\n", prop, strings.Join(esc, ";"))
}

func escapeValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
