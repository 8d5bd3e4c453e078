package telegram

import (
	"fmt"
	"strings"

	"cardscan-bot/api/internal/card"
)

func formatCard(f card.Fields) string {
	var b strings.Builder
	b.WriteString("📇 Here is what I read:\n\n")
	writeLine(&b, "👤 Name", f.Name)
	writeLine(&b, "🔤 Phonetic", f.NamePhonetic)
	writeLine(&b, "🏢 Company", f.Company)
	writeLine(&b, "💼 Title", f.JobTitle)
	writeLine(&b, "🗂 Department", f.Department)
	writeLine(&b, "☎️ Phone", f.Phone)
	writeLine(&b, "📱 Mobile", f.Mobile)
	writeLine(&b, "📧 Email", f.Email)
	writeLine(&b, "🌐 Website", f.Website)
	writeLine(&b, "📍 Address", f.Address)
	fmt.Fprintf(&b, "\n%s, confidence %.0f%%", sourceLabel(f.Source), f.Confidence*100)
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func sourceLabel(s card.Source) string {
	switch s {
	case card.SourceAI:
		return "AI-enhanced"
	case card.SourceManual:
		return "Manually corrected"
	default:
		return "Local heuristics"
	}
}
