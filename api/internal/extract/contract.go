package extract

import (
	"encoding/json"
	"strings"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/util"
)

// SystemPrompt instructs the model to return strict JSON matching the card
// field contract. Shared by all providers.
const SystemPrompt = `You are a business card parser. You are given OCR text recognized
from a photographed business card (traditional Chinese and/or English), and
sometimes the card image itself. Extract the contact fields.

Return ONLY a JSON object with these optional keys (omit a key when the field
is not present on the card; never invent values):
{
  "name": string,          // person name, as printed
  "namePhonetic": string,  // romanized/phonetic name if printed separately
  "company": string,
  "jobTitle": string,
  "department": string,
  "phone": string,         // landline, keep original formatting
  "mobile": string,
  "email": string,
  "website": string,
  "address": string,
  "confidence": number     // your overall confidence, 0..1
}
Any text outside the JSON object is an error.`

// payload mirrors the provider response contract. Absent keys mean "not
// detected", never an error.
type payload struct {
	Name         string  `json:"name"`
	NamePhonetic string  `json:"namePhonetic"`
	Company      string  `json:"company"`
	JobTitle     string  `json:"jobTitle"`
	Department   string  `json:"department"`
	Phone        string  `json:"phone"`
	Mobile       string  `json:"mobile"`
	Email        string  `json:"email"`
	Website      string  `json:"website"`
	Address      string  `json:"address"`
	Confidence   float64 `json:"confidence"`
}

func (p payload) toFields() card.Fields {
	f := card.Fields{
		Name:         p.Name,
		NamePhonetic: p.NamePhonetic,
		Company:      p.Company,
		JobTitle:     p.JobTitle,
		Department:   p.Department,
		Phone:        p.Phone,
		Mobile:       p.Mobile,
		Email:        p.Email,
		Website:      p.Website,
		Address:      p.Address,
		Confidence:   p.Confidence,
		Source:       card.SourceAI,
	}
	f.Trim()
	return f
}

// ParseContent turns a raw model completion into card fields. Unparseable
// JSON is an invalid-response error; a well-formed object with no field and
// no confidence is a parsing-failed error, not a degraded success.
func ParseContent(provider, raw string) (card.Fields, error) {
	out := util.StripCodeFences(strings.TrimSpace(raw))
	var p payload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return card.Fields{}, NewError(KindInvalidResponse, provider, err)
	}
	f := p.toFields()
	if f.IsEmpty() && f.Confidence == 0 {
		return card.Fields{}, NewError(KindParsingFailed, provider, nil)
	}
	return f, nil
}
