package card

import "strings"

// Source marks which stage last authored a record.
type Source string

const (
	SourceLocal  Source = "local"
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// Fields is the structured record extracted from a business card. An empty
// string means "not detected". The same shape is used for the local heuristic
// result, the remote LLM result and the final reconciled record.
type Fields struct {
	Name         string `json:"name,omitempty"`
	NamePhonetic string `json:"namePhonetic,omitempty"`
	Company      string `json:"company,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	Department   string `json:"department,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
	Address      string `json:"address,omitempty"`

	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// textSlots returns pointers to every textual field, in the canonical order
// used by reconciliation and export.
func (f *Fields) textSlots() []*string {
	return []*string{
		&f.Name, &f.NamePhonetic, &f.Company, &f.JobTitle, &f.Department,
		&f.Phone, &f.Mobile, &f.Email, &f.Website, &f.Address,
	}
}

// Trim normalizes all textual fields: trimmed, never whitespace-only. The
// confidence is clamped to [0,1].
func (f *Fields) Trim() {
	for _, p := range f.textSlots() {
		*p = strings.TrimSpace(*p)
	}
	if f.Confidence < 0 {
		f.Confidence = 0
	}
	if f.Confidence > 1 {
		f.Confidence = 1
	}
}

// FieldCount reports how many textual fields are populated.
func (f *Fields) FieldCount() int {
	n := 0
	for _, p := range f.textSlots() {
		if strings.TrimSpace(*p) != "" {
			n++
		}
	}
	return n
}

func (f *Fields) IsEmpty() bool { return f.FieldCount() == 0 }
