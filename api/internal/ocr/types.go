package ocr

import "time"

// Rect is a normalized rectangle: x, y, w, h all in [0,1] relative to the
// image size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// TextBox is one recognized line with its geometry. Read-only after creation.
type TextBox struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Frame      Rect     `json:"frame"`
	Candidates []string `json:"candidates,omitempty"` // top-N alternate OCR guesses
}

// Result is what one OCR invocation returns. Created once per request and
// never mutated afterwards.
type Result struct {
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	Boxes          []TextBox     `json:"boxes,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

func (r Result) IsEmpty() bool {
	if len(r.Boxes) > 0 {
		return false
	}
	return r.Text == ""
}

// Options for a recognition call.
type Options struct {
	Langs []string // language hints, e.g. ["zh-TW","en"]
	Model string   // provider-specific model/feature override
}
