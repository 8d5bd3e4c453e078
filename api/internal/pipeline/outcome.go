package pipeline

import "cardscan-bot/api/internal/card"

type Status string

const (
	StatusSuccess          Status = "success"
	StatusOcrFailed        Status = "ocr_failed"        // OCR produced no usable text
	StatusProcessingFailed Status = "processing_failed" // unexpected internal fault
)

// Outcome is the orchestrator's terminal return value. Exactly one of the
// three statuses; Fields is valid on Success, Image on Success and OcrFailed,
// Err on ProcessingFailed.
type Outcome struct {
	Status Status
	Fields card.Fields
	Image  []byte
	Err    error
}

func Success(fields card.Fields, image []byte) Outcome {
	return Outcome{Status: StatusSuccess, Fields: fields, Image: image}
}

func OcrFailed(image []byte) Outcome {
	return Outcome{Status: StatusOcrFailed, Image: image}
}

func ProcessingFailed(err error) Outcome {
	return Outcome{Status: StatusProcessingFailed, Err: err}
}
