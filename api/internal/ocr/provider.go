package ocr

import "context"

// Provider is the OCR boundary. One production implementation (vision) plus
// in-memory doubles in tests; injected via constructors, never a global.
type Provider interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opt Options) (Result, error)
}
