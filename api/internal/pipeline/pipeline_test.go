package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/ocr"
)

type fakeProvider struct {
	res ocr.Result
	err error
}

func (p *fakeProvider) Name() string { return "fake-ocr" }
func (p *fakeProvider) Recognize(ctx context.Context, image []byte, opt ocr.Options) (ocr.Result, error) {
	return p.res, p.err
}

type fakeExtractor struct {
	fields    card.Fields
	err       error
	available bool
	delay     time.Duration
	calls     int
}

func (e *fakeExtractor) Name() string      { return "fake-llm" }
func (e *fakeExtractor) GetModel() string  { return "fake-1" }
func (e *fakeExtractor) IsAvailable() bool { return e.available }
func (e *fakeExtractor) Extract(ctx context.Context, ocrText string, image []byte) (card.Fields, error) {
	e.calls++
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return card.Fields{}, extract.FromTransport(e.Name(), ctx.Err())
		}
	}
	return e.fields, e.err
}

var cardText = "王大明\nABC科技公司\n02-2345-6789"

func okProvider() *fakeProvider {
	return &fakeProvider{res: ocr.Result{Text: cardText, Confidence: 0.9}}
}

func TestProcessLocalOnly(t *testing.T) {
	o := New(okProvider(), nil, Options{Enhance: true})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "王大明", out.Fields.Name)
	assert.Equal(t, "02-2345-6789", out.Fields.Phone)
	assert.Equal(t, card.SourceLocal, out.Fields.Source)
	assert.False(t, o.IsEnhancementAvailable())
}

func TestProcessMergesRemote(t *testing.T) {
	ext := &fakeExtractor{
		available: true,
		fields: card.Fields{
			Name: "王大明", Company: "ABC科技公司", JobTitle: "產品經理",
			Confidence: 0.9, Source: card.SourceAI,
		},
	}
	o := New(okProvider(), ext, Options{Enhance: true})
	require.True(t, o.IsEnhancementAvailable())

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, card.SourceAI, out.Fields.Source)
	assert.Equal(t, "產品經理", out.Fields.JobTitle)
	// local phone survives even though the remote never saw it
	assert.Equal(t, "02-2345-6789", out.Fields.Phone)
	// both agree on the name: bonus on top of the max
	assert.InDelta(t, 0.95, out.Fields.Confidence, 1e-9)
}

func TestProcessFallsBackOnEveryRemoteErrorKind(t *testing.T) {
	kinds := []extract.Kind{
		extract.KindServiceUnavailable,
		extract.KindNetwork,
		extract.KindInvalidCredential,
		extract.KindQuotaExceeded,
		extract.KindInvalidResponse,
		extract.KindParsingFailed,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			ext := &fakeExtractor{available: true, err: extract.NewError(kind, "fake-llm", nil)}
			o := New(okProvider(), ext, Options{Enhance: true})

			out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

			require.Equal(t, StatusSuccess, out.Status)
			assert.Equal(t, card.SourceLocal, out.Fields.Source)
			assert.Equal(t, "王大明", out.Fields.Name)
			assert.NoError(t, out.Err)
		})
	}
}

func TestProcessOcrFailed(t *testing.T) {
	p := &fakeProvider{err: ocr.NewError(ocr.KindNoTextFound, "fake-ocr", nil)}
	ext := &fakeExtractor{available: true}
	o := New(p, ext, Options{Enhance: true})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	assert.Equal(t, StatusOcrFailed, out.Status)
	// the remote stage must not run after an OCR failure
	assert.Zero(t, ext.calls)
}

func TestProcessOcrFault(t *testing.T) {
	p := &fakeProvider{err: ocr.NewError(ocr.KindInvalidImage, "fake-ocr", errors.New("not an image"))}
	o := New(p, nil, Options{})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	assert.Equal(t, StatusProcessingFailed, out.Status)
	assert.Error(t, out.Err)
}

func TestProcessEmptyTextIsStillSuccess(t *testing.T) {
	p := &fakeProvider{res: ocr.Result{Text: ""}}
	o := New(p, nil, Options{})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.Fields.IsEmpty())
	assert.Zero(t, out.Fields.Confidence)
}

func TestProcessSkipsUnavailableExtractor(t *testing.T) {
	ext := &fakeExtractor{available: false}
	o := New(okProvider(), ext, Options{Enhance: true})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, card.SourceLocal, out.Fields.Source)
	assert.Zero(t, ext.calls)
}

func TestProcessNoEnhanceOverride(t *testing.T) {
	ext := &fakeExtractor{available: true, fields: card.Fields{Name: "x", Confidence: 0.9}}
	o := New(okProvider(), ext, Options{Enhance: true})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{NoEnhance: true})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Zero(t, ext.calls)
}

func TestProcessPerRequestExtractorOverride(t *testing.T) {
	def := &fakeExtractor{available: true, fields: card.Fields{Name: "default", Confidence: 0.9}}
	alt := &fakeExtractor{available: true, fields: card.Fields{Name: "override", Confidence: 0.9}}
	o := New(okProvider(), def, Options{Enhance: true})

	out := o.Process(context.Background(), []byte("img"), ProcessOptions{Extractor: alt})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "override", out.Fields.Name)
	assert.Zero(t, def.calls)
	assert.Equal(t, 1, alt.calls)
}

func TestProcessRemoteTimeoutDegrades(t *testing.T) {
	ext := &fakeExtractor{
		available: true,
		delay:     200 * time.Millisecond,
		fields:    card.Fields{Name: "late", Confidence: 0.9},
	}
	o := New(okProvider(), ext, Options{Enhance: true, RemoteTimeout: 20 * time.Millisecond})

	start := time.Now()
	out := o.Process(context.Background(), []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, card.SourceLocal, out.Fields.Source)
	assert.Equal(t, "王大明", out.Fields.Name)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestProcessCallerCancellationDegrades(t *testing.T) {
	ext := &fakeExtractor{
		available: true,
		delay:     time.Second,
		fields:    card.Fields{Name: "late", Confidence: 0.9},
	}
	o := New(okProvider(), ext, Options{Enhance: true})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	out := o.Process(ctx, []byte("img"), ProcessOptions{})

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, card.SourceLocal, out.Fields.Source)
}
