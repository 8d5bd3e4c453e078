package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"cardscan-bot/api/internal/card"
	"cardscan-bot/api/internal/extract"
	"cardscan-bot/api/internal/ocr"
)

// State of one extraction request. Purely informational (logging); the
// machine itself is the control flow of Process.
type State string

const (
	StateIdle          State = "idle"
	StateOcrRunning    State = "ocr_running"
	StateLocalParsed   State = "local_parsed"
	StateRemoteRunning State = "remote_running"
	StateSkipped       State = "skipped"
	StateReconciled    State = "reconciled"
	StateDone          State = "done"
	StateErrored       State = "errored"
)

const defaultRemoteTimeout = 30 * time.Second

// Options tune the orchestrator at construction.
type Options struct {
	// Enhance gates the remote extraction stage. Even when set, the stage
	// runs only if the client reports itself available.
	Enhance bool
	// RemoteTimeout bounds the remote extraction call. Zero means the
	// default of 30s. A timeout degrades to the local record, it never
	// fails the request.
	RemoteTimeout time.Duration
	// Langs are the OCR language hints.
	Langs []string
}

// Orchestrator sequences OCR → local parse → optional remote enhancement →
// reconciliation for one image. Stateless across calls; dependencies are
// injected once at construction.
type Orchestrator struct {
	provider  ocr.Provider
	extractor extract.Client // may be nil: enhancement permanently skipped
	opts      Options
}

func New(provider ocr.Provider, extractor extract.Client, opts Options) *Orchestrator {
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	return &Orchestrator{provider: provider, extractor: extractor, opts: opts}
}

// IsEnhancementAvailable is the cheap pre-flight the caller may use to adjust
// its UI before Process.
func (o *Orchestrator) IsEnhancementAvailable() bool {
	return o.opts.Enhance && o.extractor != nil && o.extractor.IsAvailable()
}

// ProcessOptions override per-request behavior.
type ProcessOptions struct {
	// NoEnhance skips the remote stage for this request even when the
	// orchestrator has it enabled.
	NoEnhance bool
	// Extractor overrides the orchestrator's client (per-chat engine
	// selection). Nil keeps the default.
	Extractor extract.Client
}

// Process runs one extraction request to a terminal outcome. Remote-stage
// failures are absorbed: the local record is returned as a normal success
// with Source=local. Only OCR-provider faults and unexpected internal faults
// terminate differently.
func (o *Orchestrator) Process(ctx context.Context, image []byte, opt ProcessOptions) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("state", string(StateErrored)).Msg("pipeline: internal fault")
			out = ProcessingFailed(fmt.Errorf("pipeline: internal fault: %v", r))
		}
	}()

	// Idle → OcrRunning
	res, err := o.provider.Recognize(ctx, image, ocr.Options{Langs: o.opts.Langs})
	if err != nil {
		kind, ok := ocr.KindOf(err)
		if ok && kind == ocr.KindNoTextFound {
			// Reported outcome, not a fault: the caller prompts for a retake.
			log.Info().Str("provider", o.provider.Name()).Msg("pipeline: no text found")
			return OcrFailed(image)
		}
		log.Error().Err(err).Str("provider", o.provider.Name()).Msg("pipeline: ocr failed")
		return ProcessingFailed(err)
	}

	// OcrRunning → LocalParsed. The parse is total: empty-but-successful OCR
	// text still ends in Success with an empty record.
	local := card.ParseResult(res)
	log.Debug().
		Str("state", string(StateLocalParsed)).
		Int("fields", local.FieldCount()).
		Float64("ocr_confidence", res.Confidence).
		Dur("ocr_time", res.ProcessingTime).
		Msg("pipeline: local parse done")

	extractor := o.extractor
	if opt.Extractor != nil {
		extractor = opt.Extractor
	}
	enhance := o.opts.Enhance && !opt.NoEnhance && extractor != nil && extractor.IsAvailable()
	if !enhance {
		// LocalParsed → Skipped → Reconciled
		return Success(card.Passthrough(local), image)
	}

	// LocalParsed → RemoteRunning. The local record is immutable from here:
	// the remote stage only ever reads it.
	remote, err := o.runRemote(ctx, extractor, res.Text, image)
	if err != nil {
		// Degraded, not errored: remote failure never discards a successful
		// local parse.
		kind, _ := extract.KindOf(err)
		log.Warn().Err(err).Str("kind", string(kind)).Str("engine", extractor.Name()).
			Msg("pipeline: remote extraction failed, falling back to local")
		return Success(card.Passthrough(local), image)
	}

	// RemoteRunning → Reconciled → Done
	merged := card.Enhance(local, remote)
	log.Debug().
		Str("state", string(StateReconciled)).
		Str("source", string(merged.Source)).
		Float64("confidence", merged.Confidence).
		Msg("pipeline: reconciled")
	return Success(merged, image)
}

// runRemote executes the extraction on its own goroutine with a bounded
// timeout and a single-value result channel. Cancellation or timeout maps to
// a network-kind error so the caller takes the same degraded path.
func (o *Orchestrator) runRemote(ctx context.Context, extractor extract.Client, ocrText string, image []byte) (card.Fields, error) {
	rctx, cancel := context.WithTimeout(ctx, o.opts.RemoteTimeout)
	defer cancel()

	type result struct {
		fields card.Fields
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := extractor.Extract(rctx, ocrText, image)
		ch <- result{fields: f, err: err}
	}()

	select {
	case r := <-ch:
		return r.fields, r.err
	case <-rctx.Done():
		return card.Fields{}, extract.FromTransport(extractor.Name(), rctx.Err())
	}
}
