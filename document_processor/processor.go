// Package document_processor is the single entry point for uploaded documents: it routes each document
// to the watermark engine, falls back to the original content when watermarking fails, and packages the result.
package document_processor

import (
	"context"
	"fmt"
	"github.com/rideon/docguard/codec"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/integrity"
	"github.com/rideon/docguard/utils"
	"github.com/rideon/docguard/watermark"
	"github.com/rs/zerolog"
	"github.com/ztrue/tracerr"
	"time"
)

var (
	// ErrorNoDocument is returned when Process is called without a document
	ErrorNoDocument = utils.NewDocGuardError("DOCUMENT_PROCESSOR_NO_DOCUMENT", "document cannot be nil")
)

const (
	DefaultVisibleOpacity = 0.15
	DefaultStampOpacity   = 0.6
)

// Options configures a Processor. Zero values are replaced by defaults in New.
type Options struct {
	Logger zerolog.Logger
	// Renderer provides the canvases. Defaults to watermark.MemoryRenderer.
	Renderer watermark.Renderer
	// VisibleOpacity of the tiled overlay. Defaults to DefaultVisibleOpacity.
	VisibleOpacity float64
	// StampOpacity of the corner notice. Defaults to DefaultStampOpacity.
	StampOpacity float64
	// Platform is embedded in the metadata and the corner notice.
	Platform string
	// Concurrency is the number of documents ProcessAll handles at once. 1 processes them sequentially.
	Concurrency int
	Metrics     *Metrics
	Clock       func() time.Time
}

type Processor struct {
	options Options
	logger  zerolog.Logger
}

func New(options Options) *Processor {
	if options.Renderer == nil {
		options.Renderer = watermark.MemoryRenderer{}
	}
	if options.VisibleOpacity == 0 {
		options.VisibleOpacity = DefaultVisibleOpacity
	}
	if options.StampOpacity == 0 {
		options.StampOpacity = DefaultStampOpacity
	}
	if options.Platform == "" {
		options.Platform = watermark.DefaultPlatform
	}
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	return &Processor{
		options: options,
		logger:  options.Logger.With().Str("component", "documentProcessor").Logger(),
	}
}

// VisibleText is the tiled watermark text: the masked email and the date.
func VisibleText(email string, at time.Time) string {
	return fmt.Sprintf("%s %s", integrity.MaskEmail(email), at.UTC().Format("2006-01-02"))
}

// StampText is the corner notice.
func StampText(platform string, at time.Time) string {
	return fmt.Sprintf("© %d %s - CONFIDENTIAL", at.UTC().Year(), platform)
}

// Process watermarks one document.
// Unsupported formats, unreadable content and cancellation are returned as errors. Any other watermarking failure
// degrades to the original content, with State set to StateFallbackOriginal.
func (p *Processor) Process(ctx context.Context, file *common_models.DocumentFile, opts common_models.ProcessDocumentOptions) (*common_models.ProcessedDocument, error) {
	start := time.Now()
	if file == nil {
		return nil, tracerr.Wrap(ErrorNoDocument)
	}
	if err := ctx.Err(); err != nil {
		return nil, tracerr.Wrap(err)
	}

	sessionId, err := integrity.GenerateSessionId()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	now := p.options.Clock()
	mediaType := codec.NormalizeMediaType(file.MediaType)
	logger := p.logger.With().Str("document", file.Name).Str("mime", mediaType).Str("watermarkId", sessionId).Logger()

	route := Classify(mediaType)
	if route == RouteUnsupported {
		p.options.Metrics.RecordDocument(route, OutcomeRejected, time.Since(start))
		logger.Debug().Msg("Unsupported document format")
		return nil, tracerr.Wrap(common_models.ErrorUnsupportedFormat.AddDetails(file.MediaType))
	}

	content, err := codec.FileToBuffer(file)
	if err != nil {
		p.options.Metrics.RecordDocument(route, OutcomeError, time.Since(start))
		return nil, tracerr.Wrap(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, tracerr.Wrap(err)
	}

	doc := &common_models.ProcessedDocument{
		OriginalName: file.Name,
		MimeType:     mediaType,
		WatermarkId:  sessionId,
		ProcessedAt:  now,
		State:        common_models.StatePending,
	}

	if !opts.AddVisibleWatermark && !opts.AddInvisibleWatermark {
		doc.Content = content
		doc.State = common_models.StateProcessed
		p.options.Metrics.RecordDocument(route, OutcomeProcessed, time.Since(start))
		logger.Debug().Msg("No watermark requested")
		return doc, nil
	}

	meta := watermark.NewMetadata(sessionId, opts.UserEmail, now, p.options.Platform)
	logger.Trace().Str("emailHash", meta.EmailHash).Str("documentType", opts.DocumentType).Msg("Watermarking document")

	switch route {
	case RouteImage:
		err = p.watermarkImage(doc, content, meta, opts)
	case RoutePDFDeferred:
		err = p.deferPDF(doc, content, meta)
	}
	if err != nil {
		if !watermark.IsRecoverable(err) {
			p.options.Metrics.RecordDocument(route, OutcomeError, time.Since(start))
			return nil, tracerr.Wrap(err)
		}
		fallback(doc, content, err)
		p.options.Metrics.RecordDocument(route, OutcomeFallback, time.Since(start))
		logger.Warn().Err(err).Str("reason", doc.FallbackReason).Msg("Watermarking failed, sending the unprocessed original")
		return doc, nil
	}

	doc.State = common_models.StateProcessed
	if doc.SkippedInvisibleReason != "" {
		p.options.Metrics.RecordDocument(route, OutcomePartial, time.Since(start))
		logger.Warn().Str("reason", doc.SkippedInvisibleReason).Msg("Invisible watermark skipped, only the visible watermark was applied")
		return doc, nil
	}
	p.options.Metrics.RecordDocument(route, OutcomeProcessed, time.Since(start))
	logger.Debug().Str("route", route.String()).Str("metadataHash", doc.MetadataHash).Msg("Document processed")
	return doc, nil
}

func (p *Processor) watermarkImage(doc *common_models.ProcessedDocument, content []byte, meta watermark.Metadata, opts common_models.ProcessDocumentOptions) error {
	req := watermark.Request{Metadata: meta, Invisible: opts.AddInvisibleWatermark}
	if opts.AddVisibleWatermark {
		req.Visible = &watermark.VisibleOptions{
			Text:         VisibleText(opts.UserEmail, doc.ProcessedAt),
			Opacity:      p.options.VisibleOpacity,
			StampText:    StampText(p.options.Platform, doc.ProcessedAt),
			StampOpacity: p.options.StampOpacity,
		}
	}
	res, err := watermark.Apply(p.options.Renderer, content, doc.MimeType, req)
	if err != nil {
		return tracerr.Wrap(err)
	}
	doc.Content = res.Content
	doc.MetadataHash = res.MetadataHash
	if res.SkippedInvisible != nil {
		doc.SkippedInvisibleReason = utils.ToSerializableError(res.SkippedInvisible).Code
	}
	return nil
}

func (p *Processor) deferPDF(doc *common_models.ProcessedDocument, content []byte, meta watermark.Metadata) error {
	deferred, err := watermark.DeferPDF(content, meta)
	if err != nil {
		return tracerr.Wrap(err)
	}
	doc.Content = deferred.Content
	doc.MetadataHash = deferred.MetadataHash
	doc.SerializedMetadata = deferred.SerializedMetadata
	doc.RequiresServerWatermark = deferred.RequiresServerWatermark
	return nil
}

func fallback(doc *common_models.ProcessedDocument, original []byte, cause error) {
	doc.Content = original
	doc.MetadataHash = ""
	doc.SerializedMetadata = nil
	doc.RequiresServerWatermark = false
	doc.SkippedInvisibleReason = ""
	doc.State = common_models.StateFallbackOriginal
	doc.FallbackReason = utils.ToSerializableError(cause).Code
}
