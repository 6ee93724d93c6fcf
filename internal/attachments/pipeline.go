package attachments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

var errExtractionFailed = errors.New("extraction was not successful")

// Backend is the part of the AI backend the pipeline uses.
type Backend interface {
	ProcessAttachment(ctx context.Context, filename string, content []byte) (*ai.ProcessedDocument, error)
	ClassifyThemes(ctx context.Context, text string, numThemes int) (*ai.Classification, error)
}

// Downloader fetches raw attachment bytes.
type Downloader interface {
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Config configures a Pipeline.
type Config struct {
	// NumThemes is passed to classification, clamped to the backend range.
	NumThemes int

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Pipeline runs attachment extraction and classification.
type Pipeline struct {
	backend   Backend
	numThemes int
	metrics   *instrumentation.Metrics
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewPipeline creates a pipeline that calls backend.
func NewPipeline(backend Backend, cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		backend:   backend,
		numThemes: ai.ClampThemes(cfg.NumThemes),
		metrics:   cfg.Metrics,
		logger:    logging.WithOperation(logger, "attachments"),
	}
}

type job struct {
	messageID  string
	attachment gmail.Attachment
}

// Run extracts every attachment of messages, in thread order, one at a
// time. A failed attachment is logged and skipped. Each successful
// extraction is appended to store and classified in the background; the
// classification outlives ctx.
//
// A purge of store during the run ends it: nothing extracted after the
// purge is added, and the summary is not recorded.
func (p *Pipeline) Run(ctx context.Context, dl Downloader, store *Store, messages []gmail.Message) Summary {
	gen := store.Generation()

	var jobs []job
	for _, m := range messages {
		for _, a := range m.Attachments {
			jobs = append(jobs, job{messageID: m.ID, attachment: a})
		}
	}

	sum := Summary{Attempted: len(jobs)}
	for _, j := range jobs {
		start := time.Now()
		logger := p.logger.With(logging.Message(j.messageID), logging.Attachment(j.attachment.ID))

		processed, err := p.extract(ctx, dl, j)
		p.metrics.RecordAttachmentProcessed(ctx, instrumentation.StatusOf(err))
		if err != nil {
			logger.Warn("Attachment extraction failed, skipping",
				"filename", j.attachment.Filename,
				logging.Err(err),
				logging.Duration(time.Since(start)))
			continue
		}

		added := store.Update(gen, func(list []ProcessedAttachment) []ProcessedAttachment {
			for i := range list {
				if list[i].matches(processed.MessageID, processed.AttachmentID) {
					list[i] = processed
					return list
				}
			}
			return append(list, processed)
		})
		if !added {
			logger.Info("Session purged, stopping attachment run",
				"done", sum.Succeeded, "attempted", sum.Attempted)
			return sum
		}
		sum.Succeeded++

		logger.Debug("Attachment extracted",
			"text_length", len(processed.ExtractedText),
			logging.Duration(time.Since(start)))

		p.classify(context.WithoutCancel(ctx), store, gen, processed)
	}

	store.setSummaryAt(gen, sum)
	return sum
}

func (p *Pipeline) extract(ctx context.Context, dl Downloader, j job) (ProcessedAttachment, error) {
	data, err := dl.GetAttachment(ctx, j.messageID, j.attachment.ID)
	if err != nil {
		return ProcessedAttachment{}, fmt.Errorf("download: %w", err)
	}

	doc, err := p.backend.ProcessAttachment(ctx, j.attachment.Filename, data)
	if err != nil {
		return ProcessedAttachment{}, fmt.Errorf("process: %w", err)
	}
	if !doc.ProcessingSuccessful || doc.Metadata == nil {
		return ProcessedAttachment{}, errExtractionFailed
	}

	return ProcessedAttachment{
		MessageID:     j.messageID,
		AttachmentID:  j.attachment.ID,
		Filename:      j.attachment.Filename,
		ExtractedText: doc.ExtractedText,
		Metadata: Metadata{
			SizeKB:    doc.Metadata.SizeKB,
			MimeType:  doc.Metadata.MimeType,
			Extension: doc.Metadata.Extension,
		},
		ClassificationInProgress: true,
	}, nil
}

// classify starts background classification of pa. Completion clears the
// in-progress flag of the matching entry in the store's current list and,
// on success, attaches the classification. An entry that is gone by then
// (for example after a purge) is left alone.
func (p *Pipeline) classify(ctx context.Context, store *Store, gen uint64, pa ProcessedAttachment) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		cls, err := p.backend.ClassifyThemes(ctx, pa.ExtractedText, p.numThemes)
		p.metrics.RecordAttachmentClassified(ctx, instrumentation.StatusOf(err))
		if err != nil {
			p.logger.Warn("Attachment classification failed",
				logging.Message(pa.MessageID),
				logging.Attachment(pa.AttachmentID),
				logging.Err(err))
		}

		store.Update(gen, func(list []ProcessedAttachment) []ProcessedAttachment {
			for i := range list {
				if !list[i].matches(pa.MessageID, pa.AttachmentID) {
					continue
				}
				list[i].ClassificationInProgress = false
				if err == nil {
					list[i].Classification = cls
				}
			}
			return list
		})
	}()
}

// Wait blocks until every background classification has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
