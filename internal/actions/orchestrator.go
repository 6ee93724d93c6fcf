package actions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

// Backend is the part of the AI backend quick actions use.
type Backend interface {
	Translate(ctx context.Context, subject, message string) (*ai.Translation, error)
	Analyze(ctx context.Context, message string) (*ai.Analysis, error)
	Summarize(ctx context.Context, message string) (*ai.Summary, error)
	DetectTasks(ctx context.Context, message string) (*ai.TaskDetection, error)
	Reply(ctx context.Context, message string) (*ai.Reply, error)
}

// ThreadSource loads a thread.
type ThreadSource interface {
	GetThread(ctx context.Context, threadID string) (*gmail.Thread, error)
}

// Result is the outcome of an action for one message. Exactly the fields
// relevant to the action are set.
type Result struct {
	MessageID   string            `json:"messageId"`
	Subject     string            `json:"subject"`
	From        string            `json:"from"`
	Translation *ai.Translation   `json:"translation,omitempty"`
	Analysis    *ai.Analysis      `json:"analysis,omitempty"`
	Summary     *ai.Summary       `json:"summary,omitempty"`
	Tasks       *ai.TaskDetection `json:"tasks,omitempty"`
	Reply       *ai.Reply         `json:"reply,omitempty"`
}

// Progress is reported after each message. Index is 1-based; Results holds
// a copy of every result so far, in thread order.
type Progress struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Results []Result `json:"results"`
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// Orchestrator runs quick actions.
type Orchestrator struct {
	backend Backend
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator that calls backend.
func NewOrchestrator(backend Backend, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		backend: backend,
		logger:  logging.WithOperation(logger, "quick_action"),
	}
}

// Run applies action to every message of the thread, sequentially, in
// thread order. On error it returns the results collected so far together
// with the error.
func (o *Orchestrator) Run(ctx context.Context, src ThreadSource, action Action, threadID string, onProgress ProgressFunc) (results []Result, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "quick_action "+action.String(),
		attribute.String(instrumentation.SpanAttrAction, action.String()),
		attribute.String(instrumentation.SpanAttrThreadID, threadID))
	defer func() { instrumentation.EndSpan(span, err) }()

	logger := o.logger.With(logging.Action(action.String()), logging.Thread(threadID))
	start := time.Now()

	thread, err := src.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrMessageCount, len(thread.Messages)))

	results = []Result{}
	total := len(thread.Messages)
	for i := range thread.Messages {
		msg := &thread.Messages[i]

		res, keep, err := o.runOne(ctx, action, msg)
		if err != nil {
			logger.Warn("Quick action aborted",
				logging.Message(msg.ID),
				"completed", len(results),
				"total", total,
				logging.Err(err))
			return results, fmt.Errorf("%s failed on message %d of %d: %w", action, i+1, total, err)
		}
		if keep {
			results = append(results, res)
		}

		if onProgress != nil {
			onProgress(Progress{Index: i + 1, Total: total, Results: slices.Clone(results)})
		}
	}

	logger.Info("Quick action completed",
		"messages", total,
		"results", len(results),
		logging.Duration(time.Since(start)))
	return results, nil
}

// runOne runs action on one message. keep is false when the result should
// not be shown (task detection without tasks).
func (o *Orchestrator) runOne(ctx context.Context, action Action, msg *gmail.Message) (Result, bool, error) {
	res := Result{MessageID: msg.ID, Subject: msg.Subject, From: msg.From}
	text := msg.Text()
	prompt := Prompt(msg.Subject, text)

	switch action {
	case Translate:
		tr, err := o.backend.Translate(ctx, msg.Subject, text)
		if err != nil {
			return res, false, err
		}
		res.Translation = tr

	case SemanticAnalysis:
		tr, err := o.backend.Translate(ctx, msg.Subject, text)
		if err != nil {
			return res, false, err
		}
		analysis, err := o.backend.Analyze(ctx, Prompt(tr.SubjectOr(msg.Subject), tr.MessageOr(text)))
		if err != nil {
			return res, false, err
		}
		res.Translation = tr
		res.Analysis = analysis

	case Summary:
		s, err := o.backend.Summarize(ctx, prompt)
		if err != nil {
			return res, false, err
		}
		res.Summary = s

	case TaskDetection:
		tasks, err := o.backend.DetectTasks(ctx, prompt)
		if err != nil {
			return res, false, err
		}
		if !tasks.Found() {
			return res, false, nil
		}
		res.Tasks = tasks

	case AutoReply:
		reply, err := o.backend.Reply(ctx, prompt)
		if err != nil {
			return res, false, err
		}
		res.Reply = reply

	default:
		return res, false, fmt.Errorf("unknown action %q", action)
	}

	return res, true, nil
}

// Prompt formats a message the way the backend expects it.
func Prompt(subject, body string) string {
	return "Subject: " + subject + "\n\n" + body
}
