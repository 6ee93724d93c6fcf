package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024

	// DefaultMaxResults is the inbox page size when none is requested.
	DefaultMaxResults = 10

	// threadFetchConcurrency bounds parallel thread metadata fetches.
	threadFetchConcurrency = 8

	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
	me          = "me"
)

var listHeaders = []string{"Subject", "From", "Date", "To"}

// Client wraps the Gmail Users service for one signed-in user.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewClient creates a Gmail client that authenticates with httpClient.
// Extra options (for example option.WithEndpoint) are applied after it.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		logger: logging.WithService(slog.Default(), instrumentation.ServiceGmail),
	}, nil
}

// SetMetrics sets the metrics recorder used for API calls.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// SetLogger sets a custom logger for the client
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logging.WithService(logger, instrumentation.ServiceGmail)
}

// observe runs fn inside a Google API span and records its outcome.
func (c *Client) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation)
	start := time.Now()

	err := fn(ctx)

	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, instrumentation.StatusOf(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// ListThreads returns one page of inbox threads. Every thread is fetched in
// metadata format in parallel and summarized by its oldest message. Threads
// that fail to load are left out of the page.
func (c *Client) ListThreads(ctx context.Context, opts ListOptions) (*ThreadList, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var res *gmail.ListThreadsResponse
	err := c.observe(ctx, instrumentation.OperationListThreads, func(ctx context.Context) error {
		call := c.svc.Threads.List(me).LabelIds(labelInbox).MaxResults(maxResults).Context(ctx)
		if opts.PageToken != "" {
			call.PageToken(opts.PageToken)
		}
		if opts.Query != "" {
			call.Q(opts.Query)
		}
		var err error
		res, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	summaries := make([]*ThreadSummary, len(res.Threads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threadFetchConcurrency)
	for i, t := range res.Threads {
		g.Go(func() error {
			thread, err := c.threadMetadata(gctx, t.Id)
			if err != nil {
				c.logger.Debug("Skipping thread that failed to load",
					logging.Thread(t.Id), logging.Err(err))
				return nil
			}
			summaries[i] = summarizeThread(thread)
			return nil
		})
	}
	_ = g.Wait()

	list := &ThreadList{
		Messages:      make([]ThreadSummary, 0, len(summaries)),
		NextPageToken: res.NextPageToken,
		TotalThreads:  res.ResultSizeEstimate,
	}
	for _, s := range summaries {
		if s != nil {
			list.Messages = append(list.Messages, *s)
		}
	}
	list.Total = len(list.Messages)
	return list, nil
}

func (c *Client) threadMetadata(ctx context.Context, threadID string) (*gmail.Thread, error) {
	var thread *gmail.Thread
	err := c.observe(ctx, instrumentation.OperationGetThread, func(ctx context.Context) error {
		var err error
		thread, err = c.svc.Threads.Get(me, threadID).
			Format("metadata").
			MetadataHeaders(listHeaders...).
			Context(ctx).
			Do()
		return err
	})
	return thread, err
}

// summarizeThread builds the list entry for a thread from its oldest message.
// It returns nil for threads without messages.
func summarizeThread(t *gmail.Thread) *ThreadSummary {
	if t == nil || len(t.Messages) == 0 {
		return nil
	}

	oldest := t.Messages[0]
	unread := 0
	for _, m := range t.Messages {
		if m.InternalDate < oldest.InternalDate {
			oldest = m
		}
		if slices.Contains(m.LabelIds, labelUnread) {
			unread++
		}
	}

	h := Headers{}
	if oldest.Payload != nil {
		h = NewHeaders(oldest.Payload.Headers)
	}
	date, _ := ParseDate(h.Get("date"))

	threadID := t.Id
	if threadID == "" {
		threadID = oldest.ThreadId
	}

	return &ThreadSummary{
		ID:             oldest.Id,
		ThreadID:       threadID,
		Subject:        DecodeHTMLEntities(h.Subject()),
		From:           h.Get("from"),
		FromAddress:    SenderAddress(h.Get("from")),
		To:             h.Get("to"),
		Date:           date,
		RawDate:        h.Get("date"),
		DisplayDate:    DisplayDate(h.Get("date")),
		Snippet:        DecodeHTMLEntities(oldest.Snippet),
		Unread:         unread > 0,
		ThreadCount:    len(t.Messages),
		UnreadInThread: unread,
	}
}

// GetMessage retrieves and decodes a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var msg *gmail.Message
	err := c.observe(ctx, instrumentation.OperationGetMessage, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	m := decodeMessage(msg)
	return &m, nil
}

// GetThread retrieves a thread and decodes each of its messages.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var thread *gmail.Thread
	err := c.observe(ctx, instrumentation.OperationGetThread, func(ctx context.Context) error {
		var err error
		thread, err = c.svc.Threads.Get(me, threadID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	out := &Thread{
		ThreadID: threadID,
		Messages: make([]Message, 0, len(thread.Messages)),
	}
	for _, m := range thread.Messages {
		out.Messages = append(out.Messages, decodeMessage(m))
	}
	return out, nil
}

// GetAttachment downloads the raw bytes of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	var body *gmail.MessagePartBody
	err := c.observe(ctx, instrumentation.OperationGetAttachment, func(ctx context.Context) error {
		var err error
		body, err = c.svc.Messages.Attachments.Get(me, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if body.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}

	data, err := decodeBase64(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	if len(data) > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", len(data), MaxAttachmentSize)
	}

	return data, nil
}

// Profile returns the email address of the signed-in user.
func (c *Client) Profile(ctx context.Context) (string, error) {
	var profile *gmail.Profile
	err := c.observe(ctx, instrumentation.OperationGetProfile, func(ctx context.Context) error {
		var err error
		profile, err = c.svc.GetProfile(me).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.EmailAddress, nil
}
