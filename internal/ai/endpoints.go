package ai

import (
	"context"
	"encoding/base64"
	"net/http"
)

// Translate translates an email to English.
func (c *Client) Translate(ctx context.Context, subject, message string) (*Translation, error) {
	var out Translation
	if err := c.post(ctx, EndpointTranslate, translateRequest{Subject: subject, Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze runs semantic analysis on an email.
func (c *Client) Analyze(ctx context.Context, message string) (*Analysis, error) {
	var out Analysis
	if err := c.post(ctx, EndpointAnalyze, messageRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize summarizes an email.
func (c *Client) Summarize(ctx context.Context, message string) (*Summary, error) {
	var out Summary
	if err := c.post(ctx, EndpointSummary, messageRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectTasks extracts action items from an email.
func (c *Client) DetectTasks(ctx context.Context, message string) (*TaskDetection, error) {
	var out TaskDetection
	if err := c.post(ctx, EndpointTasks, messageRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reply drafts a reply to an email.
func (c *Client) Reply(ctx context.Context, message string) (*Reply, error) {
	var out Reply
	if err := c.post(ctx, EndpointReply, messageRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessAttachment extracts text from a file.
func (c *Client) ProcessAttachment(ctx context.Context, filename string, content []byte) (*ProcessedDocument, error) {
	req := attachmentRequest{
		FileContentBase64: base64.StdEncoding.EncodeToString(content),
		Filename:          filename,
	}
	var out ProcessedDocument
	if err := c.post(ctx, EndpointAttachmentProcess, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClampThemes maps n into [MinThemes, MaxThemes]. Zero or negative values
// select DefaultThemes.
func ClampThemes(n int) int {
	switch {
	case n <= 0:
		return DefaultThemes
	case n < MinThemes:
		return MinThemes
	case n > MaxThemes:
		return MaxThemes
	default:
		return n
	}
}

// ClassifyThemes clusters text into numThemes topical themes.
func (c *Client) ClassifyThemes(ctx context.Context, text string, numThemes int) (*Classification, error) {
	req := classifyRequest{TextContent: text, NumThemes: ClampThemes(numThemes)}
	var out Classification
	if err := c.post(ctx, EndpointClassifyThemes, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeMeeting looks for a meeting proposal in an email.
func (c *Client) AnalyzeMeeting(ctx context.Context, text string) (*MeetingAnalysis, error) {
	var out MeetingAnalysis
	if err := c.post(ctx, EndpointCalendarAnalyze, meetingAnalyzeRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScheduleMeeting books event in the calendar the backend is connected to
// and returns the event link.
func (c *Client) ScheduleMeeting(ctx context.Context, event ProposedEvent) (string, error) {
	req := scheduleRequest{
		Date:         event.Date,
		Heure:        event.Heure,
		DureeMinutes: event.DureeMinutes,
		Summary:      event.Summary,
		Description:  defaultScheduleDescription,
	}
	var out ScheduledEvent
	if err := c.post(ctx, EndpointCalendarSchedule, req, &out); err != nil {
		return "", err
	}
	return out.HTMLLink, nil
}

// AskRAG answers question from text.
func (c *Client) AskRAG(ctx context.Context, question, text string) (*RAGAnswer, error) {
	req := ragRequest{
		Question:        question,
		TextContent:     text,
		TopK:            DefaultTopK,
		ForceRecreate:   false,
		ApplyCorrection: true,
	}
	var out RAGAnswer
	if err := c.post(ctx, EndpointRAGAsk, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearDatabase drops the backend's per-session vector and classification
// stores.
func (c *Client) ClearDatabase(ctx context.Context) (*ClearResult, error) {
	var out ClearResult
	if err := c.post(ctx, EndpointDatabaseClearAll, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, EndpointHealth, nil, nil)
}
