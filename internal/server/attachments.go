package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/attachments"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
)

type attachmentsResponse struct {
	ThreadID    string                            `json:"threadId"`
	Attachments []attachments.ProcessedAttachment `json:"attachments"`
	Summary     *attachments.Summary              `json:"summary,omitempty"`
	InProgress  int                               `json:"classificationsInProgress"`
}

func attachmentsView(threadID string, st *attachments.Store) attachmentsResponse {
	return attachmentsResponse{
		ThreadID:    threadID,
		Attachments: st.List(),
		Summary:     st.Summary(),
		InProgress:  st.InProgress(),
	}
}

// handleProcessAttachments extracts the text of every attachment in the
// thread. Classification continues in the background; poll the list
// endpoint for its results.
func (s *Server) handleProcessAttachments(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)
	threadID := c.Param("threadId")

	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	thread, err := mb.GetThread(ctx, threadID)
	if err != nil {
		abortWithError(c, err, "failed to get thread")
		return
	}

	s.enterThread(ctx, session, threadID)
	summary := s.pipeline.Run(ctx, mb, session.Attachments, thread.Messages)

	s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditAttachmentsRead).
		WithUser(session.User).
		WithThread(threadID).
		WithDetail(summary.String()).
		WithSpanContext(ctx).
		Complete(nil))

	c.JSON(http.StatusOK, attachmentsView(threadID, session.Attachments))
}

func (s *Server) handleListAttachments(c *gin.Context) {
	session := sessionFrom(c)
	threadID := c.Param("threadId")

	if session.Thread() != threadID {
		c.JSON(http.StatusOK, attachmentsResponse{ThreadID: threadID, Attachments: []attachments.ProcessedAttachment{}})
		return
	}
	c.JSON(http.StatusOK, attachmentsView(threadID, session.Attachments))
}

type ragRequest struct {
	MessageID    string `json:"messageId" binding:"required"`
	AttachmentID string `json:"attachmentId" binding:"required"`
	Question     string `json:"question" binding:"required"`
}

// handleAskRAG answers a question about a processed attachment.
func (s *Server) handleAskRAG(c *gin.Context) {
	session := sessionFrom(c)

	var req ragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &apiError{Status: http.StatusBadRequest, Message: "invalid request", Detail: err.Error()}, "")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		abortWithError(c, newAPIError(http.StatusBadRequest, "question is required"), "")
		return
	}

	pa, ok := session.Attachments.Find(req.MessageID, req.AttachmentID)
	if !ok {
		abortWithError(c, newAPIError(http.StatusNotFound, "attachment has not been processed"), "")
		return
	}

	answer, err := s.ai.AskRAG(c.Request.Context(), question, pa.ExtractedText)
	if err != nil {
		abortWithError(c, err, "failed to answer question")
		return
	}
	c.JSON(http.StatusOK, answer)
}
