package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/meeting"
)

// handleDetectMeetings runs meeting detection over a thread and remembers
// the results for scheduling.
func (s *Server) handleDetectMeetings(c *gin.Context) {
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

	results, err := s.detector.Detect(ctx, session.User, thread.Messages)
	if err != nil {
		abortWithError(c, err, "meeting detection failed")
		return
	}
	session.SetMeetings(results)

	c.JSON(http.StatusOK, gin.H{"threadId": threadID, "results": results})
}

type scheduleRequest struct {
	MessageID string            `json:"messageId" binding:"required"`
	Event     *ai.ProposedEvent `json:"event"`
}

// handleScheduleMeeting books the meeting detected in a message. Only a
// message whose latest detection result is free can be booked.
func (s *Server) handleScheduleMeeting(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &apiError{Status: http.StatusBadRequest, Message: "invalid request", Detail: err.Error()}, "")
		return
	}

	detected, ok := session.Meeting(req.MessageID)
	if !ok {
		abortWithError(c, meeting.ErrNotSchedulable, "no meeting detected for this message")
		return
	}

	booker, err := s.booker(c)
	if err != nil {
		abortWithError(c, err, "failed to open calendar")
		return
	}

	scheduler := meeting.NewScheduler(booker, s.meetings, s.metrics, s.logger)
	rec, err := scheduler.Schedule(ctx, session.User, detected, req.Event)

	s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditMeetingBooked).
		WithUser(session.User).
		WithMessage(req.MessageID).
		WithDetail(s.config.CalendarBackend).
		WithSpanContext(ctx).
		Complete(err))

	if err != nil {
		abortWithError(c, err, "failed to schedule meeting")
		return
	}

	detected.Kind = meeting.Scheduled
	detected.CalendarLink = rec.CalendarLink
	detected.ScheduledAt = rec.ScheduledAt
	session.setMeeting(detected)

	c.JSON(http.StatusOK, rec)
}
