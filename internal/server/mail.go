package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

// handleListMessages lists one page of inbox threads. The user's enabled
// inbox filters are prepended to the q parameter.
func (s *Server) handleListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)

	opts := gmail.ListOptions{
		PageToken: c.Query("pageToken"),
		Query:     strings.TrimSpace(c.Query("q")),
	}
	if raw := c.Query("maxResults"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			abortWithError(c, newAPIError(http.StatusBadRequest, "maxResults must be a positive integer"), "")
			return
		}
		opts.MaxResults = n
	}

	filterQuery, err := s.filters.Query(ctx, session.User)
	if err != nil {
		logging.WithUser(s.logger, session.User).Warn("Ignoring inbox filters", logging.Err(err))
	}
	opts.Query = strings.TrimSpace(filterQuery + " " + opts.Query)

	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	list, err := mb.ListThreads(ctx, opts)
	if err != nil {
		abortWithError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetMessage(c *gin.Context) {
	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	msg, err := mb.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, "failed to get message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// handleGetThread returns a thread and makes it the session's current
// thread.
func (s *Server) handleGetThread(c *gin.Context) {
	threadID := c.Param("threadId")

	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	thread, err := mb.GetThread(c.Request.Context(), threadID)
	if err != nil {
		abortWithError(c, err, "failed to get thread")
		return
	}

	s.enterThread(c.Request.Context(), sessionFrom(c), threadID)
	c.JSON(http.StatusOK, thread)
}

func (s *Server) handleGetAttachment(c *gin.Context) {
	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	data, err := mb.GetAttachment(c.Request.Context(), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		abortWithError(c, err, "failed to get attachment")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// handleLeaveThread purges the session's thread state.
func (s *Server) handleLeaveThread(c *gin.Context) {
	session := sessionFrom(c)
	session.switchThread("")
	s.purge(c.Request.Context(), session, "thread closed")
	c.Status(http.StatusNoContent)
}
