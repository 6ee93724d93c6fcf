package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/actions"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
)

// NDJSON stream event types.
const (
	eventProgress = "progress"
	eventDone     = "done"
	eventError    = "error"
)

type actionEvent struct {
	Type    string           `json:"type"`
	Index   int              `json:"index,omitempty"`
	Total   int              `json:"total,omitempty"`
	Results []actions.Result `json:"results"`
	Error   *apiError        `json:"error,omitempty"`
}

// handleRunAction runs a quick action over a thread and streams progress
// as newline-delimited JSON: one progress event per message, then a done
// or error event.
func (s *Server) handleRunAction(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)
	threadID := c.Param("threadId")

	action, err := actions.ParseAction(c.Param("action"))
	if err != nil {
		abortWithError(c, &apiError{Status: http.StatusBadRequest, Message: "unknown action", Detail: err.Error()}, "")
		return
	}

	mb, ok := s.mailbox(c)
	if !ok {
		return
	}
	s.enterThread(ctx, session, threadID)

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	send := func(ev actionEvent) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		c.Writer.Flush()
	}

	start := time.Now()
	results, err := s.orchestrator.Run(ctx, mb, action, threadID, func(p actions.Progress) {
		send(actionEvent{Type: eventProgress, Index: p.Index, Total: p.Total, Results: p.Results})
	})
	session.SetResults(action, results)

	s.metrics.RecordQuickAction(ctx, action.String(), instrumentation.StatusOf(err), session.User)
	s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditQuickAction).
		WithUser(session.User).
		WithThread(threadID).
		WithDetail(fmt.Sprintf("%s in %s", action, time.Since(start).Truncate(time.Millisecond))).
		WithSpanContext(ctx).
		Complete(err))

	if err != nil {
		_ = c.Error(err)
		send(actionEvent{Type: eventError, Results: results, Error: toAPIError(err, action.String()+" failed")})
		return
	}
	send(actionEvent{Type: eventDone, Total: len(results), Results: results})
}

// handleExportTasks serves the last task-detection results of the thread
// as CSV.
func (s *Server) handleExportTasks(c *gin.Context) {
	session := sessionFrom(c)
	threadID := c.Param("threadId")

	results, ok := session.Results(actions.TaskDetection)
	if !ok || session.Thread() != threadID {
		abortWithError(c, newAPIError(http.StatusNotFound, "no task detection results for this thread"), "")
		return
	}

	data, err := actions.TasksCSV(actions.CollectTasks(results))
	if err != nil {
		abortWithError(c, err, "failed to export tasks")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tasks-%s.csv"`, threadID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
