package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/filters"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
)

type filtersResponse struct {
	*filters.UserSettings
	Query string `json:"query"`
}

func (s *Server) handleGetFilters(c *gin.Context) {
	settings, err := s.filters.Get(c.Request.Context(), sessionFrom(c).User)
	if err != nil {
		abortWithError(c, err, "failed to load filters")
		return
	}
	c.JSON(http.StatusOK, filtersResponse{
		UserSettings: settings,
		Query:        filters.BuildQuery(settings.ActiveFilters, settings.SenderGroups),
	})
}

func (s *Server) handlePutFilters(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)

	var req filters.UserSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &apiError{Status: http.StatusBadRequest, Message: "invalid request", Detail: err.Error()}, "")
		return
	}

	saved, err := s.filters.Save(ctx, session.User, req)
	s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditFiltersUpdated).
		WithUser(session.User).
		WithSpanContext(ctx).
		Complete(err))
	if err != nil {
		abortWithError(c, err, "failed to save filters")
		return
	}

	c.JSON(http.StatusOK, filtersResponse{
		UserSettings: saved,
		Query:        filters.BuildQuery(saved.ActiveFilters, saved.SenderGroups),
	})
}
