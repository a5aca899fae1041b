package httpHandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/pkg/logger"
	"project-submission/pkg/middleware"
)

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	list, err := h.projects.Dashboard(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		logger.GetLogger(c.Request.Context()).Error("dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list})
}

// ProjectDetails handles GET /projects/:id
func (h *Handler) ProjectDetails(c *gin.Context) {
	projectID, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	d, err := h.projects.Details(c.Request.Context(), middleware.GetActor(c), projectID)
	if errors.Is(err, errs.ErrUnauthorized) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to do that"})
		return
	}
	if err != nil {
		logger.GetLogger(c.Request.Context()).Error("project details", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}
	c.JSON(http.StatusOK, d)
}
