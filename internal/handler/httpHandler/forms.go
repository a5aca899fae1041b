package httpHandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/internal/service/authService"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/service/projectService"
	"project-submission/internal/validation"
	"project-submission/pkg/logger"
	"project-submission/pkg/middleware"
)

// Signup handles POST /signup
func (h *Handler) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.GetLogger(ctx)
	actor := middleware.GetActor(c)
	token := c.PostForm("token")

	var problems validation.Errors
	if _, err := h.nonces.Verify(token, nonceService.ActionSignup, actor); err != nil {
		problems.Add(validation.CodeInvalidNonce)
	}
	if actor.ID != 0 {
		problems.Add(validation.CodeUnauthorized)
	}

	form := &authService.SignupForm{}
	bindErr := c.ShouldBind(form)
	if fh, err := c.FormFile("avatar"); err == nil && fh.Size > 0 {
		avatar := toUpload(fh)
		form.Avatar = &avatar
	}

	if err := h.auth.CheckSignup(ctx, form, bindErr, &problems); err != nil {
		log.Error("signup check failed", zap.Error(err))
		h.back(c, validation.CodeSignupFailed)
		return
	}
	if problems.Any() {
		log.Debug("signup rejected", zap.Strings("codes", problems.Codes()))
		h.back(c, problems.First())
		return
	}
	if err := h.nonces.Consume(ctx, token, nonceService.ActionSignup, actor); err != nil {
		h.back(c, validation.CodeInvalidNonce)
		return
	}

	u, err := h.auth.Register(ctx, form)
	if errors.Is(err, errs.ErrAlreadyExists) {
		h.back(c, validation.CodeAlreadyRegistered)
		return
	}
	if err != nil {
		log.Error("signup failed", zap.Error(err))
		h.back(c, validation.CodeSignupFailed)
		return
	}

	if form.Avatar != nil {
		if _, err := h.files.UploadAvatar(ctx, u, *form.Avatar); err != nil {
			log.Warn("avatar upload failed", zap.Uint32("user_id", u.ID), zap.Error(err))
		}
	}
	h.notify.NewUser(ctx, u)

	session, _, err := h.auth.StartSession(ctx, u)
	if err != nil {
		log.Error("session after signup", zap.Error(err))
		redirect(c, PageLogin, validation.CodeLoginFailed)
		return
	}
	h.setSession(c, session)
	redirect(c, PageProject, validation.CodeSignupSuccess)
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	u, err := h.auth.Login(ctx, c.PostForm("login"), c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, errs.ErrUnauthorized) {
			logger.GetLogger(ctx).Error("login failed", zap.Error(err))
		}
		redirect(c, PageLogin, validation.CodeLoginFailed)
		return
	}

	session, _, err := h.auth.StartSession(ctx, u)
	if err != nil {
		logger.GetLogger(ctx).Error("start session", zap.Error(err))
		redirect(c, PageLogin, validation.CodeLoginFailed)
		return
	}
	h.setSession(c, session)
	redirect(c, PageDashboard, validation.CodeLoginSuccess)
}

// Logout handles POST /logout
func (h *Handler) Logout(c *gin.Context) {
	actor := middleware.GetActor(c)
	if actor.ID != 0 {
		if err := h.auth.Logout(c.Request.Context(), actor); err != nil {
			logger.GetLogger(c.Request.Context()).Error("logout", zap.Error(err))
		}
	}
	h.clearSession(c)
	redirect(c, PageHome, validation.CodeLogoutSuccess)
}

// SubmitProject handles POST /projects
func (h *Handler) SubmitProject(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	token := c.PostForm("token")

	var problems validation.Errors
	if _, err := h.nonces.Verify(token, nonceService.ActionNewProject, actor); err != nil {
		problems.Add(validation.CodeInvalidNonce)
	}
	form := &projectService.ProjectForm{}
	bindErr := c.ShouldBind(form)
	form.Files = formFiles(c, "project-files")

	h.projects.CheckProject(actor, form, bindErr, &problems)
	if problems.Any() {
		logger.GetLogger(ctx).Debug("submission rejected", zap.Strings("codes", problems.Codes()))
		h.back(c, problems.First())
		return
	}
	if err := h.nonces.Consume(ctx, token, nonceService.ActionNewProject, actor); err != nil {
		h.back(c, validation.CodeInvalidNonce)
		return
	}

	p, err := h.projects.Submit(ctx, actor, form)
	if p == nil {
		logger.GetLogger(ctx).Error("project submission failed", zap.Error(err))
		h.back(c, validation.CodeSubmissionFailed)
		return
	}
	if err != nil {
		redirect(c, PageDashboard, validation.CodeUploadError)
		return
	}
	redirect(c, PageDashboard, validation.CodeSubmissionSuccess)
}

// AddMessage handles POST /projects/:id/messages
func (h *Handler) AddMessage(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	projectID, ok := paramID(c)
	if !ok {
		h.denied(c)
		return
	}
	if err := h.nonces.Consume(ctx, c.PostForm("token"), nonceService.ActionNewMessage, actor); err != nil {
		h.back(c, validation.CodeInvalidNonce)
		return
	}

	var problems validation.Errors
	form := &projectService.MessageForm{
		Content: c.PostForm("content"),
		Files:   formFiles(c, "attachments"),
	}
	_, err := h.projects.AddMessage(ctx, actor, projectID, form, &problems)
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		h.denied(c)
	case problems.Any():
		h.back(c, problems.First())
	case errors.Is(err, errs.ErrUploadFailed):
		h.back(c, validation.CodeUploadError)
	case err != nil:
		logger.GetLogger(ctx).Error("add message", zap.Error(err))
		h.back(c, validation.CodeError)
	default:
		h.back(c, validation.CodeSuccess)
	}
}

// UpdateStatus handles POST /projects/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	projectID, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req struct {
		Status string `json:"status" form:"status" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.projects.UpdateStatus(c.Request.Context(), middleware.GetActor(c), projectID, req.Status)
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"id": projectID, "status": req.Status})
	}
}
