package httpHandler

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/user"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/validation"
	"project-submission/pkg/logger"
	"project-submission/pkg/middleware"
)

// Deliver handles GET /deliver?token=&filekey=&content_item_id=|message_id=
//
// The token is checked before anything else is looked up. A denied actor or an
// unknown target gets the access-denied page; a known target whose file is
// missing is sent back with message=error-downloading.
func (h *Handler) Deliver(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.GetLogger(ctx)
	actor := middleware.GetActor(c)

	if _, err := h.nonces.Verify(c.Query("token"), nonceService.ActionDownload, actor); err != nil {
		h.denied(c)
		return
	}

	target := fileInfo.Target{
		ProjectID: queryID(c, "content_item_id", "project_id"),
		MessageID: queryID(c, "message_id", "comment_id"),
		FileKey:   c.Query("filekey"),
	}
	if target.FileKey == "" {
		h.denied(c)
		return
	}

	d, err := h.files.Resolve(ctx, target, actor)
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		h.denied(c)
		return
	case errors.Is(err, errs.ErrNotFound):
		h.back(c, validation.CodeErrorDownloading)
		return
	case err != nil:
		log.Error("resolve file", zap.Error(err), zap.String("file_key", target.FileKey))
		h.back(c, validation.CodeErrorDownloading)
		return
	}

	rc, size, err := h.files.Open(ctx, d)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			log.Error("open file", zap.Error(err), zap.String("file_key", d.Key))
		}
		h.back(c, validation.CodeErrorDownloading)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, "application/octet-stream", rc, map[string]string{
		"Content-Description":       "File Transfer",
		"Content-Transfer-Encoding": "Binary",
		"Content-Disposition":       `attachment; filename="` + filepath.Base(d.Path) + `"`,
		"Expires":                   "0",
		"Cache-Control":             "must-revalidate",
		"Pragma":                    "public",
	})
}

// Avatar handles GET /avatar?user_id=|email=|project_id=|message_id=
func (h *Handler) Avatar(c *gin.Context) {
	var ref user.Ref
	switch {
	case c.Query("user_id") != "":
		ref = user.ByID(queryID(c, "user_id"))
	case c.Query("email") != "":
		ref = user.ByEmail(c.Query("email"))
	case c.Query("project_id") != "":
		ref = user.FromProject(queryID(c, "project_id"))
	case c.Query("message_id") != "":
		ref = user.FromMessage(queryID(c, "message_id"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "user reference required"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.auth.ResolveUser(ctx, ref)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	rc, size, err := h.files.OpenAvatar(ctx, u)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, u.AvatarMime, rc, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}
