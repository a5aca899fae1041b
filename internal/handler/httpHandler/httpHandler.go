package httpHandler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/internal/notifier"
	"project-submission/internal/service/accessService"
	"project-submission/internal/service/authService"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/service/projectService"
	"project-submission/internal/validation"
	"project-submission/pkg/middleware"
)

const (
	PageHome      = "/"
	PageLogin     = "/login"
	PageProject   = "/project"
	PageDashboard = "/dashboard"
)

const deniedPage = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Error</title></head>` +
	`<body><p>You are not allowed to do that</p></body></html>`

type Auth interface {
	CheckSignup(ctx context.Context, form *authService.SignupForm, bindErr error, problems *validation.Errors) error
	Register(ctx context.Context, form *authService.SignupForm) (*user.User, error)
	Login(ctx context.Context, login, password string) (*user.User, error)
	StartSession(ctx context.Context, u *user.User) (string, *user.Actor, error)
	Logout(ctx context.Context, actor *user.Actor) error
	ResolveUser(ctx context.Context, ref user.Ref) (*user.User, error)
}

type Nonces interface {
	Create(action string, actor *user.Actor) (string, error)
	Verify(token, action string, actor *user.Actor) (*nonceService.Claims, error)
	Consume(ctx context.Context, token, action string, actor *user.Actor) error
}

type Files interface {
	Resolve(ctx context.Context, target fileInfo.Target, actor accessService.AuthContext) (*fileInfo.Descriptor, error)
	Open(ctx context.Context, d *fileInfo.Descriptor) (io.ReadCloser, int64, error)
	UploadAvatar(ctx context.Context, u *user.User, f fileInfo.Upload) (fileInfo.Descriptor, error)
	OpenAvatar(ctx context.Context, u *user.User) (io.ReadCloser, int64, error)
}

type Projects interface {
	CheckProject(actor *user.Actor, form *projectService.ProjectForm, bindErr error, problems *validation.Errors)
	Submit(ctx context.Context, actor *user.Actor, form *projectService.ProjectForm) (*project.Project, error)
	AddMessage(ctx context.Context, actor *user.Actor, projectID uint32, form *projectService.MessageForm, problems *validation.Errors) (*project.Message, error)
	Dashboard(ctx context.Context, actor *user.Actor) ([]projectService.Summary, error)
	Details(ctx context.Context, actor *user.Actor, projectID uint32) (*projectService.Details, error)
	UpdateStatus(ctx context.Context, actor *user.Actor, projectID uint32, status string) error
}

type Handler struct {
	auth       Auth
	nonces     Nonces
	files      Files
	projects   Projects
	notify     notifier.Notifier
	sessionTTL time.Duration
	secure     bool
}

func New(auth Auth, nonces Nonces, files Files, projects Projects, notify notifier.Notifier, sessionTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		auth:       auth,
		nonces:     nonces,
		files:      files,
		projects:   projects,
		notify:     notify,
		sessionTTL: sessionTTL,
		secure:     secureCookies,
	}
}

// Routes registers every endpoint on r. The session middleware must already be installed.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/nonce", h.Nonce)
	r.GET("/notice", h.Notice)
	r.GET("/deliver", h.Deliver)
	r.GET("/avatar", h.Avatar)

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	r.POST("/projects", h.SubmitProject)

	private := r.Group("/", middleware.RequireLogin())
	private.GET("/dashboard", h.Dashboard)
	private.GET("/projects/:id", h.ProjectDetails)
	private.POST("/projects/:id/messages", h.AddMessage)
	private.POST("/projects/:id/status", h.UpdateStatus)
}

// Nonce handles GET /nonce?action=<name>
func (h *Handler) Nonce(c *gin.Context) {
	action := c.Query("action")
	if !slices.Contains(nonceService.Actions, action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	token, err := h.nonces.Create(action, middleware.GetActor(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action, "token": token})
}

// Notice handles GET /notice?message=<code>
func (h *Handler) Notice(c *gin.Context) {
	c.JSON(http.StatusOK, validation.NoticeFor(c.Query("message")))
}

func (h *Handler) denied(c *gin.Context) {
	c.Data(http.StatusForbidden, "text/html; charset=utf-8", []byte(deniedPage))
}

// back redirects to the page the request came from, when it is on this
// host, with message=code.
func (h *Handler) back(c *gin.Context, code string) {
	target := PageHome
	if ref := c.Request.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Request.Host) && len(u.Path) > 0 && u.Path[0] == '/' {
			target = (&url.URL{Path: u.Path, RawQuery: u.RawQuery}).String()
		}
	}
	redirect(c, target, code)
}

func redirect(c *gin.Context, target, code string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: PageHome}
	}
	q := u.Query()
	q.Set("message", code)
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.String())
}

func (h *Handler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.sessionTTL.Seconds()), "/", "", h.secure, true)
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secure, true)
}

// queryID returns the first of keys that holds a positive id.
func queryID(c *gin.Context, keys ...string) uint32 {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err == nil && id > 0 {
				return uint32(id)
			}
		}
	}
	return 0
}

func paramID(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint32(id), true
}

func toUpload(fh *multipart.FileHeader) fileInfo.Upload {
	return fileInfo.Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Mime: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// formFiles returns the non-empty files posted under field.
func formFiles(c *gin.Context, field string) []fileInfo.Upload {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	var out []fileInfo.Upload
	for _, fh := range form.File[field] {
		if fh.Size == 0 && fh.Filename == "" {
			continue
		}
		out = append(out, toUpload(fh))
	}
	return out
}
