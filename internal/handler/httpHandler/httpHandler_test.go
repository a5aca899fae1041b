package httpHandler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/appleboy/gofight/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-submission/internal/errs"
	"project-submission/internal/handler/httpHandler"
	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/internal/notifier"
	"project-submission/internal/repository/BlackListRepo"
	"project-submission/internal/service/accessService"
	"project-submission/internal/service/authService"
	"project-submission/internal/service/fileService"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/service/pathService"
	"project-submission/internal/service/projectService"
	"project-submission/internal/storage"
	"project-submission/internal/validation"
	"project-submission/pkg/middleware"
)

// countingStore records every read that reaches the backend.
type countingStore struct {
	*storage.Local
	opens atomic.Int32
}

func (s *countingStore) Open(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	s.opens.Add(1)
	return s.Local.Open(ctx, path)
}

type users map[uint32]*user.User

func (u users) GetByID(_ context.Context, id uint32) (*user.User, error) {
	if x, ok := u[id]; ok {
		return x, nil
	}
	return nil, errs.ErrNotFound
}

func (u users) SetAvatar(_ context.Context, id uint32, path, mime string) error {
	x, ok := u[id]
	if !ok {
		return errs.ErrNotFound
	}
	x.AvatarPath, x.AvatarMime = path, mime
	return nil
}

type projects map[uint32]*project.Project

func (p projects) GetByID(_ context.Context, id uint32) (*project.Project, error) {
	if x, ok := p[id]; ok {
		return x, nil
	}
	return nil, errs.ErrNotFound
}

type messages map[uint32]*project.Message

func (m messages) GetByID(_ context.Context, id uint32) (*project.Message, error) {
	if x, ok := m[id]; ok {
		return x, nil
	}
	return nil, errs.ErrNotFound
}

type memRefs struct {
	mu   sync.Mutex
	data map[string]fileInfo.References
}

func refKey(kind fileInfo.OwnerKind, id uint32) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

func (m *memRefs) Append(_ context.Context, kind fileInfo.OwnerKind, ownerID uint32, refs fileInfo.References) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := refKey(kind, ownerID)
	if m.data[k] == nil {
		m.data[k] = fileInfo.References{}
	}
	for key, d := range refs {
		m.data[k][key] = d
	}
	return nil
}

func (m *memRefs) Get(_ context.Context, kind fileInfo.OwnerKind, ownerID uint32, key string) (*fileInfo.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[refKey(kind, ownerID)][key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &d, nil
}

func (m *memRefs) List(_ context.Context, kind fileInfo.OwnerKind, ownerID uint32) (fileInfo.References, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[refKey(kind, ownerID)], nil
}

// fakeAuth serves both the session middleware and the handler.
type fakeAuth struct {
	sessions  map[string]*user.Actor
	users     users
	loggedOut []string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*user.Actor, error) {
	if a, ok := f.sessions[token]; ok {
		return a, nil
	}
	return nil, errs.ErrInvalidToken
}

func (f *fakeAuth) CheckSignup(_ context.Context, form *authService.SignupForm, bindErr error, problems *validation.Errors) error {
	failed := validation.FromBinding(bindErr)
	if failed[validation.CodeMissingField] {
		problems.Add(validation.CodeMissingField)
	}
	if failed[validation.CodeInvalidEmail] {
		problems.Add(validation.CodeInvalidEmail)
	}
	return nil
}

func (f *fakeAuth) Register(_ context.Context, form *authService.SignupForm) (*user.User, error) {
	u := &user.User{ID: 50, Username: form.Username, Email: form.Email, SecretKey: "new-key", Roles: []string{user.RoleProjectOwner}}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeAuth) Login(_ context.Context, login, password string) (*user.User, error) {
	for _, u := range f.users {
		if u.Username == login && password == "secret" {
			return u, nil
		}
	}
	return nil, errs.ErrUnauthorized
}

func (f *fakeAuth) StartSession(_ context.Context, u *user.User) (string, *user.Actor, error) {
	token := "tok-" + u.Username
	a := user.NewActor(u, "sid-"+u.Username)
	f.sessions[token] = a
	return token, a, nil
}

func (f *fakeAuth) Logout(_ context.Context, actor *user.Actor) error {
	f.loggedOut = append(f.loggedOut, actor.SessionID)
	return nil
}

func (f *fakeAuth) ResolveUser(ctx context.Context, ref user.Ref) (*user.User, error) {
	if ref.Kind != user.RefByID {
		return nil, errs.ErrNotFound
	}
	return f.users.GetByID(ctx, ref.ID)
}

type stubProjects struct{}

func (stubProjects) CheckProject(_ *user.Actor, _ *projectService.ProjectForm, bindErr error, problems *validation.Errors) {
	if validation.FromBinding(bindErr)[validation.CodeMissingField] {
		problems.Add(validation.CodeMissingField)
	}
}

func (stubProjects) Submit(context.Context, *user.Actor, *projectService.ProjectForm) (*project.Project, error) {
	return &project.Project{ID: 99}, nil
}

func (stubProjects) AddMessage(context.Context, *user.Actor, uint32, *projectService.MessageForm, *validation.Errors) (*project.Message, error) {
	return &project.Message{ID: 1}, nil
}

func (stubProjects) Dashboard(_ context.Context, actor *user.Actor) ([]projectService.Summary, error) {
	return []projectService.Summary{{Project: &project.Project{ID: 10, AuthorID: actor.ID, Title: "Website"}}}, nil
}

func (stubProjects) Details(_ context.Context, actor *user.Actor, projectID uint32) (*projectService.Details, error) {
	if !accessService.Allowed(1, actor) {
		return nil, errs.ErrUnauthorized
	}
	return &projectService.Details{Project: &project.Project{ID: projectID, AuthorID: 1}}, nil
}

func (stubProjects) UpdateStatus(_ context.Context, actor *user.Actor, _ uint32, _ string) error {
	if !actor.HasRole(user.RoleAdministrator) {
		return errs.ErrUnauthorized
	}
	return nil
}

type fixture struct {
	engine *gin.Engine
	store  *countingStore
	nonces *nonceService.NonceService
	files  *fileService.FileService
	auth   *fakeAuth
	alice  *user.Actor
	bob    *user.Actor
	admin  *user.Actor
	key    string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	us := users{
		1: {ID: 1, Username: "alice", SecretKey: "k-alice", Roles: []string{user.RoleProjectOwner}},
		2: {ID: 2, Username: "bob", SecretKey: "k-bob", Roles: []string{user.RoleProjectOwner}},
		3: {ID: 3, Username: "root", Roles: []string{user.RoleAdministrator}},
	}
	ps := projects{10: {ID: 10, AuthorID: 1, Slug: "website"}}
	ms := messages{20: {ID: 20, ProjectID: 10, AuthorID: 1}}

	local, err := storage.NewLocal(storage.Config{BaseDir: t.TempDir(), BaseURL: "http://x/uploads"})
	require.NoError(t, err)
	store := &countingStore{Local: local}

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	nonces := nonceService.New("nonce-secret", 24*time.Hour, BlackListRepo.NewBlackListRepo(cli))

	files := fileService.New(pathService.New(us, ps), accessService.New(ps), store, &memRefs{data: map[string]fileInfo.References{}}, ms, us)

	f := &fixture{
		store:  store,
		nonces: nonces,
		files:  files,
		alice:  user.NewActor(us[1], "sid-alice"),
		bob:    user.NewActor(us[2], "sid-bob"),
		admin:  user.NewActor(us[3], "sid-root"),
	}
	f.auth = &fakeAuth{
		users: us,
		sessions: map[string]*user.Actor{
			"tok-alice": f.alice,
			"tok-bob":   f.bob,
			"tok-root":  f.admin,
		},
	}

	refs, err := files.UploadProjectFiles(ctx, 10, f.alice, []fileInfo.Upload{{
		Name: "brief.pdf",
		Size: 8,
		Mime: "application/pdf",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("%PDF-1.4")), nil },
	}})
	require.NoError(t, err)
	for k := range refs {
		f.key = k
	}

	h := httpHandler.New(f.auth, nonces, files, stubProjects{}, notifier.NewLogNotifier("admin@example.com", "http://x"), time.Hour, false)
	r := gin.New()
	r.Use(middleware.Session(f.auth, false))
	h.Routes(r)
	f.engine = r
	return f
}

func (f *fixture) token(t *testing.T, action string, a *user.Actor) string {
	t.Helper()
	tok, err := f.nonces.Create(action, a)
	require.NoError(t, err)
	return tok
}

func cookies(res gofight.HTTPResponse) string {
	return strings.Join(res.Header().Values("Set-Cookie"), "\n")
}

func deliverURL(q url.Values) string {
	return "/deliver?" + q.Encode()
}

func TestDeliver_HappyPath(t *testing.T) {
	f := setup(t)
	q := url.Values{
		"token":           {f.token(t, nonceService.ActionDownload, f.alice)},
		"filekey":         {f.key},
		"content_item_id": {"10"},
	}

	gofight.New().GET(deliverURL(q)).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Equal(t, "%PDF-1.4", res.Body.String())
			assert.Equal(t, "application/octet-stream", res.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="brief.pdf"`, res.Header().Get("Content-Disposition"))
			assert.Equal(t, "File Transfer", res.Header().Get("Content-Description"))
			assert.Equal(t, "Binary", res.Header().Get("Content-Transfer-Encoding"))
			assert.Equal(t, "must-revalidate", res.Header().Get("Cache-Control"))
			assert.Equal(t, "public", res.Header().Get("Pragma"))
			assert.Equal(t, "0", res.Header().Get("Expires"))
			assert.Equal(t, "8", res.Header().Get("Content-Length"))
		})
	assert.Equal(t, int32(1), f.store.opens.Load())
}

func TestDeliver_Admin(t *testing.T) {
	f := setup(t)
	q := url.Values{
		"token":           {f.token(t, nonceService.ActionDownload, f.admin)},
		"filekey":         {f.key},
		"content_item_id": {"10"},
	}

	gofight.New().GET(deliverURL(q)).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-root"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
		})
}

func TestDeliver_BadToken(t *testing.T) {
	f := setup(t)

	tests := map[string]string{
		"missing":        "",
		"garbage":        "not-a-token",
		"wrong action":   f.token(t, nonceService.ActionSignup, f.alice),
		"other session":  f.token(t, nonceService.ActionDownload, f.bob),
		"visitor issued": f.token(t, nonceService.ActionDownload, &user.Actor{SessionID: "visitor"}),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			q := url.Values{"filekey": {f.key}, "content_item_id": {"10"}}
			if token != "" {
				q.Set("token", token)
			}
			gofight.New().GET(deliverURL(q)).
				SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
				Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
					assert.Equal(t, http.StatusForbidden, res.Code)
					assert.Contains(t, res.Body.String(), "You are not allowed to do that")
				})
		})
	}
	assert.Zero(t, f.store.opens.Load())
}

func TestDeliver_OtherOwner(t *testing.T) {
	f := setup(t)
	q := url.Values{
		"token":           {f.token(t, nonceService.ActionDownload, f.bob)},
		"filekey":         {f.key},
		"content_item_id": {"10"},
	}

	gofight.New().GET(deliverURL(q)).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-bob"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, res.Code)
			assert.Contains(t, res.Body.String(), "You are not allowed to do that")
		})
	assert.Zero(t, f.store.opens.Load())
}

func TestDeliver_UnknownTarget(t *testing.T) {
	f := setup(t)

	for name, q := range map[string]url.Values{
		"no target":       {"filekey": {f.key}},
		"unknown project": {"filekey": {f.key}, "content_item_id": {"404"}},
		"unknown message": {"filekey": {f.key}, "message_id": {"404"}},
	} {
		t.Run(name, func(t *testing.T) {
			q.Set("token", f.token(t, nonceService.ActionDownload, f.alice))
			gofight.New().GET(deliverURL(q)).
				SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
				Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
					assert.Equal(t, http.StatusForbidden, res.Code)
				})
		})
	}
	assert.Zero(t, f.store.opens.Load())
}

func TestDeliver_MissingFile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	refs, err := f.files.Links(ctx, fileInfo.OwnerProject, 10)
	require.NoError(t, err)
	require.NoError(t, f.store.Remove(ctx, refs[f.key].Path))

	tests := map[string]struct {
		key      string
		referer  string
		location string
	}{
		"deleted file": {
			key:      f.key,
			referer:  "/projects/10?tab=files",
			location: "/projects/10?message=error-downloading&tab=files",
		},
		"unknown key": {
			key:      "deadbeef",
			location: "/?message=error-downloading",
		},
		"foreign referer": {
			key:      f.key,
			referer:  "http://evil.example/phish",
			location: "/?message=error-downloading",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			q := url.Values{
				"token":           {f.token(t, nonceService.ActionDownload, f.alice)},
				"filekey":         {tt.key},
				"content_item_id": {"10"},
			}
			req := gofight.New().GET(deliverURL(q)).
				SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"})
			if tt.referer != "" {
				req.SetHeader(gofight.H{"Referer": tt.referer})
			}
			req.Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
				assert.Equal(t, http.StatusFound, res.Code)
				assert.Equal(t, tt.location, res.Header().Get("Location"))
			})
		})
	}
}

func TestDeliver_MessageAttachment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	refs, err := f.files.UploadMessageFiles(ctx, 20, f.alice, []fileInfo.Upload{{
		Name: "notes.txt",
		Size: 5,
		Mime: "text/plain",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("hello")), nil },
	}})
	require.NoError(t, err)
	var key string
	for k := range refs {
		key = k
	}

	q := url.Values{
		"token":      {f.token(t, nonceService.ActionDownload, f.alice)},
		"filekey":    {key},
		"message_id": {"20"},
	}
	gofight.New().GET(deliverURL(q)).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Equal(t, "hello", res.Body.String())
			assert.Equal(t, `attachment; filename="notes.txt"`, res.Header().Get("Content-Disposition"))
		})
}

func TestDeliver_MessageWinsOverProject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	refs, err := f.files.UploadMessageFiles(ctx, 20, f.alice, []fileInfo.Upload{{
		Name: "notes.txt",
		Size: 5,
		Mime: "text/plain",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("hello")), nil },
	}})
	require.NoError(t, err)
	var key string
	for k := range refs {
		key = k
	}

	q := url.Values{
		"token":      {f.token(t, nonceService.ActionDownload, f.alice)},
		"filekey":    {key},
		"project_id": {"10"},
		"comment_id": {"20"},
	}
	gofight.New().GET(deliverURL(q)).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Equal(t, "hello", res.Body.String())
		})
}

func TestNonce(t *testing.T) {
	f := setup(t)

	gofight.New().GET("/nonce?action="+nonceService.ActionDownload).
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			require.Equal(t, http.StatusOK, res.Code)
			var body struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
			_, err := f.nonces.Verify(body.Token, nonceService.ActionDownload, f.alice)
			assert.NoError(t, err)
		})

	gofight.New().GET("/nonce?action=format-disk").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, res.Code)
		})
}

func TestNotice(t *testing.T) {
	f := setup(t)

	gofight.New().GET("/notice?message=login-success").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			var n validation.Notice
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &n))
			assert.True(t, n.Success)
		})

	gofight.New().GET("/notice?message="+validation.CodeSuccess).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			var n validation.Notice
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &n))
			assert.True(t, n.Success)
			assert.Equal(t, "Done successfully !", n.Message)
		})

	gofight.New().GET("/notice?message=nonsense").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			var n validation.Notice
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &n))
			assert.False(t, n.Success)
			assert.Equal(t, validation.NoticeFor(validation.CodeError).Message, n.Message)
		})
}

func TestSignup_InvalidNonce(t *testing.T) {
	f := setup(t)

	gofight.New().POST("/signup").
		SetForm(gofight.H{"username": "carol", "email": "carol@example.com", "password": "pw", "privacy": "on"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusFound, res.Code)
			assert.Equal(t, "/?message=invalid-nonce", res.Header().Get("Location"))
		})
	assert.NotContains(t, f.auth.users, uint32(50))
}

func TestSignup_Success(t *testing.T) {
	f := setup(t)
	visitor := &user.Actor{SessionID: "0b0e5f4e-8f6c-4c4b-9b1a-6b8a1f0a7f11"}
	token := f.token(t, nonceService.ActionSignup, visitor)

	gofight.New().POST("/signup").
		SetCookie(gofight.H{middleware.VisitorCookie: visitor.SessionID}).
		SetForm(gofight.H{"token": token, "username": "carol", "email": "carol@example.com", "password": "pw", "privacy": "on"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusFound, res.Code)
			assert.Equal(t, httpHandler.PageProject+"?message=signup-success", res.Header().Get("Location"))
			assert.Contains(t, cookies(res), middleware.SessionCookie+"=tok-carol")
		})
	assert.Contains(t, f.auth.users, uint32(50))

	// the same form token cannot create a second account
	gofight.New().POST("/signup").
		SetCookie(gofight.H{middleware.VisitorCookie: visitor.SessionID}).
		SetForm(gofight.H{"token": token, "username": "dave", "email": "dave@example.com", "password": "pw"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, "/?message=invalid-nonce", res.Header().Get("Location"))
		})
}

func TestSignup_FormValidation(t *testing.T) {
	f := setup(t)
	visitor := &user.Actor{SessionID: "0b0e5f4e-8f6c-4c4b-9b1a-6b8a1f0a7f11"}

	tests := map[string]struct {
		form     gofight.H
		location string
	}{
		"invalid email": {
			form:     gofight.H{"username": "carol", "email": "carol-at-example", "password": "pw", "privacy": "on"},
			location: "/?message=invalid-email",
		},
		"missing password": {
			form:     gofight.H{"username": "carol", "email": "carol-at-example", "privacy": "on"},
			location: "/?message=missing-field",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.form["token"] = f.token(t, nonceService.ActionSignup, visitor)
			gofight.New().POST("/signup").
				SetCookie(gofight.H{middleware.VisitorCookie: visitor.SessionID}).
				SetForm(tt.form).
				Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
					assert.Equal(t, http.StatusFound, res.Code)
					assert.Equal(t, tt.location, res.Header().Get("Location"))
				})
		})
	}
	assert.NotContains(t, f.auth.users, uint32(50))
}

func TestSubmitProject_MissingDescription(t *testing.T) {
	f := setup(t)

	gofight.New().POST("/projects").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		SetForm(gofight.H{"token": f.token(t, nonceService.ActionNewProject, f.alice), "title": "Website"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusFound, res.Code)
			assert.Equal(t, "/?message=missing-field", res.Header().Get("Location"))
		})

	gofight.New().POST("/projects").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		SetForm(gofight.H{"token": f.token(t, nonceService.ActionNewProject, f.alice), "title": "Website", "description": "d"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, httpHandler.PageDashboard+"?message=submission-success", res.Header().Get("Location"))
		})
}

func TestAddMessage_Success(t *testing.T) {
	f := setup(t)

	gofight.New().POST("/projects/10/messages").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		SetHeader(gofight.H{"Referer": "/projects/10"}).
		SetForm(gofight.H{"token": f.token(t, nonceService.ActionNewMessage, f.alice), "content": "hi"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusFound, res.Code)
			assert.Equal(t, "/projects/10?message="+validation.CodeSuccess, res.Header().Get("Location"))
		})
}

func TestLogin(t *testing.T) {
	f := setup(t)

	gofight.New().POST("/login").
		SetForm(gofight.H{"login": "alice", "password": "wrong"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusFound, res.Code)
			assert.Equal(t, "/login?message=login-failed", res.Header().Get("Location"))
		})

	gofight.New().POST("/login").
		SetForm(gofight.H{"login": "alice", "password": "secret"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, "/dashboard?message=login-success", res.Header().Get("Location"))
			assert.Contains(t, cookies(res), middleware.SessionCookie+"=tok-alice")
		})
}

func TestLogout(t *testing.T) {
	f := setup(t)

	gofight.New().POST("/logout").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, "/?message=logout-success", res.Header().Get("Location"))
			assert.Contains(t, cookies(res), middleware.SessionCookie+"=;")
		})
	assert.Equal(t, []string{"sid-alice"}, f.auth.loggedOut)
}

func TestAvatar(t *testing.T) {
	f := setup(t)
	_, err := f.files.UploadAvatar(context.Background(), f.auth.users[1], fileInfo.Upload{
		Name: "me.png",
		Size: 4,
		Mime: "image/png",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("\x89PNG")), nil },
	})
	require.NoError(t, err)

	gofight.New().GET("/avatar?user_id=1").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Equal(t, "image/png", res.Header().Get("Content-Type"))
			assert.Equal(t, "\x89PNG", res.Body.String())
		})

	gofight.New().GET("/avatar?user_id=2").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNotFound, res.Code)
		})

	gofight.New().GET("/avatar").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, res.Code)
		})
}

func TestPrivateRoutes(t *testing.T) {
	f := setup(t)

	gofight.New().GET("/dashboard").
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, res.Code)
		})

	gofight.New().GET("/projects/10").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-bob"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, res.Code)
		})

	gofight.New().GET("/projects/10").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
		})

	gofight.New().POST("/projects/10/status").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-alice"}).
		SetForm(gofight.H{"status": "in-progress"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, res.Code)
		})

	gofight.New().POST("/projects/10/status").
		SetCookie(gofight.H{middleware.SessionCookie: "tok-root"}).
		SetForm(gofight.H{"status": "in-progress"}).
		Run(f.engine, func(res gofight.HTTPResponse, _ gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, res.Code)
		})
}
