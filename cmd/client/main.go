package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"project-submission/internal/service/projectService"
	"project-submission/pkg/logger"
)

// Config drives the client from the environment.
type Config struct {
	BaseURL   string        `env:"CLIENT_BASE_URL" env-default:"http://localhost:8080"`
	Login     string        `env:"CLIENT_LOGIN" env-required:"true"`
	Password  string        `env:"CLIENT_PASSWORD" env-required:"true"`
	ProjectID uint32        `env:"CLIENT_PROJECT_ID"`
	OutDir    string        `env:"CLIENT_OUT_DIR" env-default:"./downloads"`
	Timeout   time.Duration `env:"CLIENT_TIMEOUT" env-default:"30s"`
	Log       logger.Config
}

type client struct {
	base *url.URL
	http *http.Client
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read client config: %v\n", err)
		os.Exit(1)
	}
	ctx, err := logger.New(context.Background(), cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)
	defer func() { _ = log.Sync() }()

	c, err := newClient(cfg)
	if err != nil {
		log.Fatal("invalid base url", zap.Error(err))
	}

	if err := c.login(ctx, cfg.Login, cfg.Password); err != nil {
		log.Fatal("login failed", zap.Error(err))
	}
	defer func() {
		if err := c.logout(ctx); err != nil {
			log.Warn("logout failed", zap.Error(err))
		}
	}()

	var dashboard struct {
		Projects []projectService.Summary `json:"projects"`
	}
	if err := c.getJSON(ctx, "/dashboard", &dashboard); err != nil {
		log.Fatal("failed to load dashboard", zap.Error(err))
	}
	for _, p := range dashboard.Projects {
		log.Info("project", zap.Uint32("id", p.ID), zap.String("title", p.Title), zap.String("status", p.Status), zap.String("latest", p.LatestMessage))
	}

	projectID := cfg.ProjectID
	if projectID == 0 {
		if len(dashboard.Projects) == 0 {
			log.Info("no projects to download")
			return
		}
		projectID = dashboard.Projects[0].ID
	}

	var details projectService.Details
	if err := c.getJSON(ctx, "/projects/"+strconv.FormatUint(uint64(projectID), 10), &details); err != nil {
		log.Fatal("failed to load project", zap.Uint32("project_id", projectID), zap.Error(err))
	}

	links := details.Files
	for _, m := range details.Messages {
		links = append(links, m.Files...)
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		log.Fatal("failed to create output dir", zap.Error(err))
	}
	for _, l := range links {
		n, err := c.download(ctx, l, cfg.OutDir)
		if err != nil {
			log.Error("download failed", zap.String("file", l.Name), zap.Error(err))
			continue
		}
		log.Info("downloaded", zap.String("file", l.Name), zap.String("size", humanize.Bytes(uint64(n))))
	}
}

func newClient(cfg Config) (*client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &client{
		base: base,
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (c *client) url(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return c.base.String()
	}
	return c.base.ResolveReference(u).String()
}

// message returns the notice code the server put in a redirect.
func message(res *http.Response) string {
	loc, err := res.Location()
	if err != nil {
		return ""
	}
	return loc.Query().Get("message")
}

func (c *client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

func (c *client) login(ctx context.Context, login, password string) error {
	res, err := c.postForm(ctx, "/login", url.Values{"login": {login}, "password": {password}})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if code := message(res); code != "login-success" {
		return fmt.Errorf("server answered %q", code)
	}
	return nil
}

func (c *client) logout(ctx context.Context) error {
	res, err := c.postForm(ctx, "/logout", url.Values{})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *client) download(ctx context.Context, l projectService.Link, dir string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(l.URL), nil)
	if err != nil {
		return 0, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusFound:
		return 0, fmt.Errorf("server answered %q", message(res))
	default:
		return 0, fmt.Errorf("unexpected status %s", res.Status)
	}

	f, err := os.Create(filepath.Join(dir, filepath.Base(l.Name)))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, res.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
