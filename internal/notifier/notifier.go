// Package notifier tells the site administrator and project owners about new activity.
package notifier

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/pkg/logger"
)

type Notifier interface {
	NewUser(ctx context.Context, u *user.User)
	NewProject(ctx context.Context, p *project.Project)
	NewMessage(ctx context.Context, m *project.Message, projectAuthor *user.User)
}

// Notice is one outgoing notification.
type Notice struct {
	To      string
	Subject string
	Body    string
}

// LogNotifier writes notices to the structured log. Delivery by mail is left
// to whatever ships the logs.
type LogNotifier struct {
	adminEmail string
	siteURL    string
}

func NewLogNotifier(adminEmail, siteURL string) *LogNotifier {
	return &LogNotifier{adminEmail: adminEmail, siteURL: siteURL}
}

func (n *LogNotifier) NewUser(ctx context.Context, u *user.User) {
	n.send(ctx, Notice{
		To:      n.adminEmail,
		Subject: "New user registration",
		Body:    fmt.Sprintf("New user registration on your site:\n\nUsername: %s\nEmail: %s", u.Username, u.Email),
	})
}

func (n *LogNotifier) NewProject(ctx context.Context, p *project.Project) {
	n.send(ctx, Notice{
		To:      n.adminEmail,
		Subject: "New project submitted",
		Body:    fmt.Sprintf("A new project has been submitted.\n\nView project : %s", n.projectURL(p.ID)),
	})
}

func (n *LogNotifier) NewMessage(ctx context.Context, m *project.Message, projectAuthor *user.User) {
	n.send(ctx, n.messageNotice(m, projectAuthor))
}

// messageNotice goes to the administrator, or to the project author when the
// administrator wrote the message.
func (n *LogNotifier) messageNotice(m *project.Message, projectAuthor *user.User) Notice {
	to := n.adminEmail
	if m.AuthorEmail == n.adminEmail && projectAuthor != nil && projectAuthor.Email != "" {
		to = projectAuthor.Email
	}
	return Notice{
		To:      to,
		Subject: "New comment submitted",
		Body:    fmt.Sprintf("%s wrote:\n\n%s\n\nView discussion : %s", m.AuthorEmail, m.Content, n.projectURL(m.ProjectID)),
	}
}

func (n *LogNotifier) projectURL(id uint32) string {
	return n.siteURL + "/projects/" + strconv.FormatUint(uint64(id), 10)
}

func (n *LogNotifier) send(ctx context.Context, notice Notice) {
	logger.GetLogger(ctx).Info("notification",
		zap.String("to", notice.To),
		zap.String("subject", notice.Subject),
		zap.String("body", notice.Body),
	)
}
