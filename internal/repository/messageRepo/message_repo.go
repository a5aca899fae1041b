package messageRepo

import (
	"context"
	"errors"
	"fmt"

	"project-submission/internal/errs"
	"project-submission/internal/model/project"
	"project-submission/pkg/database/postgres"

	"github.com/jackc/pgx/v5"
)

type MessageRepository struct {
	db postgres.DB
}

func New(db postgres.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *project.Message) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO messages (project_id, author_id, author_email, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.ProjectID, m.AuthorID, m.AuthorEmail, m.Content).
		Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepository) GetByID(ctx context.Context, id uint32) (*project.Message, error) {
	var m project.Message
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, author_id, author_email, content, created_at
		 FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.AuthorEmail, &m.Content, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &m, nil
}

// ListByProject returns the discussion newest first.
func (r *MessageRepository) ListByProject(ctx context.Context, projectID uint32) ([]*project.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, author_id, author_email, content, created_at
		 FROM messages WHERE project_id = $1
		 ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*project.Message
	for rows.Next() {
		var m project.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.AuthorEmail, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
