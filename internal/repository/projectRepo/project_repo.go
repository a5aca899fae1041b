package projectRepo

import (
	"context"
	"errors"
	"fmt"

	"project-submission/internal/errs"
	"project-submission/internal/model/project"
	"project-submission/pkg/database/postgres"

	"github.com/jackc/pgx/v5"
)

const projectColumns = `id, author_id, title, slug, description, type, timeframe, budget, status, created_at`

type ProjectRepository struct {
	db postgres.DB
}

func New(db postgres.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO projects (author_id, title, slug, description, type, timeframe, budget, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		p.AuthorID, p.Title, p.Slug, p.Description, p.Type, p.Timeframe, p.Budget, p.Status).
		Scan(&p.ID, &p.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uint32) (*project.Project, error) {
	var p project.Project
	err := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Description, &p.Type, &p.Timeframe, &p.Budget, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}

func (r *ProjectRepository) ListByAuthor(ctx context.Context, authorID uint32) ([]*project.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		var p project.Project
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Description, &p.Type, &p.Timeframe, &p.Budget, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uint32, status string) error {
	tag, err := r.db.Exec(ctx, "UPDATE projects SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
