package fileRepo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"project-submission/internal/errs"
	"project-submission/internal/model/fileInfo"
	"project-submission/pkg/database/postgres"

	"github.com/jackc/pgx/v5"
)

type FileRepository struct {
	db postgres.DB
}

func New(db postgres.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Append stores refs against the owner. Existing keys are left untouched.
func (r *FileRepository) Append(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32, refs fileInfo.References) error {
	if len(refs) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(refs)) {
		d := refs[key]
		_, err = tx.Exec(ctx,
			`INSERT INTO file_references (owner_kind, owner_id, file_key, path, name, mime, url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (owner_kind, owner_id, file_key) DO NOTHING`,
			string(kind), ownerID, key, d.Path, d.Name, d.Mime, d.URL)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("append file %s: %w", key, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *FileRepository) Get(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32, key string) (*fileInfo.Descriptor, error) {
	var d fileInfo.Descriptor
	err := r.db.QueryRow(ctx,
		`SELECT file_key, path, name, mime, url
		 FROM file_references
		 WHERE owner_kind = $1 AND owner_id = $2 AND file_key = $3`,
		string(kind), ownerID, key).
		Scan(&d.Key, &d.Path, &d.Name, &d.Mime, &d.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *FileRepository) List(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32) (fileInfo.References, error) {
	rows, err := r.db.Query(ctx,
		`SELECT file_key, path, name, mime, url
		 FROM file_references
		 WHERE owner_kind = $1 AND owner_id = $2
		 ORDER BY created_at`,
		string(kind), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := fileInfo.References{}
	for rows.Next() {
		var d fileInfo.Descriptor
		if err := rows.Scan(&d.Key, &d.Path, &d.Name, &d.Mime, &d.URL); err != nil {
			return nil, err
		}
		refs[d.Key] = d
	}
	return refs, rows.Err()
}
