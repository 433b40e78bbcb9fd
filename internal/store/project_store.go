package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mfeller/photocat/internal/domain"
)

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create persists a new project under a freshly generated id and returns the
// stored record.
func (s *ProjectStore) Create(ctx context.Context, name, description string, coverKey, coverURL *string) (*domain.Project, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, cover_key, cover_url) VALUES (?, ?, ?, ?, ?)
	`, id, name, description, coverKey, coverURL)
	if err != nil {
		return nil, &domain.StoreError{Op: "create project", Err: err}
	}

	return s.GetByID(ctx, id)
}

// GetByID returns the project or (nil, nil) if no such record exists.
func (s *ProjectStore) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	project := &domain.Project{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, cover_key, cover_url, photo_count, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&project.ID, &project.Name, &project.Description, &project.CoverKey,
		&project.CoverURL, &project.PhotoCount, &project.CreatedAt, &project.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get project", Err: err}
	}

	return project, nil
}

func (s *ProjectStore) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, cover_key, cover_url, photo_count, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, &domain.StoreError{Op: "list projects", Err: err}
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project := &domain.Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &project.CoverKey,
			&project.CoverURL, &project.PhotoCount, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, &domain.StoreError{Op: "scan project", Err: err}
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate projects", Err: err}
	}

	return projects, nil
}

// Update merges the non-nil patch fields into the stored project. Fields not
// present in the patch are left untouched.
func (s *ProjectStore) Update(ctx context.Context, id string, patch domain.ProjectPatch) error {
	if patch.IsZero() {
		// Nothing to merge; still report absence for a missing record.
		project, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if project == nil {
			return &domain.NotFoundError{Kind: "project", ID: id}
		}
		return nil
	}

	sets := []string{"updated_at = datetime('now')"}
	args := []any{}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.CoverKey != nil {
		sets = append(sets, "cover_key = ?")
		args = append(args, *patch.CoverKey)
	}
	if patch.CoverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *patch.CoverURL)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return &domain.StoreError{Op: "update project", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.StoreError{Op: "update project", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Kind: "project", ID: id}
	}

	return nil
}

// Delete removes the project record. Photo records referencing it are removed
// by the foreign-key cascade.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM projects WHERE id = ?
	`, id)
	if err != nil {
		return &domain.StoreError{Op: "delete project", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.StoreError{Op: "delete project", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Kind: "project", ID: id}
	}

	return nil
}
