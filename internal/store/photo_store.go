package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mfeller/photocat/internal/domain"
)

type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

// Create persists a new photo under a freshly generated id and increments the
// owning project's photo_count in the same transaction.
func (s *PhotoStore) Create(ctx context.Context, projectID, storageKey, url, thumbnailURL, mimeType string, meta domain.PhotoMetadata) (*domain.Photo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.StoreError{Op: "begin create photo", Err: err}
	}
	defer rollback(tx)

	id := uuid.NewString()

	var lat, lng *float64
	var addr *string
	if meta.Location != nil {
		lat = &meta.Location.Latitude
		lng = &meta.Location.Longitude
		addr = &meta.Location.Address
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO photos (id, project_id, storage_key, url, thumbnail_url, mime_type,
			latitude, longitude, address, cost, observations, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, projectID, storageKey, url, thumbnailURL, mimeType,
		lat, lng, addr, meta.Cost, meta.Observations, meta.Rating)
	if err != nil {
		return nil, &domain.StoreError{Op: "create photo", Err: err}
	}

	if err := insertTags(ctx, tx, id, meta.Tags); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE projects SET photo_count = photo_count + 1, updated_at = datetime('now') WHERE id = ?
	`, projectID)
	if err != nil {
		return nil, &domain.StoreError{Op: "increment photo count", Err: err}
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, &domain.StoreError{Op: "increment photo count", Err: err}
	} else if n == 0 {
		return nil, &domain.NotFoundError{Kind: "project", ID: projectID}
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.StoreError{Op: "commit create photo", Err: err}
	}

	return s.GetByID(ctx, id)
}

// GetByID returns the photo with its tags, or (nil, nil) if no such record exists.
func (s *PhotoStore) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	photo, err := scanPhoto(s.db.QueryRowContext(ctx, photoSelect+" WHERE id = ?", id))
	if err != nil || photo == nil {
		return nil, err
	}

	photo.Tags, err = s.tagsFor(ctx, photo.ID)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// List returns the full photo collection.
func (s *PhotoStore) List(ctx context.Context) ([]*domain.Photo, error) {
	return s.list(ctx, photoSelect+" ORDER BY taken_at DESC")
}

// ListByProjectID returns exactly the photos whose project_id matches.
func (s *PhotoStore) ListByProjectID(ctx context.Context, projectID string) ([]*domain.Photo, error) {
	return s.list(ctx, photoSelect+" WHERE project_id = ? ORDER BY taken_at DESC", projectID)
}

// ListStorageKeysByProjectID returns the storage keys of a project's photos,
// used to clean up blobs after a cascading delete.
func (s *PhotoStore) ListStorageKeysByProjectID(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_key FROM photos WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, &domain.StoreError{Op: "list storage keys", Err: err}
	}
	defer closeRows(rows)

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &domain.StoreError{Op: "scan storage key", Err: err}
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate storage keys", Err: err}
	}

	return keys, nil
}

// Update merges the non-nil patch fields into the stored photo. A non-nil Tags
// replaces the whole tag set; everything else is left untouched.
func (s *PhotoStore) Update(ctx context.Context, id string, patch domain.PhotoPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "begin update photo", Err: err}
	}
	defer rollback(tx)

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM photos WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return &domain.StoreError{Op: "update photo", Err: err}
	}
	if !exists {
		return &domain.NotFoundError{Kind: "photo", ID: id}
	}

	var sets []string
	var args []any
	if patch.Location != nil {
		sets = append(sets, "latitude = ?", "longitude = ?", "address = ?")
		args = append(args, patch.Location.Latitude, patch.Location.Longitude, patch.Location.Address)
	}
	if patch.Cost != nil {
		sets = append(sets, "cost = ?")
		args = append(args, *patch.Cost)
	}
	if patch.Observations != nil {
		sets = append(sets, "observations = ?")
		args = append(args, *patch.Observations)
	}
	if patch.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *patch.Rating)
	}

	if len(sets) > 0 {
		args = append(args, id)
		_, err := tx.ExecContext(ctx,
			"UPDATE photos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return &domain.StoreError{Op: "update photo", Err: err}
		}
	}

	if patch.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM photo_tags WHERE photo_id = ?`, id); err != nil {
			return &domain.StoreError{Op: "replace tags", Err: err}
		}
		if err := insertTags(ctx, tx, id, *patch.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "commit update photo", Err: err}
	}
	return nil
}

// Delete removes the photo record and decrements the owning project's
// photo_count in the same transaction.
func (s *PhotoStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "begin delete photo", Err: err}
	}
	defer rollback(tx)

	var projectID string
	err = tx.QueryRowContext(ctx, `SELECT project_id FROM photos WHERE id = ?`, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Kind: "photo", ID: id}
	}
	if err != nil {
		return &domain.StoreError{Op: "delete photo", Err: err}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
		return &domain.StoreError{Op: "delete photo", Err: err}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE projects SET photo_count = photo_count - 1, updated_at = datetime('now')
		WHERE id = ? AND photo_count > 0
	`, projectID)
	if err != nil {
		return &domain.StoreError{Op: "decrement photo count", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "commit delete photo", Err: err}
	}
	return nil
}

const photoSelect = `
	SELECT id, project_id, storage_key, url, thumbnail_url, mime_type,
		latitude, longitude, address, cost, observations, rating, taken_at
	FROM photos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*domain.Photo, error) {
	photo := &domain.Photo{}
	var lat, lng, cost sql.NullFloat64
	var addr sql.NullString

	err := row.Scan(&photo.ID, &photo.ProjectID, &photo.StorageKey, &photo.URL,
		&photo.ThumbnailURL, &photo.MimeType, &lat, &lng, &addr, &cost,
		&photo.Observations, &photo.Rating, &photo.TakenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "scan photo", Err: err}
	}

	if lat.Valid && lng.Valid {
		photo.Location = &domain.Location{
			Latitude:  lat.Float64,
			Longitude: lng.Float64,
			Address:   addr.String,
		}
	}
	if cost.Valid {
		photo.Cost = &cost.Float64
	}

	return photo, nil
}

func (s *PhotoStore) list(ctx context.Context, query string, args ...any) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "list photos", Err: err}
	}
	defer closeRows(rows)

	var photos []*domain.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate photos", Err: err}
	}

	for _, photo := range photos {
		photo.Tags, err = s.tagsFor(ctx, photo.ID)
		if err != nil {
			return nil, err
		}
	}

	return photos, nil
}

func (s *PhotoStore) tagsFor(ctx context.Context, photoID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag FROM photo_tags WHERE photo_id = ? ORDER BY tag ASC
	`, photoID)
	if err != nil {
		return nil, &domain.StoreError{Op: "list tags", Err: err}
	}
	defer closeRows(rows)

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, &domain.StoreError{Op: "scan tag", Err: err}
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate tags", Err: err}
	}

	return tags, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, photoID string, tags []string) error {
	for _, tag := range tags {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO photo_tags (photo_id, tag) VALUES (?, ?)
		`, photoID, tag)
		if err != nil {
			return &domain.StoreError{Op: "insert tag", Err: err}
		}
	}
	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("failed to roll back transaction", "error", err)
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
