package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfeller/photocat/internal/blobstore"
	"github.com/mfeller/photocat/internal/domain"
	"github.com/mfeller/photocat/internal/tagger"
)

// ErrTaggerDisabled is returned by SuggestTags when no vision backend is configured.
var ErrTaggerDisabled = errors.New("tag suggestions are not configured")

type PhotoService struct {
	projects  projectRepository
	photos    photoRepository
	blobs     blobstore.Store
	suggester tagger.Suggester
	logger    *slog.Logger
}

// NewPhotoService constructs a PhotoService. suggester may be nil, which
// disables SuggestTags.
func NewPhotoService(projects projectRepository, photos photoRepository, blobs blobstore.Store, suggester tagger.Suggester, logger *slog.Logger) *PhotoService {
	return &PhotoService{
		projects:  projects,
		photos:    photos,
		blobs:     blobs,
		suggester: suggester,
		logger:    logger,
	}
}

// UploadPhoto stores the image bytes, then creates the catalogue record
// referencing them. If the record write fails the stored blob is removed again
// so no orphaned blob is left behind.
func (s *PhotoService) UploadPhoto(ctx context.Context, projectID string, imageData []byte, mimeType string, meta domain.PhotoMetadata) (*domain.Photo, error) {
	s.logger.Info("upload photo started", "project_id", projectID, "mime_type", mimeType, "bytes", len(imageData))

	if err := validateRating(meta.Rating); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, &domain.NotFoundError{Kind: "project", ID: projectID}
	}

	storageKey, err := s.blobs.Put(ctx, mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	s.logger.Debug("image stored", "project_id", projectID, "storage_key", storageKey)

	// No thumbnailing pipeline; the thumbnail URL points at the full image.
	url := s.blobs.URL(storageKey)
	photo, err := s.photos.Create(ctx, projectID, storageKey, url, url, mimeType, meta)
	if err != nil {
		if derr := s.blobs.Delete(ctx, storageKey); derr != nil {
			s.logger.Error("failed to delete blob after record error", "storage_key", storageKey, "error", derr)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	s.logger.Info("upload photo complete", "project_id", projectID, "photo_id", photo.ID)
	return photo, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, photoID string) (*domain.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, &domain.NotFoundError{Kind: "photo", ID: photoID}
	}
	return photo, nil
}

// ListPhotos returns the photos of one project, or the full collection when
// projectID is empty.
func (s *PhotoService) ListPhotos(ctx context.Context, projectID string) ([]*domain.Photo, error) {
	if projectID == "" {
		return s.photos.List(ctx)
	}
	return s.photos.ListByProjectID(ctx, projectID)
}

// UpdateMetadata merges the patch into the photo; only the fields present in
// the patch change.
func (s *PhotoService) UpdateMetadata(ctx context.Context, photoID string, patch domain.PhotoPatch) (*domain.Photo, error) {
	if patch.Rating != nil {
		if err := validateRating(*patch.Rating); err != nil {
			return nil, err
		}
	}

	if err := s.photos.Update(ctx, photoID, patch); err != nil {
		return nil, err
	}
	return s.GetPhoto(ctx, photoID)
}

// DeletePhoto removes the catalogue record first and the blob second, so a
// failure between the two leaks a blob rather than leaving a record pointing
// at a missing image. The blob failure is logged, not surfaced.
func (s *PhotoService) DeletePhoto(ctx context.Context, photoID string) error {
	photo, err := s.GetPhoto(ctx, photoID)
	if err != nil {
		return err
	}

	if err := s.photos.Delete(ctx, photoID); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, photo.StorageKey); err != nil {
		s.logger.Error("failed to delete blob for removed photo",
			"photo_id", photoID, "storage_key", photo.StorageKey, "error", err)
	}

	s.logger.Info("photo deleted", "photo_id", photoID, "project_id", photo.ProjectID)
	return nil
}

// SuggestTags asks the configured vision backend for catalogue tags for the
// photo. Suggestions are returned, not applied.
func (s *PhotoService) SuggestTags(ctx context.Context, photoID string) ([]string, error) {
	if s.suggester == nil {
		return nil, ErrTaggerDisabled
	}

	photo, err := s.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	reader, mimeType, err := s.blobs.Get(ctx, photo.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Error("failed to close blob reader", "storage_key", photo.StorageKey, "error", err)
		}
	}()

	tags, err := s.suggester.Suggest(ctx, reader, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}

	s.logger.Info("tags suggested", "photo_id", photoID, "count", len(tags))
	return tags, nil
}

func validateRating(rating int) error {
	if rating < 0 || rating > domain.MaxRating {
		return &domain.ValidationError{
			Field: "rating",
			Msg:   fmt.Sprintf("must be between 0 and %d", domain.MaxRating),
		}
	}
	return nil
}
