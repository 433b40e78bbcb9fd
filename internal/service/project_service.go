package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfeller/photocat/internal/blobstore"
	"github.com/mfeller/photocat/internal/domain"
)

// projectRepository is the subset of store.ProjectStore the services require.
type projectRepository interface {
	Create(ctx context.Context, name, description string, coverKey, coverURL *string) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, id string, patch domain.ProjectPatch) error
	Delete(ctx context.Context, id string) error
}

// photoRepository is the subset of store.PhotoStore the services require.
type photoRepository interface {
	Create(ctx context.Context, projectID, storageKey, url, thumbnailURL, mimeType string, meta domain.PhotoMetadata) (*domain.Photo, error)
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	List(ctx context.Context) ([]*domain.Photo, error)
	ListByProjectID(ctx context.Context, projectID string) ([]*domain.Photo, error)
	ListStorageKeysByProjectID(ctx context.Context, projectID string) ([]string, error)
	Update(ctx context.Context, id string, patch domain.PhotoPatch) error
	Delete(ctx context.Context, id string) error
}

type ProjectService struct {
	projects projectRepository
	photos   photoRepository
	blobs    blobstore.Store
	logger   *slog.Logger
}

func NewProjectService(projects projectRepository, photos photoRepository, blobs blobstore.Store, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		photos:   photos,
		blobs:    blobs,
		logger:   logger,
	}
}

// CreateProject validates the name before touching any store, uploads the
// optional cover image, then creates the record with the cover URL set.
func (s *ProjectService) CreateProject(ctx context.Context, name, description string, coverData []byte, coverMIME string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &domain.ValidationError{Field: "name", Msg: "project name is required"}
	}

	var coverKey, coverURL *string
	if coverData != nil {
		key, err := s.blobs.Put(ctx, coverMIME, bytes.NewReader(coverData))
		if err != nil {
			return nil, fmt.Errorf("failed to upload cover image: %w", err)
		}
		url := s.blobs.URL(key)
		coverKey, coverURL = &key, &url
		s.logger.Debug("cover image uploaded", "storage_key", key)
	}

	project, err := s.projects.Create(ctx, name, description, coverKey, coverURL)
	if err != nil {
		if coverKey != nil {
			if derr := s.blobs.Delete(ctx, *coverKey); derr != nil {
				s.logger.Error("failed to delete cover after create error", "storage_key", *coverKey, "error", derr)
			}
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created", "project_id", project.ID, "name", project.Name)
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &domain.NotFoundError{Kind: "project", ID: projectID}
	}
	return project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

// UpdateProject merges the patch into the project. A new cover image replaces
// the old one; the previous cover blob is removed best-effort afterwards.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID string, patch domain.ProjectPatch, coverData []byte, coverMIME string) (*domain.Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Msg: "project name is required"}
	}

	existing, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if coverData != nil {
		key, err := s.blobs.Put(ctx, coverMIME, bytes.NewReader(coverData))
		if err != nil {
			return nil, fmt.Errorf("failed to upload cover image: %w", err)
		}
		url := s.blobs.URL(key)
		patch.CoverKey, patch.CoverURL = &key, &url
	}

	if err := s.projects.Update(ctx, projectID, patch); err != nil {
		if patch.CoverKey != nil {
			if derr := s.blobs.Delete(ctx, *patch.CoverKey); derr != nil {
				s.logger.Error("failed to delete cover after update error", "storage_key", *patch.CoverKey, "error", derr)
			}
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if coverData != nil && existing.CoverKey != nil {
		if err := s.blobs.Delete(ctx, *existing.CoverKey); err != nil {
			s.logger.Error("failed to delete replaced cover", "storage_key", *existing.CoverKey, "error", err)
		}
	}

	return s.GetProject(ctx, projectID)
}

// DeleteProject removes the project and cascades to its photos: the record is
// deleted first (the foreign key removes the photo rows and tags), then the
// photo and cover blobs are removed best-effort. A failed blob delete leaks
// only a blob and is logged, never surfaced.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID string) error {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	keys, err := s.photos.ListStorageKeysByProjectID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list photo blobs: %w", err)
	}
	if project.CoverKey != nil {
		keys = append(keys, *project.CoverKey)
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete blob for removed project",
				"project_id", projectID, "storage_key", key, "error", err)
		}
	}

	s.logger.Info("project deleted", "project_id", projectID, "blobs_removed", len(keys))
	return nil
}
