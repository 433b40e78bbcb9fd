package web

import (
	"time"

	"github.com/mfeller/photocat/internal/domain"
)

type projectResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverPhotoURL *string   `json:"cover_photo_url"`
	PhotoCount    int       `json:"photo_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type locationJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type photoResponse struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	URL          string        `json:"url"`
	ThumbnailURL string        `json:"thumbnail_url"`
	MimeType     string        `json:"mime_type"`
	Location     *locationJSON `json:"location"`
	Cost         *float64      `json:"cost"`
	Observations string        `json:"observations"`
	Rating       int           `json:"rating"`
	TakenAt      time.Time     `json:"taken_at"`
	Tags         []string      `json:"tags"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	return projectResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		CoverPhotoURL: p.CoverURL,
		PhotoCount:    p.PhotoCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProjectResponses(projects []*domain.Project) []projectResponse {
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	return out
}

func toPhotoResponse(p *domain.Photo) photoResponse {
	resp := photoResponse{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		URL:          p.URL,
		ThumbnailURL: p.ThumbnailURL,
		MimeType:     p.MimeType,
		Cost:         p.Cost,
		Observations: p.Observations,
		Rating:       p.Rating,
		TakenAt:      p.TakenAt,
		Tags:         p.Tags,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if p.Location != nil {
		resp.Location = &locationJSON{
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
			Address:   p.Location.Address,
		}
	}
	return resp
}

func toPhotoResponses(photos []*domain.Photo) []photoResponse {
	out := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, toPhotoResponse(p))
	}
	return out
}
