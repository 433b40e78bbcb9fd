package domain

import "time"

// Project is a user-defined photo collection.
type Project struct {
	ID          string
	Name        string
	Description string
	CoverKey    *string
	CoverURL    *string
	PhotoCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Photo is one catalogued image. ProjectID is set at creation and never changes.
type Photo struct {
	ID           string
	ProjectID    string
	StorageKey   string
	URL          string
	ThumbnailURL string
	MimeType     string
	Location     *Location
	Cost         *float64
	Observations string
	Rating       int
	TakenAt      time.Time
	Tags         []string
}

type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// MaxRating bounds Photo.Rating; 0 means unrated.
const MaxRating = 5

// PhotoMetadata carries the caller-supplied fields of a new photo.
type PhotoMetadata struct {
	Location     *Location
	Cost         *float64
	Observations string
	Rating       int
	Tags         []string
}

// ProjectPatch is a partial update of a project. Nil fields are left untouched.
type ProjectPatch struct {
	Name        *string
	Description *string
	CoverKey    *string
	CoverURL    *string
}

// PhotoPatch is a partial update of a photo's mutable metadata. Nil fields are
// left untouched; a non-nil Tags replaces the whole tag set.
type PhotoPatch struct {
	Location     *Location
	Cost         *float64
	Observations *string
	Rating       *int
	Tags         *[]string
}

// IsZero reports whether the patch would change nothing.
func (p PhotoPatch) IsZero() bool {
	return p.Location == nil && p.Cost == nil && p.Observations == nil &&
		p.Rating == nil && p.Tags == nil
}

func (p ProjectPatch) IsZero() bool {
	return p.Name == nil && p.Description == nil && p.CoverKey == nil && p.CoverURL == nil
}
