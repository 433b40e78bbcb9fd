package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mfeller/photocat/internal/domain"
)

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse form"})
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image file required"})
		return
	}
	defer closeWithLog(file, "image upload", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "project_id", projectID, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read file"})
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported image format"})
		return
	}

	meta, err := parsePhotoMetadata(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	photo, err := s.photos.UploadPhoto(r.Context(), projectID, imageData, mimeType, meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toPhotoResponse(photo))
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.photos.ListPhotos(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPhotoResponses(photos))
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.photos.GetPhoto(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPhotoResponse(photo))
}

type photoPatchRequest struct {
	Location     *locationJSON `json:"location"`
	Cost         *float64      `json:"cost"`
	Observations *string       `json:"observations"`
	Rating       *int          `json:"rating"`
	Tags         *[]string     `json:"tags"`
}

func (s *Server) handleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req photoPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	patch := domain.PhotoPatch{
		Cost:         req.Cost,
		Observations: req.Observations,
		Rating:       req.Rating,
		Tags:         req.Tags,
	}
	if req.Location != nil {
		patch.Location = &domain.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Address:   req.Location.Address,
		}
	}

	photo, err := s.photos.UpdateMetadata(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toPhotoResponse(photo))
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.photos.DeletePhoto(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.photos.SuggestTags(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

// parsePhotoMetadata reads the optional metadata fields of a photo upload
// form. Latitude and longitude must both be given for a location to be set.
func parsePhotoMetadata(r *http.Request) (domain.PhotoMetadata, error) {
	meta := domain.PhotoMetadata{Observations: r.FormValue("observations")}

	if v := r.FormValue("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil {
			return meta, &domain.ValidationError{Field: "rating", Msg: "must be an integer"}
		}
		meta.Rating = rating
	}

	if v := r.FormValue("cost"); v != "" {
		cost, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return meta, &domain.ValidationError{Field: "cost", Msg: "must be a number"}
		}
		meta.Cost = &cost
	}

	lat, lng := r.FormValue("latitude"), r.FormValue("longitude")
	switch {
	case lat != "" && lng != "":
		latitude, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return meta, &domain.ValidationError{Field: "latitude", Msg: "must be a number"}
		}
		longitude, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return meta, &domain.ValidationError{Field: "longitude", Msg: "must be a number"}
		}
		meta.Location = &domain.Location{
			Latitude:  latitude,
			Longitude: longitude,
			Address:   r.FormValue("address"),
		}
	case lat != "" || lng != "":
		return meta, &domain.ValidationError{Field: "location", Msg: "latitude and longitude must be given together"}
	}

	if v := r.FormValue("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				meta.Tags = append(meta.Tags, tag)
			}
		}
	}

	return meta, nil
}
