package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mfeller/photocat/internal/domain"
)

const maxProjectNameLen = 200

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProjectResponses(projects))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse form"})
		return
	}

	name := r.FormValue("name")
	if len(name) > maxProjectNameLen {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project name too long"})
		return
	}

	coverData, coverMIME, ok := s.readOptionalImage(w, r, "cover")
	if !ok {
		return
	}

	project, err := s.projects.CreateProject(r.Context(), name, r.FormValue("description"), coverData, coverMIME)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.projects.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse form"})
		return
	}

	// Only fields present in the form become part of the patch; absent fields
	// are left untouched (merge semantics).
	var patch domain.ProjectPatch
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		if len(values[0]) > maxProjectNameLen {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project name too long"})
			return
		}
		patch.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
		patch.Description = &values[0]
	}

	coverData, coverMIME, ok := s.readOptionalImage(w, r, "cover")
	if !ok {
		return
	}

	project, err := s.projects.UpdateProject(r.Context(), r.PathValue("id"), patch, coverData, coverMIME)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readOptionalImage reads and sniffs the named multipart file field. It
// returns (nil, "", true) when the field is absent. On a bad upload it writes
// the error response itself and returns ok=false.
func (s *Server) readOptionalImage(w http.ResponseWriter, r *http.Request, field string) (data []byte, mime string, ok bool) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", true
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": field + " file invalid"})
		return nil, "", false
	}
	defer closeWithLog(file, field+" upload", s.logger)

	data, err = io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "field", field, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read file"})
		return nil, "", false
	}

	mime, detected := allowedImageMIME(data)
	if !detected {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported image format"})
		return nil, "", false
	}

	return data, mime, true
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
