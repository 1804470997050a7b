package server

import (
	"net/http"
	"strconv"

	"github.com/meltforce/reptrack/internal/models"
)

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	folders, err := s.db.ListFolders(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	name := r.PostFormValue("name")
	if name == "" {
		s.writeError(w, &models.ValidationError{Field: "name", Reason: "must not be empty"})
		return
	}

	id, err := s.db.CreateFolder(r.Context(), userID, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"folder_id": id})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.ownedFolder(w, r, folderID, userID); !ok {
		return
	}

	if err := s.db.DeleteFolder(r.Context(), folderID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.ownedFolder(w, r, folderID, userID); !ok {
		return
	}
	name := r.PostFormValue("name")
	if name == "" {
		s.writeError(w, &models.ValidationError{Field: "name", Reason: "must not be empty"})
		return
	}

	id, err := s.db.CreateTemplate(r.Context(), folderID, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"template_id": id})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	t, ok := s.ownedTemplate(w, r, templateID, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.ownedTemplate(w, r, templateID, userID); !ok {
		return
	}

	if err := s.db.DeleteTemplate(r.Context(), templateID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddTemplateExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.ownedTemplate(w, r, templateID, userID); !ok {
		return
	}

	line, err := parseTemplateLine(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	line.TemplateID = templateID

	id, err := s.db.AddTemplateExercise(r.Context(), line)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"line_id": id})
}

func (s *Server) handleUpdateTemplateExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := idParam(w, r, "lineID")
	if !ok {
		return
	}
	t, ok := s.ownedTemplate(w, r, templateID, userID)
	if !ok {
		return
	}
	if !templateHasLine(t, lineID) {
		s.writeError(w, &models.NotFoundError{Resource: "template line", ID: lineID})
		return
	}

	line, err := parseTemplateLine(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	line.ID = lineID
	line.TemplateID = templateID

	if err := s.db.UpdateTemplateExercise(r.Context(), line); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteTemplateExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := idParam(w, r, "lineID")
	if !ok {
		return
	}
	t, ok := s.ownedTemplate(w, r, templateID, userID)
	if !ok {
		return
	}
	if !templateHasLine(t, lineID) {
		s.writeError(w, &models.NotFoundError{Resource: "template line", ID: lineID})
		return
	}

	if err := s.db.DeleteTemplateExercise(r.Context(), templateID, lineID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCSVImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	result, err := s.csv.Ingest(r.Context(), r.Body, userID)
	if err != nil {
		s.log.Error("csv import failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := s.db.QueryImportLogs(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) ownedFolder(w http.ResponseWriter, r *http.Request, folderID, userID int64) (*models.Folder, bool) {
	f, err := s.db.GetFolder(r.Context(), folderID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if f.UserID != userID {
		s.writeError(w, &models.AccessDeniedError{Resource: "folder", ID: folderID, UserID: userID})
		return nil, false
	}
	return f, true
}

// templateHasLine reports whether a prescription line belongs to the given
// template. Passing the ownership check on one template must not grant
// access to another template's lines.
func templateHasLine(t *models.Template, lineID int64) bool {
	for _, line := range t.Lines {
		if line.ID == lineID {
			return true
		}
	}
	return false
}

func (s *Server) ownedTemplate(w http.ResponseWriter, r *http.Request, templateID, userID int64) (*models.Template, bool) {
	t, err := s.db.GetTemplate(r.Context(), templateID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if t.UserID != userID {
		s.writeError(w, &models.AccessDeniedError{Resource: "template", ID: templateID, UserID: userID})
		return nil, false
	}
	return t, true
}

// parseTemplateLine reads a prescription line from form values. Sets
// defaults to 1; the optional fields stay nil when absent.
func parseTemplateLine(r *http.Request) (models.TemplateExercise, error) {
	var line models.TemplateExercise
	if err := r.ParseForm(); err != nil {
		return line, &models.ValidationError{Field: "form", Reason: "invalid form data"}
	}

	exerciseID, err := strconv.ParseInt(r.PostForm.Get("exercise_id"), 10, 64)
	if err != nil {
		return line, &models.ValidationError{Field: "exercise_id", Value: r.PostForm.Get("exercise_id"), Reason: "must be an integer"}
	}
	line.ExerciseID = exerciseID

	line.Sets = 1
	if v := r.PostForm.Get("sets"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return line, &models.ValidationError{Field: "sets", Value: v, Reason: "must be a positive integer"}
		}
		line.Sets = n
	}
	if v := r.PostForm.Get("reps"); v != "" {
		line.Reps = &v
	}
	if v := r.PostForm.Get("weight"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return line, &models.ValidationError{Field: "weight", Value: v, Reason: "must be a non-negative number"}
		}
		line.Weight = &f
	}
	if v := r.PostForm.Get("rpe"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 || f > 10 {
			return line, &models.ValidationError{Field: "rpe", Value: v, Reason: "must be between 1 and 10"}
		}
		line.RPE = &f
	}
	if v := r.PostForm.Get("rir"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 9 {
			return line, &models.ValidationError{Field: "rir", Value: v, Reason: "must be between 0 and 9"}
		}
		line.RIR = &n
	}
	if v := r.PostForm.Get("notes"); v != "" {
		line.Notes = &v
	}
	return line, nil
}
