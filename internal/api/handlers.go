package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/enrich"
	"inkwell/notes/internal/tagging"
)

type titleRequest struct {
	Title string `json:"title"`
}

type noteRequest struct {
	Title     string   `json:"title"`
	Summary   *string  `json:"summary"`
	StudyPlan *string  `json:"study_plan"`
	Tags      []string `json:"tags"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type entryRequest struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type orderRequest struct {
	EntryIDs []int64 `json:"entry_ids"`
}

type enhanceRequest struct {
	NoteTitle string `json:"note_title"`
	Heading   string `json:"heading"`
}

type tagsResponse struct {
	Tags       []string `json:"tags"`
	Vocabulary []string `json:"vocabulary"`
}

func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %v: %w", err, db.ErrValidation)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, r.PathValue(name), db.ErrValidation)
	}
	return id, nil
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.AllNotes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagging.Filter(notes, r.URL.Query()["tag"]))
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	notes, err := s.store.CreateNote(r.Context(), req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r.Context())
	writeJSON(w, http.StatusCreated, notes)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.GetNote(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if note == nil {
		s.writeError(w, r, fmt.Errorf("note %d: %w", id, db.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	notes, err := s.store.UpdateNote(r.Context(), db.Note{
		ID:        id,
		Title:     req.Title,
		Summary:   req.Summary,
		StudyPlan: req.StudyPlan,
		Tags:      req.Tags,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r.Context())
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	notes, err := s.store.DeleteNote(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r.Context())
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) updateTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req tagsRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondNote(w, r)(s.store.UpdateNoteTags(r.Context(), id, req.Tags))
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.CreateEntry(r.Context(), id, req.Heading, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r.Context())
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	noteID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entryID, err := pathID(r, "entryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondNote(w, r)(s.store.UpdateEntry(r.Context(), db.Entry{
		ID:      entryID,
		NoteID:  noteID,
		Heading: req.Heading,
		Body:    req.Body,
	}))
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	noteID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entryID, err := pathID(r, "entryID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.store.DeleteEntry(r.Context(), entryID, noteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(r.Context())
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reorderEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req orderRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondNote(w, r)(s.store.ReorderEntries(r.Context(), id, req.EntryIDs))
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.AllNotes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tagging.Available(notes), Vocabulary: s.vocab.Labels()})
}

func (s *Server) suggestTags(w http.ResponseWriter, r *http.Request) {
	s.enrichNote(w, r, (*enrich.Service).SuggestTags)
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	s.enrichNote(w, r, (*enrich.Service).Summarize)
}

func (s *Server) studyPlan(w http.ResponseWriter, r *http.Request) {
	s.enrichNote(w, r, (*enrich.Service).StudyPlan)
}

func (s *Server) enrichNote(w http.ResponseWriter, r *http.Request, op func(*enrich.Service, context.Context, int64) (*db.Note, error)) {
	if s.enricher == nil {
		s.writeError(w, r, enrich.ErrNoCompleter)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondNote(w, r)(op(s.enricher, r.Context(), id))
}

func (s *Server) enhance(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		s.writeError(w, r, enrich.ErrNoCompleter)
		return
	}
	var req enhanceRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.NoteTitle == "" || req.Heading == "" {
		s.writeError(w, r, fmt.Errorf("note_title and heading are required: %w", db.ErrValidation))
		return
	}
	out, err := s.enricher.EnhanceEntry(r.Context(), req.NoteTitle, req.Heading)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// respondNote writes a single-note mutation result and publishes on success
func (s *Server) respondNote(w http.ResponseWriter, r *http.Request) func(*db.Note, error) {
	return func(note *db.Note, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.publish(r.Context())
		writeJSON(w, http.StatusOK, note)
	}
}
