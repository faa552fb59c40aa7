package fakeapp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
)

func userData(u User) notesapi.User {
	return notesapi.User{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Company: u.Company}
}

func noteData(n Note) notesapi.Note {
	return notesapi.Note{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Category:    n.Category,
		Completed:   n.Completed,
		UserID:      n.UserID,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   n.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, notesapi.MsgHealthy, nil)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := registerInput{Name: b.str("name"), Email: b.str("email"), Password: b.str("password")}
	if err := check(in); err != nil {
		writeError(w, r, err)
		return
	}
	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.store.CreateUser(r.Context(), User{
		Name:         in.Name,
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	obs.From(r.Context()).Info("fakeapp_user_registered", "user_id", u.ID)
	writeEnvelope(w, http.StatusCreated, notesapi.MsgUserCreated, userData(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := loginInput{Email: b.str("email"), Password: b.str("password")}
	if err := check(in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.store.UserByEmail(r.Context(), strings.ToLower(in.Email))
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgBadCredentials, nil)
			return
		}
		writeError(w, r, err)
		return
	}
	if !s.hasher.VerifyPassword(in.Password, u.PasswordHash) {
		writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgBadCredentials, nil)
		return
	}

	token, jti, expires, err := s.tokens.issue(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.CreateSession(r.Context(), jti, u.ID, expires); err != nil {
		writeError(w, r, err)
		return
	}
	data := userData(u)
	data.Token = token
	writeEnvelope(w, http.StatusOK, notesapi.MsgLoginOK, data)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	u, err := s.store.UserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		// The session outlived its user; treat it like any stale token.
		writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgUnauthorized, nil)
		return User{}, false
	}
	return u, true
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgProfileOK, userData(u))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := profileInput{Name: b.str("name"), Phone: b.str("phone"), Company: b.str("company")}
	if err := check(in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.UpdateProfile(r.Context(), u.ID, in.Name, in.Phone, in.Company); err != nil {
		writeError(w, r, err)
		return
	}
	u.Name, u.Phone, u.Company = in.Name, in.Phone, in.Company
	writeEnvelope(w, http.StatusOK, notesapi.MsgProfileUpdated, userData(u))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := passwordInput{CurrentPassword: b.str("currentPassword"), NewPassword: b.str("newPassword")}
	if err := check(in); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.hasher.VerifyPassword(in.CurrentPassword, u.PasswordHash) {
		writeEnvelope(w, http.StatusBadRequest, notesapi.MsgWrongPassword, nil)
		return
	}
	if in.CurrentPassword == in.NewPassword {
		writeEnvelope(w, http.StatusBadRequest, notesapi.MsgSamePassword, nil)
		return
	}
	hash, err := s.hasher.HashPassword(in.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), u.ID, hash); err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgPasswordUpdated, nil)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), sessionFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgLoggedOut, nil)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(r.Context(), userIDFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgAccountDeleted, nil)
}

// parseNote validates the note fields of b. completed must be a boolean
// when present.
func parseNote(b body) (noteInput, bool, bool, error) {
	in := noteInput{Title: b.str("title"), Description: b.str("description"), Category: b.str("category")}
	if err := check(in); err != nil {
		return noteInput{}, false, false, err
	}
	completed, present, ok := b.completed()
	if !ok {
		return noteInput{}, false, false, errs.New(errs.InvalidArgument, notesapi.MsgInvalidCompleted)
	}
	return in, completed, present, nil
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, completed, _, err := parseNote(b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.store.CreateNote(r.Context(), Note{
		UserID:      userIDFrom(r.Context()),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Completed:   completed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNoteCreated, noteData(n))
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]notesapi.Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteData(n))
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNotesRetrieved, out)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.GetNote(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNoteRetrieved, noteData(n))
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id := chi.URLParam(r, "id")
	current, err := s.store.GetNote(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, completed, present, err := parseNote(b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !present {
		completed = current.Completed
	}
	n, err := s.store.UpdateNote(r.Context(), Note{
		ID:          id,
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Completed:   completed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNoteUpdated, noteData(n))
}

func (s *Server) patchNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	current, err := s.store.GetNote(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	completed, present, ok := b.completed()
	if !ok || !present {
		writeEnvelope(w, http.StatusBadRequest, notesapi.MsgInvalidCompleted, nil)
		return
	}
	current.Completed = completed
	n, err := s.store.UpdateNote(r.Context(), current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNoteUpdated, noteData(n))
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNote(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, notesapi.MsgNoteDeleted, nil)
}
