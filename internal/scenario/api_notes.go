package scenario

import (
	"math/rand/v2"
	"net/http"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
)

func apiNoteScenarios() []Scenario {
	return []Scenario{
		basic("TC210", "Create a new note via API", API, tc210),
		negative("TC220", "Create a new note via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			n := fakedata.Note()
			resp, err := e.Client().CreateNote(e.Context(), li.Token, map[string]any{
				"title":       n.Title,
				"description": n.Description,
				"category":    "invalid",
			})
			return rejected(e, "POST notes", resp, err, http.StatusBadRequest, notesapi.MsgInvalidCategory)
		}),
		negative("TC230", "Create a new note via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().CreateNote(e.Context(), corrupt(li.Token), fakedata.Note())
			return rejected(e, "POST notes", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC240", "Get all notes via API", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().ListNotes(e.Context(), wn.Token)
			if err != nil {
				return err
			}
			c := outcome(e, "GET notes", resp, http.StatusOK, notesapi.MsgNotesRetrieved)
			var data []notesapi.Note
			if c.Assert().NoError(resp.DecodeData(&data)) {
				c.Assert().NotEmpty(data, "data")
			}
			return c.Err()
		}),
		negative("TC250", "Get all notes via API - Bad request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().ListNotes(e.Context(), wn.Token, notesapi.WithContentFormat(badFormat))
			return rejected(e, "GET notes", resp, err, http.StatusBadRequest, notesapi.MsgInvalidContentFmt)
		}),
		negative("TC260", "Get all notes via API - Unauthorized request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().ListNotes(e.Context(), corrupt(wn.Token))
			return rejected(e, "GET notes", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC270", "Get note by ID via API", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().GetNote(e.Context(), wn.Token, wn.Note.ID)
			if err != nil {
				return err
			}
			c := outcome(e, "GET notes/{id}", resp, http.StatusOK, notesapi.MsgNoteRetrieved)
			var data notesapi.Note
			if c.Assert().NoError(resp.DecodeData(&data)) {
				c.Assert().Equal(wn.Note.ID, data.ID, "data.id")
				c.Assert().Equal(wn.Note.Title, data.Title, "data.title")
				c.Assert().Equal(wn.Note.Description, data.Description, "data.description")
				c.Assert().Equal(wn.Note.Category, data.Category, "data.category")
				c.Assert().Equal(wn.User.ID, data.UserID, "data.user_id")
			}
			return c.Err()
		}),
		negative("TC280", "Get note by ID via API - Bad request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().GetNote(e.Context(), wn.Token, wn.Note.ID, notesapi.WithContentFormat(badFormat))
			return rejected(e, "GET notes/{id}", resp, err, http.StatusBadRequest, notesapi.MsgInvalidContentFmt)
		}),
		negative("TC290", "Get note by ID via API - Unauthorized request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().GetNote(e.Context(), corrupt(wn.Token), wn.Note.ID)
			return rejected(e, "GET notes/{id}", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC300", "Update an existing note via API", API, tc300),
		negative("TC310", "Update an existing note via API - Bad request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			n := fakedata.Note()
			resp, err := e.Client().UpdateNote(e.Context(), wn.Token, wn.Note.ID, map[string]any{
				"category":    "invalid",
				"completed":   false,
				"description": n.Description,
				"title":       n.Title,
			})
			return rejected(e, "PUT notes/{id}", resp, err, http.StatusBadRequest, notesapi.MsgInvalidCategory)
		}),
		negative("TC320", "Update an existing note via API - Unauthorized request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			n := fakedata.Note()
			n.Category = wn.Note.Category
			n.Completed = ptr(false)
			resp, err := e.Client().UpdateNote(e.Context(), corrupt(wn.Token), wn.Note.ID, n)
			return rejected(e, "PUT notes/{id}", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC330", "Update the completed status of a note via API", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().PatchNote(e.Context(), wn.Token, wn.Note.ID, map[string]any{"completed": false})
			if err != nil {
				return err
			}
			c := outcome(e, "PATCH notes/{id}", resp, http.StatusOK, notesapi.MsgNoteUpdated)
			var data notesapi.Note
			if c.Assert().NoError(resp.DecodeData(&data)) {
				c.Assert().False(data.Completed, "data.completed")
			}
			if err := c.Err(); err != nil {
				return err
			}
			_, err = e.Store().Merge(e.Key(), fixture.Record{fixture.FieldNoteCompleted: false})
			return err
		}),
		negative("TC340", "Update the completed status of a note via API - Bad request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().PatchNote(e.Context(), wn.Token, wn.Note.ID, map[string]any{"completed": "invalid"})
			return rejected(e, "PATCH notes/{id}", resp, err, http.StatusBadRequest, notesapi.MsgInvalidCompleted)
		}),
		negative("TC350", "Update the completed status of a note via API - Unauthorized request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().PatchNote(e.Context(), corrupt(wn.Token), wn.Note.ID, map[string]any{"completed": false})
			return rejected(e, "PATCH notes/{id}", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC360", "Delete a note by ID via API", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().DeleteNote(e.Context(), wn.Token, wn.Note.ID)
			if err != nil {
				return err
			}
			if err := outcome(e, "DELETE notes/{id}", resp, http.StatusOK, notesapi.MsgNoteDeleted).Err(); err != nil {
				return err
			}
			e.Disarm(TeardownNote)
			_, err = e.Store().Remove(e.Key(), fixture.NoteFields...)
			return err
		}),
		negative("TC370", "Delete a note by ID via API - Bad request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().DeleteNote(e.Context(), wn.Token, "+"+wn.Note.ID)
			return rejected(e, "DELETE notes/{id}", resp, err, http.StatusBadRequest, notesapi.MsgInvalidNoteID)
		}),
		negative("TC380", "Delete a note by ID via API - Unauthorized request", API, func(e *Env) error {
			wn, err := signedInWithNoteAPI(e)
			if err != nil {
				return err
			}
			resp, err := e.Client().DeleteNote(e.Context(), corrupt(wn.Token), wn.Note.ID)
			return rejected(e, "DELETE notes/{id}", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),
	}
}

func signedInWithNoteAPI(e *Env) (fixture.WithNote, error) {
	li, err := e.SignedInAPI()
	if err != nil {
		return fixture.WithNote{}, err
	}
	return e.CreateNoteAPI(li)
}

func ptr[T any](v T) *T { return &v }

// tc210 creates the note through the raw client and records it the way
// the note helper would, so its teardown applies.
func tc210(e *Env) error {
	li, err := e.SignedInAPI()
	if err != nil {
		return err
	}
	in := fakedata.Note()
	resp, err := e.Client().CreateNote(e.Context(), li.Token, in)
	if err != nil {
		return err
	}
	c := outcome(e, "POST notes", resp, http.StatusOK, notesapi.MsgNoteCreated)
	var data notesapi.Note
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().NotEmpty(data.ID, "data.id")
		c.Assert().Equal(in.Category, data.Category, "data.category")
		c.Assert().Equal(in.Description, data.Description, "data.description")
		c.Assert().Equal(in.Title, data.Title, "data.title")
		c.Assert().Equal(li.User.ID, data.UserID, "data.user_id")
	}
	if err := c.Err(); err != nil {
		return err
	}

	note := fixture.Note{ID: data.ID, Title: data.Title, Description: data.Description, Category: data.Category, Completed: data.Completed}
	if _, err := e.Store().Merge(e.Key(), note.Fields()); err != nil {
		return err
	}
	e.armNote()
	return nil
}

func tc300(e *Env) error {
	wn, err := signedInWithNoteAPI(e)
	if err != nil {
		return err
	}
	n := fakedata.Note()
	in := notesapi.NoteInput{
		Title:       n.Title,
		Description: n.Description,
		Category:    wn.Note.Category,
		Completed:   ptr(rand.IntN(2) == 1),
	}
	resp, err := e.Client().UpdateNote(e.Context(), wn.Token, wn.Note.ID, in)
	if err != nil {
		return err
	}
	c := outcome(e, "PUT notes/{id}", resp, http.StatusOK, notesapi.MsgNoteUpdated)
	var data notesapi.Note
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().Equal(in.Description, data.Description, "data.description")
		c.Assert().Equal(in.Title, data.Title, "data.title")
		c.Assert().Equal(*in.Completed, data.Completed, "data.completed")
	}
	if err := c.Err(); err != nil {
		return err
	}
	wn.Note.Title, wn.Note.Description, wn.Note.Completed = in.Title, in.Description, *in.Completed
	_, err = e.Store().Merge(e.Key(), wn.Note.Fields())
	return err
}
