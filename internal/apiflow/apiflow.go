// Package apiflow performs one logical notes operation over HTTP, checks the
// server's success contract and records the outcome in the fixture store.
//
// Each helper takes the fixture phase it depends on, so a note cannot be
// created for a scenario that never logged in. The *ForKey variants load the
// phase from the store for callers that only hold a scenario key.
package apiflow

import (
	"context"
	"net/http"
	"strings"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/expect"
	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// Flow binds an API client to a fixture store.
type Flow struct {
	api   *notesapi.Client
	store *fixture.Store
}

// New returns a Flow.
func New(api *notesapi.Client, store *fixture.Store) *Flow {
	return &Flow{api: api, store: store}
}

// Client returns the underlying API client.
func (f *Flow) Client() *notesapi.Client {
	return f.api
}

// Store returns the fixture store.
func (f *Flow) Store() *fixture.Store {
	return f.store
}

// RegisterUser registers a random user and creates the record for key.
func (f *Flow) RegisterUser(ctx context.Context, key string) (fixture.Registered, error) {
	return f.RegisterUserWith(ctx, key, fakedata.Registration())
}

// RegisterUserWith registers in and creates the record for key. The email is
// lower-cased before it is sent.
func (f *Flow) RegisterUserWith(ctx context.Context, key string, in notesapi.RegisterRequest) (fixture.Registered, error) {
	in.Email = strings.ToLower(in.Email)
	resp, err := f.api.Register(ctx, in)
	if err != nil {
		return fixture.Registered{}, err
	}

	var data notesapi.User
	c := expect.Contract("POST users/register")
	c.Status(http.StatusCreated, resp.StatusCode)
	c.Message(notesapi.MsgUserCreated, resp.Envelope.Message)
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().NotEmpty(data.ID, "data.id")
		c.Assert().Equal(in.Email, data.Email, "data.email")
		c.Assert().Equal(in.Name, data.Name, "data.name")
	}
	if err := c.Err(); err != nil {
		return fixture.Registered{}, err
	}

	user := fixture.User{Email: in.Email, ID: data.ID, Name: in.Name, Password: in.Password}
	if _, err := f.store.Upsert(key, user.Fields()); err != nil {
		return fixture.Registered{}, err
	}
	obs.From(ctx).Info("user_registered", "channel", "api", "user_id", data.ID)
	return fixture.Registered{Key: key, User: user}, nil
}

// LoginUser logs reg in and stores the session token.
func (f *Flow) LoginUser(ctx context.Context, reg fixture.Registered) (fixture.LoggedIn, error) {
	resp, err := f.api.Login(ctx, notesapi.LoginRequest{Email: reg.User.Email, Password: reg.User.Password})
	if err != nil {
		return fixture.LoggedIn{}, err
	}

	var data notesapi.User
	c := expect.Contract("POST users/login")
	c.Status(http.StatusOK, resp.StatusCode)
	c.Message(notesapi.MsgLoginOK, resp.Envelope.Message)
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().Equal(reg.User.Email, data.Email, "data.email")
		c.Assert().Equal(reg.User.ID, data.ID, "data.id")
		c.Assert().Equal(reg.User.Name, data.Name, "data.name")
		c.Assert().NotEmpty(data.Token, "data.token")
	}
	if err := c.Err(); err != nil {
		return fixture.LoggedIn{}, err
	}

	if _, err := f.store.Merge(reg.Key, fixture.Record{fixture.FieldUserToken: data.Token}); err != nil {
		return fixture.LoggedIn{}, err
	}
	obs.From(ctx).Info("user_logged_in", "channel", "api", "user_id", reg.User.ID)
	return fixture.LoggedIn{Registered: reg, Token: data.Token}, nil
}

// LoginUserForKey loads the registration phase of key and logs it in.
func (f *Flow) LoginUserForKey(ctx context.Context, key string) (fixture.LoggedIn, error) {
	reg, err := f.store.LoadRegistered(key)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	return f.LoginUser(ctx, reg)
}

// DeleteUser deletes the account behind li. The fixture record is left
// untouched; the caller deletes it.
func (f *Flow) DeleteUser(ctx context.Context, li fixture.LoggedIn) error {
	resp, err := f.api.DeleteAccount(ctx, li.Token)
	if err != nil {
		return err
	}
	c := expect.Contract("DELETE users/delete-account")
	c.Status(http.StatusOK, resp.StatusCode)
	c.Message(notesapi.MsgAccountDeleted, resp.Envelope.Message)
	if err := c.Err(); err != nil {
		return err
	}
	obs.From(ctx).Info("user_deleted", "channel", "api", "user_id", li.User.ID)
	return nil
}

// DeleteUserForKey loads the logged-in phase of key and deletes its account.
func (f *Flow) DeleteUserForKey(ctx context.Context, key string) error {
	li, err := f.store.LoadLoggedIn(key, fixture.OpDeleteUser)
	if err != nil {
		return err
	}
	return f.DeleteUser(ctx, li)
}

// CreateNote creates a random note for li.
func (f *Flow) CreateNote(ctx context.Context, li fixture.LoggedIn) (fixture.WithNote, error) {
	return f.CreateNoteWith(ctx, li, fakedata.Note())
}

// CreateNoteWith creates in for li and stores the note fields.
func (f *Flow) CreateNoteWith(ctx context.Context, li fixture.LoggedIn, in notesapi.NoteInput) (fixture.WithNote, error) {
	resp, err := f.api.CreateNote(ctx, li.Token, in)
	if err != nil {
		return fixture.WithNote{}, err
	}

	var data notesapi.Note
	c := expect.Contract("POST notes")
	c.Status(http.StatusOK, resp.StatusCode)
	c.Message(notesapi.MsgNoteCreated, resp.Envelope.Message)
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().NotEmpty(data.ID, "data.id")
		c.Assert().Equal(in.Title, data.Title, "data.title")
		c.Assert().Equal(in.Description, data.Description, "data.description")
		c.Assert().Equal(in.Category, data.Category, "data.category")
		c.Assert().Equal(li.User.ID, data.UserID, "data.user_id")
	}
	if err := c.Err(); err != nil {
		return fixture.WithNote{}, err
	}

	// completed is false unless the server says otherwise; a missing member
	// decodes to false.
	note := fixture.Note{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Category:    data.Category,
		Completed:   data.Completed,
	}
	if _, err := f.store.Merge(li.Key, note.Fields()); err != nil {
		return fixture.WithNote{}, err
	}
	obs.From(ctx).Info("note_created", "channel", "api", "note_id", data.ID)
	return fixture.WithNote{LoggedIn: li, Note: note}, nil
}

// CreateNoteForKey loads the logged-in phase of key and creates a random
// note. A record without a token fails before any request is sent.
func (f *Flow) CreateNoteForKey(ctx context.Context, key string) (fixture.WithNote, error) {
	li, err := f.store.LoadLoggedIn(key, fixture.OpCreateNote)
	if err != nil {
		return fixture.WithNote{}, err
	}
	return f.CreateNote(ctx, li)
}

// DeleteNote deletes wn's note and drops the note fields from the record.
func (f *Flow) DeleteNote(ctx context.Context, wn fixture.WithNote) (fixture.LoggedIn, error) {
	resp, err := f.api.DeleteNote(ctx, wn.Token, wn.Note.ID)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	c := expect.Contract("DELETE notes/{id}")
	c.Status(http.StatusOK, resp.StatusCode)
	c.Message(notesapi.MsgNoteDeleted, resp.Envelope.Message)
	if err := c.Err(); err != nil {
		return fixture.LoggedIn{}, err
	}
	if _, err := f.store.Remove(wn.Key, fixture.NoteFields...); err != nil {
		return fixture.LoggedIn{}, err
	}
	obs.From(ctx).Info("note_deleted", "channel", "api", "note_id", wn.Note.ID)
	return wn.LoggedIn, nil
}

// DeleteNoteForKey loads the note phase of key and deletes the note. A record
// without a note id fails before any request is sent.
func (f *Flow) DeleteNoteForKey(ctx context.Context, key string) (fixture.LoggedIn, error) {
	rec, err := f.store.Read(key)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	if rec.String(fixture.FieldNoteID) == "" {
		return fixture.LoggedIn{}, errs.New(errs.FailedPrecondition,
			"Note ID is required to delete a note. Make sure a note was created first.")
	}
	wn, err := rec.WithNote(key, fixture.OpDeleteNote)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	return f.DeleteNote(ctx, wn)
}
