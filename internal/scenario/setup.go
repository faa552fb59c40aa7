package scenario

import (
	"context"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

// Setup steps. Each one takes the phase it depends on, performs the step
// through one channel and arms the teardown that undoes it, so a scenario
// cannot create a note without a session and cannot leak what it created.
//
// Registration arms "delete user" and "delete fixture"; note creation arms
// "delete note". Teardown reads the record when it runs, so later steps such
// as a password change or a re-login are honoured.

// RegisterAPI registers a random user over HTTP.
func (e *Env) RegisterAPI() (fixture.Registered, error) {
	return e.RegisterAPIWith(fakedata.Registration())
}

// RegisterAPIWith registers in over HTTP.
func (e *Env) RegisterAPIWith(in notesapi.RegisterRequest) (fixture.Registered, error) {
	reg, err := e.api.RegisterUserWith(e.ctx, e.key, in)
	if err != nil {
		return fixture.Registered{}, err
	}
	e.armUser()
	return reg, nil
}

// RegisterWeb registers a random user through the UI.
func (e *Env) RegisterWeb() (fixture.Registered, error) {
	return e.RegisterWebWith(fakedata.Registration())
}

// RegisterWebWith registers in through the UI.
func (e *Env) RegisterWebWith(in notesapi.RegisterRequest) (fixture.Registered, error) {
	web, err := e.Web()
	if err != nil {
		return fixture.Registered{}, err
	}
	reg, err := web.RegisterUserWith(e.ctx, e.key, in)
	if err != nil {
		return fixture.Registered{}, err
	}
	e.armUser()
	return reg, nil
}

// LoginAPI logs reg in over HTTP.
func (e *Env) LoginAPI(reg fixture.Registered) (fixture.LoggedIn, error) {
	return e.api.LoginUser(e.ctx, reg)
}

// LoginWeb logs reg in through the UI. The browser session then owns the
// account's deletion at teardown.
func (e *Env) LoginWeb(reg fixture.Registered) (fixture.LoggedIn, error) {
	web, err := e.Web()
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	li, err := web.LoginUser(e.ctx, reg)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	e.setWebLogin(true)
	return li, nil
}

// LogoutWeb logs the browser session out.
func (e *Env) LogoutWeb() error {
	web, err := e.Web()
	if err != nil {
		return err
	}
	if err := web.Logout(e.ctx); err != nil {
		return err
	}
	e.setWebLogin(false)
	return nil
}

// SignedInAPI registers and logs in a random user over HTTP.
func (e *Env) SignedInAPI() (fixture.LoggedIn, error) {
	reg, err := e.RegisterAPI()
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	return e.LoginAPI(reg)
}

// SignedInWeb registers and logs in a random user through the UI.
func (e *Env) SignedInWeb() (fixture.LoggedIn, error) {
	reg, err := e.RegisterWeb()
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	return e.LoginWeb(reg)
}

// CreateNoteAPI creates a random note for li over HTTP.
func (e *Env) CreateNoteAPI(li fixture.LoggedIn) (fixture.WithNote, error) {
	wn, err := e.api.CreateNote(e.ctx, li)
	if err != nil {
		return fixture.WithNote{}, err
	}
	e.armNote()
	return wn, nil
}

// CreateNoteWeb creates d for li through the UI.
func (e *Env) CreateNoteWeb(li fixture.LoggedIn, d webflow.NoteDraft) (fixture.WithNote, error) {
	web, err := e.Web()
	if err != nil {
		return fixture.WithNote{}, err
	}
	wn, err := web.CreateNoteWith(e.ctx, li, d)
	if err != nil {
		return fixture.WithNote{}, err
	}
	e.armNote()
	return wn, nil
}

func (e *Env) setWebLogin(v bool) {
	e.mu.Lock()
	e.webLogin = v
	e.mu.Unlock()
}

func (e *Env) webLoggedIn() (*webflow.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.web, e.web != nil && e.webLogin
}

func (e *Env) armUser() {
	e.Defer(TeardownFixture, func(context.Context) error {
		return e.deps.Store.Delete(e.key)
	})
	e.Defer(TeardownUser, e.deleteUser)
}

func (e *Env) armNote() {
	e.Defer(TeardownNote, e.deleteNote)
}

// deleteUser removes the account. A WEB scenario whose browser is still
// logged in deletes it from the profile page; otherwise a fresh API login
// is used, since the stored token may have been revoked by a logout.
func (e *Env) deleteUser(ctx context.Context) error {
	if web, ok := e.webLoggedIn(); ok && e.scenario.Channel == WEB {
		li, err := e.deps.Store.LoadLoggedIn(e.key, fixture.OpDeleteUser)
		if err != nil {
			return err
		}
		return web.DeleteUser(ctx, li)
	}
	li, err := e.api.LoginUserForKey(ctx, e.key)
	if err != nil {
		return err
	}
	return e.api.DeleteUser(ctx, li)
}

// deleteNote removes the recorded note over HTTP. A record without note
// fields means the scenario already deleted it.
func (e *Env) deleteNote(ctx context.Context) error {
	rec, err := e.deps.Store.Read(e.key)
	if err != nil {
		return err
	}
	if rec.String(fixture.FieldNoteID) == "" {
		obs.From(ctx).Info("teardown_note_absent")
		return nil
	}
	_, err = e.api.DeleteNoteForKey(ctx, e.key)
	return err
}
