package scenario

import (
	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

// Cross-channel scenarios create state in one channel and check it in the
// other. Accounts are always removed over HTTP.

// registeredWebSession registers over HTTP and logs the browser in.
func registeredWebSession(e *Env) (fixture.LoggedIn, *webflow.Session, error) {
	reg, err := e.RegisterAPI()
	if err != nil {
		return fixture.LoggedIn{}, nil, err
	}
	li, err := e.LoginWeb(reg)
	if err != nil {
		return fixture.LoggedIn{}, nil, err
	}
	web, err := e.Web()
	return li, web, err
}

func apiWebUserScenarios() []Scenario {
	return []Scenario{
		basic("TC640", "Creates a new user account via WEB and API", APIAndWeb, func(e *Env) error {
			reg, err := e.RegisterWeb()
			if err != nil {
				return err
			}
			_, err = e.LoginAPI(reg)
			return err
		}),

		basic("TC650", "Log in as an existing user via WEB and API", APIAndWeb, func(e *Env) error {
			_, _, err := registeredWebSession(e)
			return err
		}),
		negative("TC660", "Log in as an existing user via WEB and API - Invalid email", APIAndWeb, func(e *Env) error {
			reg, err := e.RegisterAPI()
			if err != nil {
				return err
			}
			web, err := e.Web()
			if err != nil {
				return err
			}
			if err := web.AttemptLogin(e.Context(), "e"+reg.User.Email, reg.User.Password); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgBadCredentials)
		}),
		negative("TC670", "Log in as an existing user via WEB and API - Wrong password", APIAndWeb, func(e *Env) error {
			reg, err := e.RegisterAPI()
			if err != nil {
				return err
			}
			web, err := e.Web()
			if err != nil {
				return err
			}
			if err := web.AttemptLogin(e.Context(), reg.User.Email, "e"+reg.User.Password); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgBadCredentials)
		}),

		basic("TC680", "Navigate to user profile via WEB and API", APIAndWeb, func(e *Env) error {
			_, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			return web.Steps("profile fields").
				Goto("app/profile").
				SeeVisible("user-email", web.TestID("user-email")).
				SeeVisible("user-id", web.TestID("user-id")).
				SeeVisible("user-name", web.TestID("user-name")).
				Err(e.Context())
		}),

		basic("TC690", "Update user profile information via WEB and API", APIAndWeb, func(e *Env) error {
			_, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			return web.UpdateProfile(e.Context(), webflow.RandomProfile())
		}),
		negative("TC700", "Update user profile information via WEB and API - Invalid company name", APIAndWeb, func(e *Env) error {
			_, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			p := webflow.RandomProfile()
			p.Company = "e"
			if err := web.SubmitProfile(e.Context(), p); err != nil {
				return err
			}
			return seeFeedback(e, web, webflow.MsgCompanyLength, ".mb-4 > .invalid-feedback")
		}),
		negative("TC710", "Update user profile information via WEB and API - Invalid phone number", APIAndWeb, func(e *Env) error {
			_, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			p := webflow.RandomProfile()
			p.Phone = fakedata.Digits(2)
			if err := web.SubmitProfile(e.Context(), p); err != nil {
				return err
			}
			return seeFeedback(e, web, webflow.MsgPhoneLength, ":nth-child(2) > .mb-2 > .invalid-feedback")
		}),

		basic("TC720", "Change a user's password via WEB and API", APIAndWeb, func(e *Env) error {
			li, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			_, err = web.ChangePassword(e.Context(), li, fakedata.Password(8))
			return err
		}),
		negative("TC730", "Change a user's password via WEB and API - Type same password", APIAndWeb, func(e *Env) error {
			li, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			pw := li.User.Password
			if err := web.SubmitPasswordChange(e.Context(), pw, pw, pw); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgSamePassword)
		}),

		basic("TC740", "Log out a user via WEB and API", APIAndWeb, func(e *Env) error {
			if _, _, err := registeredWebSession(e); err != nil {
				return err
			}
			return e.LogoutWeb()
		}),

		basic("TC750", "Delete user account via WEB and API", APIAndWeb, func(e *Env) error {
			li, web, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			if err := web.DeleteUser(e.Context(), li); err != nil {
				return err
			}
			e.Disarm(TeardownUser)
			return nil
		}),
	}
}

func apiWebNoteScenarios() []Scenario {
	signIn := func(e *Env) func() (fixture.LoggedIn, error) {
		return func() (fixture.LoggedIn, error) {
			li, _, err := registeredWebSession(e)
			return li, err
		}
	}
	withAPINote := func(e *Env) (fixture.WithNote, error) {
		li, _, err := registeredWebSession(e)
		if err != nil {
			return fixture.WithNote{}, err
		}
		return e.CreateNoteAPI(li)
	}

	return []Scenario{
		basic("TC760", "Create a new note via WEB and API", APIAndWeb, func(e *Env) error {
			li, _, err := registeredWebSession(e)
			if err != nil {
				return err
			}
			d := webflow.RandomDraft()
			d.Submit = webflow.SubmitTestID
			_, err = e.CreateNoteWeb(li, d)
			return err
		}),
		negative("TC770", "Create a new note via WEB and API - Invalid title", APIAndWeb, func(e *Env) error {
			return invalidNoteDraft(e, signIn(e), webflow.SubmitTestID, func(d *webflow.NoteDraft) { d.Title = "e" },
				webflow.MsgTitleLength, titleFeedbackCSS)
		}),
		negative("TC780", "Create a new note via WEB and API - Invalid description", APIAndWeb, func(e *Env) error {
			return invalidNoteDraft(e, signIn(e), webflow.SubmitTestID, func(d *webflow.NoteDraft) { d.Description = "e" },
				webflow.MsgDescriptionLength, descriptionFeedbackCSS)
		}),

		basic("TC790", "Get all notes via WEB and API", APIAndWeb, func(e *Env) error {
			if _, _, err := registeredWebSession(e); err != nil {
				return err
			}
			return noteList(e, webflow.SubmitTestID, false)
		}),

		basic("TC800", "Update an existing note via WEB and API", APIAndWeb, func(e *Env) error {
			wn, err := withAPINote(e)
			if err != nil {
				return err
			}
			web, _ := e.Web()
			_, err = web.EditNote(e.Context(), wn, webflow.RandomEdit())
			return err
		}),
		negative("TC810", "Update an existing note via WEB and API - Invalid title", APIAndWeb, func(e *Env) error {
			if _, err := withAPINote(e); err != nil {
				return err
			}
			return invalidNoteEdit(e, func(ed *webflow.NoteEdit) { ed.Title = "e" }, webflow.MsgTitleLength, titleFeedbackCSS)
		}),
		negative("TC820", "Update an existing note via WEB and API - Invalid description", APIAndWeb, func(e *Env) error {
			if _, err := withAPINote(e); err != nil {
				return err
			}
			return invalidNoteEdit(e, func(ed *webflow.NoteEdit) { ed.Description = "e" }, webflow.MsgDescriptionLength, descriptionFeedbackCSS)
		}),

		basic("TC830", "Update the completed status of a note via WEB and API", APIAndWeb, func(e *Env) error {
			wn, err := withAPINote(e)
			if err != nil {
				return err
			}
			return toggleCompleted(e, wn)
		}),

		basic("TC840", "Delete a note via WEB and API", APIAndWeb, func(e *Env) error {
			wn, err := withAPINote(e)
			if err != nil {
				return err
			}
			return deleteNoteWeb(e, wn)
		}),
	}
}
