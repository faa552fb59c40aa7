package scenario

import (
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

var (
	reNotesHome  = regexp.MustCompile(`.*/app/$`)
	reProfile    = regexp.MustCompile(`.*/profile`)
	reLoggedInUI = regexp.MustCompile(`(?i)Logout|Profile`)
)

func webUserScenarios() []Scenario {
	return []Scenario{
		basic("TC400", "Successful User Registration via WEB", WEB, func(e *Env) error {
			reg, err := e.RegisterWeb()
			if err != nil {
				return err
			}
			_, err = e.LoginWeb(reg)
			return err
		}),

		basic("TC410", "Successful Login via WEB", WEB, func(e *Env) error {
			if _, err := e.SignedInWeb(); err != nil {
				return err
			}
			web, _ := e.Web()
			return web.Steps("notes home").
				Goto("app/").
				SeeURL(reNotesHome).
				SeeVisible("Logout or Profile", web.CSS("button, a").Filter(playwright.LocatorFilterOptions{HasText: reLoggedInUI}).First()).
				SeeVisible("Add Note", web.Button("Add Note").Or(web.Text("+ Add Note")).First()).
				SeeVisible("empty notes message", web.Text(webflow.MsgNoNotes).First()).
				Err(e.Context())
		}),

		basic("TC420", "Profile Data Validation via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			return web.Steps("profile data").
				Goto("app/profile").
				SeeURL(reProfile).
				SeeValue("user-name", web.TestID("user-name"), li.User.Name).
				SeeValue("user-email", web.TestID("user-email"), li.User.Email).
				Err(e.Context())
		}),

		basic("TC430", "User Deletion via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			if err := web.DeleteUser(e.Context(), li); err != nil {
				return err
			}
			e.Disarm(TeardownUser)
			return nil
		}),

		negative("TC440", "Create a new user account via WEB - Invalid email", WEB, func(e *Env) error {
			web, err := e.Web()
			if err != nil {
				return err
			}
			in := fakedata.Registration()
			in.Email = corrupt(strings.ToLower(in.Email))
			if err := web.AttemptRegister(e.Context(), in, in.Password); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgInvalidEmail)
		}),
		negative("TC450", "Create a new user account via WEB - Wrong password", WEB, func(e *Env) error {
			web, err := e.Web()
			if err != nil {
				return err
			}
			in := fakedata.Registration()
			if err := web.AttemptRegister(e.Context(), in, "e"+in.Password); err != nil {
				return err
			}
			return seeFeedback(e, web, webflow.MsgPasswordsDontMatch, ".mb-3 > .invalid-feedback")
		}),

		negative("TC460", "Log in as an existing user via WEB - Invalid email", WEB, func(e *Env) error {
			reg, err := e.RegisterWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			if err := web.AttemptLogin(e.Context(), "e"+reg.User.Email, reg.User.Password); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgBadCredentials)
		}),
		negative("TC470", "Log in as an existing user via WEB - Wrong password", WEB, func(e *Env) error {
			reg, err := e.RegisterWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			if err := web.AttemptLogin(e.Context(), reg.User.Email, "e"+reg.User.Password); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgBadCredentials)
		}),

		basic("TC480", "Retrieve user profile information via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			return web.OpenProfile(e.Context(), li.Registered)
		}),

		basic("TC490", "Update user profile information via WEB", WEB, func(e *Env) error {
			if _, err := e.SignedInWeb(); err != nil {
				return err
			}
			web, _ := e.Web()
			return web.UpdateProfile(e.Context(), webflow.RandomProfile())
		}),
		negative("TC500", "Update user profile information via WEB - Invalid company name", WEB, func(e *Env) error {
			if _, err := e.SignedInWeb(); err != nil {
				return err
			}
			web, _ := e.Web()
			p := webflow.RandomProfile()
			p.Company = "e"
			if err := web.SubmitProfile(e.Context(), p); err != nil {
				return err
			}
			return seeFeedback(e, web, webflow.MsgCompanyLength, ".mb-4 > .invalid-feedback")
		}),
		negative("TC510", "Update user profile information via WEB - Invalid phone number", WEB, func(e *Env) error {
			if _, err := e.SignedInWeb(); err != nil {
				return err
			}
			web, _ := e.Web()
			p := webflow.RandomProfile()
			p.Phone = fakedata.Digits(2)
			if err := web.SubmitProfile(e.Context(), p); err != nil {
				return err
			}
			return seeFeedback(e, web, webflow.MsgPhoneLength, ":nth-child(2) > .mb-2 > .invalid-feedback")
		}),

		basic("TC520", "Change a user's password via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			_, err = web.ChangePassword(e.Context(), li, fakedata.Password(8))
			return err
		}),
		negative("TC530", "Change a user's password via WEB - Wrong password", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			web, _ := e.Web()
			next := fakedata.Password(8)
			if err := web.SubmitPasswordChange(e.Context(), "e"+li.User.Password, next, next); err != nil {
				return err
			}
			return seeAlert(e, web, notesapi.MsgWrongPassword)
		}),

		basic("TC540", "Log out a user via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			if err := e.LogoutWeb(); err != nil {
				return err
			}
			// Log back in so the account is deleted from the profile page.
			_, err = e.LoginWeb(li.Registered)
			return err
		}),
	}
}

// seeAlert checks the alert banner shows msg.
func seeAlert(e *Env, web *webflow.Session, msg string) error {
	return web.Steps("alert").SeeText("alert-message", web.Alert(), msg).Err(e.Context())
}

// seeFeedback checks a form validation message, located by its text or by
// the structural selector of its feedback element.
func seeFeedback(e *Env, web *webflow.Session, msg, css string) error {
	loc := web.Text(msg).Or(web.CSS(css)).First()
	return web.Steps("validation feedback").SeeText("invalid-feedback", loc, msg).Err(e.Context())
}
