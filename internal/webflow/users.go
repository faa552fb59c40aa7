package webflow

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
)

var (
	reLoginURL   = regexp.MustCompile(`.*/login`)
	reProfileURL = regexp.MustCompile(`.*/profile`)
)

// Messages shown by the registration and profile pages.
const (
	MsgProfileUpdated  = "Profile updated successful"
	MsgPasswordUpdated = "The password was successfully updated"

	MsgPasswordsDontMatch = "Passwords don't match!"
	MsgCompanyLength      = "company name should be between 4 and 30 characters"
	MsgPhoneLength        = "Phone number should be between 8 and 20 digits"
)

// ProfileForm holds the editable profile fields.
type ProfileForm struct {
	Phone   string
	Company string
}

// RandomProfile returns a profile that passes validation.
func RandomProfile() ProfileForm {
	return ProfileForm{Phone: fakedata.Digits(12), Company: fakedata.Username()}
}

func (s *Session) fillRegistration(st *Steps, in notesapi.RegisterRequest, confirm string) {
	st.Goto("app/register").
		SeeURL(regexp.MustCompile(`.*/register`)).
		Fill("register-email", s.TestID("register-email"), in.Email).
		Fill("register-name", s.TestID("register-name"), in.Name).
		Fill("register-password", s.TestID("register-password"), in.Password).
		Fill("register-confirm-password", s.TestID("register-confirm-password"), confirm)
}

// AttemptRegister fills the registration form and submits it without
// waiting for an outcome. Negative scenarios assert the error themselves.
func (s *Session) AttemptRegister(ctx context.Context, in notesapi.RegisterRequest, confirm string) error {
	st := s.Steps("attempt registration")
	s.fillRegistration(st, in, confirm)
	return st.Click("Register", s.Button("Register")).Err(ctx)
}

// RegisterUser registers a random user through the UI and creates the
// record for key.
func (s *Session) RegisterUser(ctx context.Context, key string) (fixture.Registered, error) {
	return s.RegisterUserWith(ctx, key, fakedata.Registration())
}

// RegisterUserWith registers in through the UI. The user id is read from the
// register API response the page issues.
func (s *Session) RegisterUserWith(ctx context.Context, key string, in notesapi.RegisterRequest) (fixture.Registered, error) {
	in.Email = strings.ToLower(in.Email)
	st := s.Steps("register user")
	s.fillRegistration(st, in, in.Password)

	var data notesapi.User
	st.Do("submit registration", func() error {
		return s.submitAndDecode("**/api/users/register", s.Button("Register"), &data)
	})
	if !st.Failed() && data.ID == "" {
		st.Failf("register response has no data.id")
	}
	st.SeeTitle(PageTitle).
		SeeText("confirmation", s.Text(MsgAccountCreated), MsgAccountCreated)
	if err := st.Err(ctx); err != nil {
		return fixture.Registered{}, err
	}

	user := fixture.User{Email: in.Email, ID: data.ID, Name: in.Name, Password: in.Password}
	if _, err := s.store.Upsert(key, user.Fields()); err != nil {
		return fixture.Registered{}, err
	}
	obs.From(ctx).Info("user_registered", "channel", "web", "user_id", data.ID)
	return fixture.Registered{Key: key, User: user}, nil
}

// AttemptLogin submits the login form without waiting for an outcome.
func (s *Session) AttemptLogin(ctx context.Context, email, password string) error {
	return s.Steps("attempt login").
		Goto("app/login").
		Fill("login-email", s.TestID("login-email"), email).
		Fill("login-password", s.TestID("login-password"), password).
		ForceClick("Login", s.Button("Login")).
		Err(ctx)
}

// LoginUser logs reg in through the UI, checks the profile page shows the
// stored identity and records the token from the login API response.
func (s *Session) LoginUser(ctx context.Context, reg fixture.Registered) (fixture.LoggedIn, error) {
	st := s.Steps("log in user").
		Goto("app/login").
		Fill("login-email", s.TestID("login-email"), reg.User.Email).
		Fill("login-password", s.TestID("login-password"), reg.User.Password)

	var data notesapi.User
	st.Do("submit login", func() error {
		return s.submitAndDecode("**/api/users/login", s.Button("Login"), &data)
	})
	if !st.Failed() && data.Token == "" {
		st.Failf("login response has no data.token")
	}
	s.seeProfile(st.Goto("app/profile"), reg.User, true)
	if err := st.Err(ctx); err != nil {
		return fixture.LoggedIn{}, err
	}

	if _, err := s.store.Merge(reg.Key, fixture.Record{fixture.FieldUserToken: data.Token}); err != nil {
		return fixture.LoggedIn{}, err
	}
	obs.From(ctx).Info("user_logged_in", "channel", "web", "user_id", reg.User.ID)
	return fixture.LoggedIn{Registered: reg, Token: data.Token}, nil
}

// LoginUserForKey loads the registration phase of key and logs it in.
func (s *Session) LoginUserForKey(ctx context.Context, key string) (fixture.LoggedIn, error) {
	reg, err := s.store.LoadRegistered(key)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	return s.LoginUser(ctx, reg)
}

func (s *Session) seeProfile(st *Steps, u fixture.User, withID bool) {
	st.SeeValue("user-email", s.TestID("user-email"), u.Email)
	if withID {
		st.SeeValue("user-id", s.TestID("user-id"), u.ID)
	}
	st.SeeValue("user-name", s.TestID("user-name"), u.Name)
}

// OpenProfile navigates to the profile page and checks it shows reg's name
// and email.
func (s *Session) OpenProfile(ctx context.Context, reg fixture.Registered) error {
	st := s.Steps("open profile").Goto("app/profile").SeeURL(reProfileURL)
	s.seeProfile(st, reg.User, false)
	return st.Err(ctx)
}

// SubmitProfile fills phone and company on the profile page and saves.
func (s *Session) SubmitProfile(ctx context.Context, p ProfileForm) error {
	return s.Steps("submit profile").
		Goto("app/profile").
		Fill("phone", s.Field("Phone", `input[name="phone"]`), p.Phone).
		Fill("company", s.Field("Company", `input[name="company"]`), p.Company).
		Click("Update profile", s.Button("Update profile")).
		Err(ctx)
}

// UpdateProfile saves p and waits for the confirmation.
func (s *Session) UpdateProfile(ctx context.Context, p ProfileForm) error {
	if err := s.SubmitProfile(ctx, p); err != nil {
		return err
	}
	return s.Steps("update profile").
		SeeText("alert-message", s.Alert(), MsgProfileUpdated).
		Err(ctx)
}

// SubmitPasswordChange opens the change password form on the profile page
// and submits it.
func (s *Session) SubmitPasswordChange(ctx context.Context, current, next, confirm string) error {
	return s.Steps("submit password change").
		Goto("app/profile").
		Click("Change password", s.Button("Change password")).
		Fill("current-password", s.TestID("current-password"), current).
		Fill("new-password", s.TestID("new-password"), next).
		Fill("confirm-password", s.TestID("confirm-password"), confirm).
		Click("Update password", s.Button("Update password")).
		Err(ctx)
}

// ChangePassword changes li's password to next and records it.
func (s *Session) ChangePassword(ctx context.Context, li fixture.LoggedIn, next string) (fixture.LoggedIn, error) {
	if err := s.SubmitPasswordChange(ctx, li.User.Password, next, next); err != nil {
		return fixture.LoggedIn{}, err
	}
	if err := s.Steps("change password").SeeText("alert-message", s.Alert(), MsgPasswordUpdated).Err(ctx); err != nil {
		return fixture.LoggedIn{}, err
	}
	if _, err := s.store.Merge(li.Key, fixture.Record{fixture.FieldUserPassword: next}); err != nil {
		return fixture.LoggedIn{}, err
	}
	li.User.Password = next
	return li, nil
}

// Logout clicks Logout and waits for the Login link. The token in the
// record is left as is; the server has revoked it.
func (s *Session) Logout(ctx context.Context) error {
	loginHref := "/notes/app/login"
	if u, err := url.Parse(s.URL("app/login")); err == nil {
		loginHref = u.Path
	}
	logout := s.Button("Logout").Or(s.Link("Logout")).First()
	login := s.Link("Login").Or(s.CSS(`[href="` + loginHref + `"]`)).First()
	return s.Steps("log out").
		Click("Logout", logout).
		SeeText("Login link", login, "Login").
		Err(ctx)
}

// DeleteUser deletes the logged-in account from the profile page and waits
// for the redirect to the login page. The record is left to the caller.
func (s *Session) DeleteUser(ctx context.Context, li fixture.LoggedIn) error {
	confirm := s.TestID("note-delete-confirm")
	err := s.Steps("delete user").
		Goto("app/profile").
		Click("Delete Account", s.Button("Delete Account")).
		WaitVisible("note-delete-confirm", confirm).
		ForceClick("note-delete-confirm", confirm).
		Do("wait for login page", func() error {
			return s.page.WaitForURL(reLoginURL, playwright.PageWaitForURLOptions{
				Timeout: playwright.Float(ms(s.opts.ResponseTimeout)),
			})
		}).
		SeeText("alert-message", s.Alert(), MsgAccountDeleted).
		Err(ctx)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("user_deleted", "channel", "web", "user_id", li.User.ID)
	return nil
}

// submitAndDecode clicks submit and decodes the data member of the first
// response matching glob.
func (s *Session) submitAndDecode(glob string, submit playwright.Locator, v any) error {
	resp, err := s.page.ExpectResponse(glob, func() error {
		return submit.Click()
	}, playwright.PageExpectResponseOptions{Timeout: playwright.Float(ms(s.opts.ResponseTimeout))})
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, v)
}

func decodeEnvelope(resp playwright.Response, v any) error {
	var env notesapi.Envelope
	if err := resp.JSON(&env); err != nil {
		return err
	}
	r := notesapi.Response{StatusCode: resp.Status(), Envelope: env}
	return r.DecodeData(v)
}
