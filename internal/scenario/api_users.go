package scenario

import (
	"net/http"
	"strings"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
)

func apiUserScenarios() []Scenario {
	return []Scenario{
		basic("TC010", "Create a New User via API", API, tc010),
		negative("TC020", "Create a New User via API - Bad request", API, func(e *Env) error {
			in := fakedata.Registration()
			in.Email = corrupt(strings.ToLower(in.Email))
			resp, err := e.Client().Register(e.Context(), in)
			return rejected(e, "POST users/register", resp, err, http.StatusBadRequest, notesapi.MsgInvalidEmail)
		}),

		basic("TC030", "Log in as an existing user via API", API, tc030),
		negative("TC040", "Log in as an existing user via API - Bad request", API, func(e *Env) error {
			reg, err := e.RegisterAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Login(e.Context(), notesapi.LoginRequest{
				Email:    corrupt(reg.User.Email),
				Password: reg.User.Password,
			})
			return rejected(e, "POST users/login", resp, err, http.StatusBadRequest, notesapi.MsgInvalidEmail)
		}),
		negative("TC050", "Log in as an existing user via API - Unauthorized request", API, func(e *Env) error {
			reg, err := e.RegisterAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Login(e.Context(), notesapi.LoginRequest{
				Email:    reg.User.Email,
				Password: corrupt(reg.User.Password),
			})
			return rejected(e, "POST users/login", resp, err, http.StatusUnauthorized, notesapi.MsgBadCredentials)
		}),

		basic("TC060", "Retrieve user profile information via API", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Profile(e.Context(), li.Token)
			if err != nil {
				return err
			}
			c := outcome(e, "GET users/profile", resp, http.StatusOK, notesapi.MsgProfileOK)
			var data notesapi.User
			if c.Assert().NoError(resp.DecodeData(&data)) {
				c.Assert().Equal(li.User.Email, data.Email, "data.email")
				c.Assert().Equal(li.User.ID, data.ID, "data.id")
				c.Assert().Equal(li.User.Name, data.Name, "data.name")
			}
			return c.Err()
		}),
		negative("TC070", "Retrieve user profile information via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Profile(e.Context(), li.Token, notesapi.WithContentFormat(badFormat))
			return rejected(e, "GET users/profile", resp, err, http.StatusBadRequest, notesapi.MsgInvalidContentFmt)
		}),
		negative("TC080", "Retrieve user profile information via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Profile(e.Context(), corrupt(li.Token))
			return rejected(e, "GET users/profile", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC090", "Update the user profile information via API", API, tc090),
		negative("TC100", "Update the user profile information via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().UpdateProfile(e.Context(), li.Token, notesapi.ProfileUpdate{
				Name:    "6@#",
				Phone:   fakedata.Digits(12),
				Company: fakedata.Username(),
			})
			return rejected(e, "PATCH users/profile", resp, err, http.StatusBadRequest, notesapi.MsgInvalidName)
		}),
		negative("TC110", "Update the user profile information via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().UpdateProfile(e.Context(), corrupt(li.Token), notesapi.ProfileUpdate{
				Name:    fakedata.FullName(),
				Phone:   fakedata.Digits(12),
				Company: fakedata.Username(),
			})
			return rejected(e, "PATCH users/profile", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC120", "Change a user's password via API", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			next := fakedata.Password(8)
			resp, err := e.Client().ChangePassword(e.Context(), li.Token, notesapi.ChangePasswordRequest{
				CurrentPassword: li.User.Password,
				NewPassword:     next,
			})
			if err != nil {
				return err
			}
			if err := outcome(e, "POST users/change-password", resp, http.StatusOK, notesapi.MsgPasswordUpdated).Err(); err != nil {
				return err
			}
			_, err = e.Store().Merge(e.Key(), fixture.Record{fixture.FieldUserPassword: next})
			return err
		}),
		negative("TC130", "Change a user's password via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().ChangePassword(e.Context(), li.Token, notesapi.ChangePasswordRequest{
				CurrentPassword: li.User.Password,
				NewPassword:     "123",
			})
			return rejected(e, "POST users/change-password", resp, err, http.StatusBadRequest, notesapi.MsgInvalidNewPassword)
		}),
		negative("TC140", "Change a user's password via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().ChangePassword(e.Context(), corrupt(li.Token), notesapi.ChangePasswordRequest{
				CurrentPassword: li.User.Password,
				NewPassword:     fakedata.Password(8),
			})
			return rejected(e, "POST users/change-password", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC150", "Log out a user via API", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Logout(e.Context(), li.Token)
			if err != nil {
				return err
			}
			return outcome(e, "DELETE users/logout", resp, http.StatusOK, notesapi.MsgLoggedOut).Err()
		}),
		negative("TC160", "Log out a user via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Logout(e.Context(), li.Token, notesapi.WithContentFormat(badFormat))
			return rejected(e, "DELETE users/logout", resp, err, http.StatusBadRequest, notesapi.MsgInvalidContentFmt)
		}),
		negative("TC170", "Log out a user via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().Logout(e.Context(), corrupt(li.Token))
			return rejected(e, "DELETE users/logout", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),

		basic("TC180", "Delete user account via API", API, tc180),
		negative("TC190", "Delete user account via API - Bad request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().DeleteAccount(e.Context(), li.Token, notesapi.WithContentFormat(badFormat))
			return rejected(e, "DELETE users/delete-account", resp, err, http.StatusBadRequest, notesapi.MsgInvalidContentFmt)
		}),
		negative("TC200", "Delete user account via API - Unauthorized request", API, func(e *Env) error {
			li, err := e.SignedInAPI()
			if err != nil {
				return err
			}
			resp, err := e.Client().DeleteAccount(e.Context(), corrupt(li.Token))
			return rejected(e, "DELETE users/delete-account", resp, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
		}),
	}
}

// tc010 registers through the raw client so the whole success envelope is
// checked, then proves the new account can log in.
func tc010(e *Env) error {
	in := fakedata.Registration()
	in.Email = strings.ToLower(in.Email)
	resp, err := e.Client().Register(e.Context(), in)
	if err != nil {
		return err
	}
	c := outcome(e, "POST users/register", resp, http.StatusCreated, notesapi.MsgUserCreated)
	c.Assert().True(resp.Envelope.Success, "success")
	c.Assert().Equal(http.StatusCreated, resp.Envelope.Status, "status member")
	var data notesapi.User
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().NotEmpty(data.ID, "data.id")
		c.Assert().Equal(in.Email, data.Email, "data.email")
		c.Assert().Equal(in.Name, data.Name, "data.name")
	}
	if err := c.Err(); err != nil {
		return err
	}

	user := fixture.User{Email: in.Email, ID: data.ID, Name: in.Name, Password: in.Password}
	if _, err := e.Store().Upsert(e.Key(), user.Fields()); err != nil {
		return err
	}
	e.armUser()
	_, err = e.LoginAPI(fixture.Registered{Key: e.Key(), User: user})
	return err
}

func tc030(e *Env) error {
	reg, err := e.RegisterAPI()
	if err != nil {
		return err
	}
	resp, err := e.Client().Login(e.Context(), notesapi.LoginRequest{Email: reg.User.Email, Password: reg.User.Password})
	if err != nil {
		return err
	}
	c := outcome(e, "POST users/login", resp, http.StatusOK, notesapi.MsgLoginOK)
	var data notesapi.User
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().Equal(reg.User.Email, data.Email, "data.email")
		c.Assert().Equal(reg.User.ID, data.ID, "data.id")
		c.Assert().Equal(reg.User.Name, data.Name, "data.name")
		c.Assert().NotEmpty(data.Token, "data.token")
	}
	if err := c.Err(); err != nil {
		return err
	}
	_, err = e.Store().Merge(e.Key(), fixture.Record{fixture.FieldUserToken: data.Token})
	return err
}

func tc090(e *Env) error {
	li, err := e.SignedInAPI()
	if err != nil {
		return err
	}
	in := notesapi.ProfileUpdate{
		Name:    fakedata.FullName(),
		Phone:   fakedata.Digits(12),
		Company: fakedata.Username(),
	}
	resp, err := e.Client().UpdateProfile(e.Context(), li.Token, in)
	if err != nil {
		return err
	}
	c := outcome(e, "PATCH users/profile", resp, http.StatusOK, notesapi.MsgProfileUpdated)
	var data notesapi.User
	if c.Assert().NoError(resp.DecodeData(&data)) {
		c.Assert().Equal(li.User.Email, data.Email, "data.email")
		c.Assert().Equal(li.User.ID, data.ID, "data.id")
		c.Assert().Equal(in.Name, data.Name, "data.name")
		c.Assert().Equal(in.Phone, data.Phone, "data.phone")
		c.Assert().Equal(in.Company, data.Company, "data.company")
	}
	if err := c.Err(); err != nil {
		return err
	}
	// Later logins compare the name the server returns with the record.
	_, err = e.Store().Merge(e.Key(), fixture.Record{fixture.FieldUserName: in.Name})
	return err
}

// tc180 deletes the account as the action under test, so the user
// teardown is disarmed. The revoked token must no longer authenticate.
func tc180(e *Env) error {
	li, err := e.SignedInAPI()
	if err != nil {
		return err
	}
	resp, err := e.Client().DeleteAccount(e.Context(), li.Token)
	if err != nil {
		return err
	}
	if err := outcome(e, "DELETE users/delete-account", resp, http.StatusOK, notesapi.MsgAccountDeleted).Err(); err != nil {
		return err
	}
	e.Disarm(TeardownUser)

	after, err := e.Client().Profile(e.Context(), li.Token)
	return rejected(e, "GET users/profile after delete", after, err, http.StatusUnauthorized, notesapi.MsgUnauthorized)
}
