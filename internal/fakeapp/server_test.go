package fakeapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/ratelimit"
)

func newClient(t testing.TB, ts *TestServer) *notesapi.Client {
	t.Helper()
	c, err := notesapi.New(ts.APIBaseURL())
	require.NoError(t, err)
	return c
}

type account struct {
	notesapi.RegisterRequest
	ID    string
	Token string
}

func registerAndLogin(t testing.TB, c *notesapi.Client) account {
	t.Helper()
	ctx := context.Background()
	reg := fakedata.Registration()
	resp, err := c.Register(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Envelope.Message)
	var u notesapi.User
	require.NoError(t, resp.DecodeData(&u))

	resp, err = c.Login(ctx, notesapi.LoginRequest{Email: reg.Email, Password: reg.Password})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Envelope.Message)
	var li notesapi.User
	require.NoError(t, resp.DecodeData(&li))
	require.NotEmpty(t, li.Token)
	return account{RegisterRequest: reg, ID: u.ID, Token: li.Token}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	resp, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Envelope.Success)
	assert.Equal(t, notesapi.MsgHealthy, resp.Envelope.Message)
}

func TestRegister_Contract(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	ctx := context.Background()
	reg := fakedata.Registration()

	resp, err := c.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 201, resp.Envelope.Status)
	assert.Equal(t, notesapi.MsgUserCreated, resp.Envelope.Message)
	var u notesapi.User
	require.NoError(t, resp.DecodeData(&u))
	assert.Len(t, u.ID, 24)
	assert.Equal(t, reg.Email, u.Email)
	assert.Equal(t, reg.Name, u.Name)

	resp, err = c.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, notesapi.MsgEmailTaken, resp.Envelope.Message)

	bad := fakedata.Registration()
	bad.Email = "@" + bad.Email
	resp, err = c.Register(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, resp.Envelope.Success)
	assert.Equal(t, notesapi.MsgInvalidEmail, resp.Envelope.Message)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)

	resp, err := c.Login(context.Background(), notesapi.LoginRequest{Email: acct.Email, Password: "@" + acct.Password})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, notesapi.MsgBadCredentials, resp.Envelope.Message)
}

func TestAuth_CorruptedTokenRejected(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)
	ctx := context.Background()

	resp, err := c.Profile(ctx, "@"+acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, notesapi.MsgUnauthorized, resp.Envelope.Message)

	resp, err = c.Profile(ctx, acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, notesapi.MsgProfileOK, resp.Envelope.Message)
}

func TestContentFormatHeader(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)

	resp, err := c.Profile(context.Background(), acct.Token, notesapi.WithContentFormat("badRequest"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, notesapi.MsgInvalidContentFmt, resp.Envelope.Message)

	resp, err = c.Profile(context.Background(), acct.Token, notesapi.WithContentFormat("application/json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutAndDeleteRevokeToken(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	ctx := context.Background()

	acct := registerAndLogin(t, c)
	resp, err := c.Logout(ctx, acct.Token)
	require.NoError(t, err)
	assert.Equal(t, notesapi.MsgLoggedOut, resp.Envelope.Message)
	resp, err = c.Profile(ctx, acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	acct = registerAndLogin(t, c)
	resp, err = c.DeleteAccount(ctx, acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, notesapi.MsgAccountDeleted, resp.Envelope.Message)
	resp, err = c.ListNotes(ctx, acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateProfile_Validation(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)
	ctx := context.Background()

	cases := []struct {
		in   notesapi.ProfileUpdate
		code int
		msg  string
	}{
		{notesapi.ProfileUpdate{Name: "Grace Hopper", Phone: fakedata.Digits(12), Company: "Navy Labs"}, 200, notesapi.MsgProfileUpdated},
		{notesapi.ProfileUpdate{Name: "6@#"}, 400, notesapi.MsgInvalidName},
		{notesapi.ProfileUpdate{Name: "Grace Hopper", Phone: "123"}, 400, notesapi.MsgInvalidPhone},
		{notesapi.ProfileUpdate{Name: "Grace Hopper", Company: "e"}, 400, notesapi.MsgInvalidCompany},
	}
	for _, tc := range cases {
		resp, err := c.UpdateProfile(ctx, acct.Token, tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, tc.msg)
		assert.Equal(t, tc.msg, resp.Envelope.Message)
	}

	resp, err := c.Profile(ctx, acct.Token)
	require.NoError(t, err)
	var u notesapi.User
	require.NoError(t, resp.DecodeData(&u))
	assert.Equal(t, "Grace Hopper", u.Name)
	assert.Equal(t, "Navy Labs", u.Company)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)
	ctx := context.Background()

	cases := []struct {
		in   notesapi.ChangePasswordRequest
		code int
		msg  string
	}{
		{notesapi.ChangePasswordRequest{CurrentPassword: acct.Password, NewPassword: "123"}, 400, notesapi.MsgInvalidNewPassword},
		{notesapi.ChangePasswordRequest{CurrentPassword: "wrong-pass", NewPassword: "abcdef12"}, 400, notesapi.MsgWrongPassword},
		{notesapi.ChangePasswordRequest{CurrentPassword: acct.Password, NewPassword: acct.Password}, 400, notesapi.MsgSamePassword},
		{notesapi.ChangePasswordRequest{CurrentPassword: acct.Password, NewPassword: "n3wPassw0rd"}, 200, notesapi.MsgPasswordUpdated},
	}
	for _, tc := range cases {
		resp, err := c.ChangePassword(ctx, acct.Token, tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, tc.msg)
		assert.Equal(t, tc.msg, resp.Envelope.Message)
	}

	resp, err := c.Login(ctx, notesapi.LoginRequest{Email: acct.Email, Password: "n3wPassw0rd"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotes_Validation(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)
	ctx := context.Background()

	resp, err := c.CreateNote(ctx, acct.Token, notesapi.NoteInput{Title: "valid title", Description: "valid description", Category: "invalid"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, notesapi.MsgInvalidCategory, resp.Envelope.Message)

	resp, err = c.CreateNote(ctx, acct.Token, notesapi.NoteInput{Title: "e", Description: "valid description", Category: "Home"})
	require.NoError(t, err)
	assert.Equal(t, notesapi.MsgInvalidTitle, resp.Envelope.Message)

	in := fakedata.Note()
	resp, err = c.CreateNote(ctx, acct.Token, in)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var n notesapi.Note
	require.NoError(t, resp.DecodeData(&n))

	resp, err = c.UpdateNote(ctx, acct.Token, n.ID, map[string]any{
		"title": in.Title, "description": in.Description, "category": "invalid", "completed": true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, notesapi.MsgInvalidCategory, resp.Envelope.Message)

	resp, err = c.PatchNote(ctx, acct.Token, n.ID, map[string]any{"completed": "invalid"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, notesapi.MsgInvalidCompleted, resp.Envelope.Message)

	resp, err = c.DeleteNote(ctx, acct.Token, "+"+n.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, notesapi.MsgInvalidNoteID, resp.Envelope.Message)

	resp, err = c.DeleteNote(ctx, acct.Token, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notesapi.MsgNoteDeleted, resp.Envelope.Message)

	resp, err = c.GetNote(ctx, acct.Token, n.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, notesapi.MsgNoteNotFound, resp.Envelope.Message)
}

func TestNotes_PatchAndPutKeepOwnership(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	alice := registerAndLogin(t, c)
	bob := registerAndLogin(t, c)
	ctx := context.Background()

	resp, err := c.CreateNote(ctx, alice.Token, fakedata.Note())
	require.NoError(t, err)
	var n notesapi.Note
	require.NoError(t, resp.DecodeData(&n))
	assert.False(t, n.Completed)
	assert.Equal(t, alice.ID, n.UserID)

	resp, err = c.PatchNote(ctx, alice.Token, n.ID, map[string]any{"completed": true})
	require.NoError(t, err)
	assert.Equal(t, notesapi.MsgNoteUpdated, resp.Envelope.Message)
	var patched notesapi.Note
	require.NoError(t, resp.DecodeData(&patched))
	assert.True(t, patched.Completed)

	resp, err = c.GetNote(ctx, bob.Token, n.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = c.ListNotes(ctx, bob.Token)
	require.NoError(t, err)
	assert.Equal(t, notesapi.MsgNotesRetrieved, resp.Envelope.Message)
	var list []notesapi.Note
	require.NoError(t, resp.DecodeData(&list))
	assert.Empty(t, list)
}

func TestFormEncodedBody(t *testing.T) {
	t.Parallel()
	ts := NewTestServer(t)
	reg := fakedata.Registration()
	form := "name=" + strings.ReplaceAll(reg.Name, " ", "+") + "&email=" + reg.Email + "&password=" + reg.Password
	resp, err := http.Post(ts.APIBaseURL()+"users/register", "application/x-www-form-urlencoded", strings.NewReader(form))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	app, err := New(Options{
		Hasher:    FakeInsecureHasher{},
		RateLimit: &ratelimit.Config{AnonymousRPS: 0.001, AnonymousBurst: 1, AuthenticatedRPS: 0.001, AuthenticatedBurst: 1, CleanupInterval: time.Minute},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(app)
	t.Cleanup(func() { srv.Close(); _ = app.Close() })

	c, err := notesapi.New(srv.URL + BasePath)
	require.NoError(t, err)
	resp, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := New(Options{Hasher: FakeInsecureHasher{}, Clock: clock, TokenTTL: time.Hour})
	require.NoError(t, err)
	srv := httptest.NewServer(app)
	t.Cleanup(func() { srv.Close(); _ = app.Close() })

	c, err := notesapi.New(srv.URL + BasePath)
	require.NoError(t, err)
	acct := registerAndLogin(t, c)

	resp, err := c.Profile(context.Background(), acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	clock.Advance(2 * time.Hour)
	resp, err = c.Profile(context.Background(), acct.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()
	h := BcryptHasher{Cost: 4}
	hash, err := h.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, h.VerifyPassword("correct horse", hash))
	assert.False(t, h.VerifyPassword("wrong horse", hash))
	assert.False(t, FakeInsecureHasher{}.VerifyPassword("correct horse", hash))
}

// Creating a note then fetching it by id returns what was submitted, and
// any category outside the fixed set is rejected with the fixed message.
func testNotes_RoundTrip(t *rapid.T, c *notesapi.Client, token string) {
	ctx := context.Background()
	in := notesapi.NoteInput{
		Title:       rapid.StringMatching(`[A-Za-z][A-Za-z ]{3,40}[a-z]`).Draw(t, "title"),
		Description: rapid.StringMatching(`[A-Za-z][A-Za-z ]{3,80}[a-z]`).Draw(t, "description"),
		Category:    rapid.SampledFrom(notesapi.Categories).Draw(t, "category"),
	}
	resp, err := c.CreateNote(ctx, token, in)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("create: %v %+v", err, resp)
	}
	var created notesapi.Note
	if err := resp.DecodeData(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, err = c.GetNote(ctx, token, created.ID)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %v %+v", err, resp)
	}
	var got notesapi.Note
	if err := resp.DecodeData(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != in.Title || got.Description != in.Description || got.Category != in.Category {
		t.Fatalf("round trip mismatch: sent %+v got %+v", in, got)
	}

	bad := rapid.StringMatching(`[A-Za-z]{1,12}`).
		Filter(func(s string) bool { return s != "Home" && s != "Work" && s != "Personal" }).
		Draw(t, "badCategory")
	in.Category = bad
	resp, err = c.CreateNote(ctx, token, in)
	if err != nil {
		t.Fatalf("create bad: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || resp.Envelope.Message != notesapi.MsgInvalidCategory {
		t.Fatalf("bad category %q: got %d %q", bad, resp.StatusCode, resp.Envelope.Message)
	}
}

func TestNotes_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newClient(t, NewTestServer(t))
	acct := registerAndLogin(t, c)
	rapid.Check(t, func(rt *rapid.T) { testNotes_RoundTrip(rt, c, acct.Token) })
}
