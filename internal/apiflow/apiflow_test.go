package apiflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/fakeapp"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
)

func newFlow(t *testing.T) *Flow {
	t.Helper()
	ts := fakeapp.NewTestServer(t)
	client, err := notesapi.New(ts.APIBaseURL())
	require.NoError(t, err)
	return New(client, fixture.OpenTemp(t))
}

func TestFullLifecycle(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	ctx := context.Background()
	key := fixture.NewKey()

	reg, err := f.RegisterUser(ctx, key)
	require.NoError(t, err)
	rec, err := f.Store().Read(key)
	require.NoError(t, err)
	assert.Equal(t, reg.User.Email, rec.String(fixture.FieldUserEmail))
	assert.Equal(t, reg.User.ID, rec.String(fixture.FieldUserID))
	assert.NotContains(t, rec, fixture.FieldUserToken)

	li, err := f.LoginUser(ctx, reg)
	require.NoError(t, err)
	assert.NotEmpty(t, li.Token)

	// The token authenticates a follow-up request.
	resp, err := f.Client().Profile(ctx, li.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wn, err := f.CreateNote(ctx, li)
	require.NoError(t, err)
	rec, err = f.Store().Read(key)
	require.NoError(t, err)
	assert.Equal(t, wn.Note.ID, rec.String(fixture.FieldNoteID))
	assert.Equal(t, false, rec[fixture.FieldNoteCompleted])
	assert.Equal(t, li.Token, rec.String(fixture.FieldUserToken))

	back, err := f.DeleteNote(ctx, wn)
	require.NoError(t, err)
	assert.Equal(t, li, back)
	rec, err = f.Store().Read(key)
	require.NoError(t, err)
	for _, field := range fixture.NoteFields {
		assert.NotContains(t, rec, field)
	}
	assert.Equal(t, li.Token, rec.String(fixture.FieldUserToken))

	require.NoError(t, f.DeleteUser(ctx, li))
	assert.True(t, f.Store().Exists(key), "DeleteUser leaves the record to the caller")

	resp, err = f.Client().Profile(ctx, li.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterUserWith_LowerCasesEmail(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	reg, err := f.RegisterUserWith(context.Background(), fixture.NewKey(), notesapi.RegisterRequest{
		Name: "Ada Lovelace", Email: "Ada.Lovelace77@Example.COM", Password: "abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace77@example.com", reg.User.Email)
}

func TestRegisterUser_ContractViolationLeavesNoRecord(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	key := fixture.NewKey()
	_, err := f.RegisterUserWith(context.Background(), key, notesapi.RegisterRequest{
		Name: "Ada Lovelace", Email: "@bad@example.com", Password: "abcd1234",
	})
	require.Error(t, err)
	assert.Equal(t, errs.ContractViolation, errs.CodeOf(err))
	assert.Contains(t, err.Error(), notesapi.MsgInvalidEmail)
	assert.False(t, f.Store().Exists(key))
}

func TestCreateNoteForKey_RequiresLogin(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	ctx := context.Background()
	key := fixture.NewKey()
	_, err := f.RegisterUser(ctx, key)
	require.NoError(t, err)

	_, err = f.CreateNoteForKey(ctx, key)
	require.Error(t, err)
	assert.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "User token is required to create a note. Make sure LoginUser was executed.")
}

func TestDeleteUserForKey_RequiresLogin(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	ctx := context.Background()
	key := fixture.NewKey()
	_, err := f.RegisterUser(ctx, key)
	require.NoError(t, err)

	err = f.DeleteUserForKey(ctx, key)
	require.Error(t, err)
	assert.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "User token is required to delete a user. Make sure LoginUser was executed.")
	assert.NotContains(t, err.Error(), "create a note")
}

func TestDeleteNoteForKey_RequiresNote(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	ctx := context.Background()
	key := fixture.NewKey()
	_, err := f.RegisterUser(ctx, key)
	require.NoError(t, err)
	_, err = f.LoginUserForKey(ctx, key)
	require.NoError(t, err)

	_, err = f.DeleteNoteForKey(ctx, key)
	require.Error(t, err)
	assert.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "Note ID is required to delete a note. Make sure a note was created first.")

	_, err = f.CreateNoteForKey(ctx, key)
	require.NoError(t, err)
	_, err = f.DeleteNoteForKey(ctx, key)
	require.NoError(t, err)
	require.NoError(t, f.DeleteUserForKey(ctx, key))
}

func TestLoginUser_StaleFixtureIsContractViolation(t *testing.T) {
	t.Parallel()
	f := newFlow(t)
	ctx := context.Background()
	key := fixture.NewKey()
	reg, err := f.RegisterUser(ctx, key)
	require.NoError(t, err)

	reg.User.Password = "not-the-password"
	_, err = f.LoginUser(ctx, reg)
	require.Error(t, err)
	assert.Equal(t, errs.ContractViolation, errs.CodeOf(err))

	rec, err := f.Store().Read(key)
	require.NoError(t, err)
	assert.NotContains(t, rec, fixture.FieldUserToken)
}
